package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"standarr/providers/registry"
)

func setupIngestionRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/ingestion")

	rg.GET("/providers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"providers": registry.Names()})
	})

	// Startet einen Lauf und führt ihn im Hintergrund aus.
	rg.POST("/:provider/run", func(c *gin.Context) {
		run, err := s.Ingestion.StartRun(c.Request.Context(), c.Param("provider"))
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		runID := run.ID
		s.Background(func() {
			if _, err := s.Ingestion.Execute(context.Background(), runID); err != nil {
				s.Logger.Warn("Asynchroner Ingestion-Lauf fehlgeschlagen", zap.Uint("run_id", runID), zap.Error(err))
			}
		})
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
	})

	rg.GET("/status", func(c *gin.Context) {
		status, err := s.Ingestion.Status(c.Request.Context())
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	rg.GET("/runs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		runs, err := s.Ingestion.ListRuns(c.Request.Context(), limit)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	})

	rg.GET("/runs/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		run, err := s.Ingestion.GetRun(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, run)
	})
}
