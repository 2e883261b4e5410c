// Package api stellt die Katalog-Operationen über HTTP/JSON bereit.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"standarr/services"
)

// Server bündelt die Services, die der HTTP-Layer nutzt.
type Server struct {
	Catalog     *services.CatalogService
	Lists       *services.ListService
	Ingestion   *services.IngestionService
	Exporter    *services.Exporter
	Attachments *services.AttachmentService
	Logger      *zap.Logger

	// Background führt Ingestion-Läufe aus, nachdem die Anfrage beantwortet wurde.
	Background func(func())
}

// NewRouter registriert alle Routen.
func NewRouter(s *Server) *gin.Engine {
	if s.Background == nil {
		s.Background = func(f func()) { go f() }
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rg := router.Group("/api")
	setupIngestionRoutes(rg, s)
	setupCatalogRoutes(rg, s)
	setupListRoutes(rg, s)
	setupAttachmentRoutes(rg, s)
	return router
}
