package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"standarr/services"
)

func setupCatalogRoutes(api *gin.RouterGroup, s *Server) {
	disciplines := api.Group("/disciplines")
	disciplines.GET("", func(c *gin.Context) {
		out, err := s.Catalog.Disciplines(c.Request.Context())
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	disciplines.POST("", func(c *gin.Context) {
		var in services.DisciplineInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		d, err := s.Catalog.CreateDiscipline(c.Request.Context(), in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	})

	tags := api.Group("/tags")
	tags.GET("", func(c *gin.Context) {
		out, err := s.Catalog.Tags(c.Request.Context())
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	tags.POST("", func(c *gin.Context) {
		var in struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		tag, err := s.Catalog.CreateTag(c.Request.Context(), in.Name)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, tag)
	})

	works := api.Group("/works")
	works.GET("", func(c *gin.Context) {
		f, err := filtersFromQuery(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := s.Catalog.Works(c.Request.Context(), f)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	works.GET("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		work, err := s.Catalog.GetWork(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, work)
	})
	works.GET("/:id/sources", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if _, err := s.Catalog.GetWork(c.Request.Context(), id); err != nil {
			respondError(c, s.Logger, err)
			return
		}
		records, err := s.Catalog.SourceRecords(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, records)
	})
	works.POST("", func(c *gin.Context) {
		var in services.WorkInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		work, err := s.Catalog.CreateWork(c.Request.Context(), in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusCreated, work)
	})
	works.PATCH("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in services.WorkInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		work, err := s.Catalog.UpdateWork(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, work)
	})
	works.DELETE("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := s.Catalog.DeleteWork(c.Request.Context(), id); err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	editions := api.Group("/editions")
	editions.GET("", func(c *gin.Context) {
		f, err := filtersFromQuery(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter := services.EditionFilter{ListFilters: f}
		if raw := c.Query("work_id"); raw != "" {
			workID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				badRequest(c, "invalid work_id")
				return
			}
			id := uint(workID)
			filter.WorkID = &id
		}
		out, err := s.Catalog.Editions(c.Request.Context(), filter)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	editions.GET("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		edition, err := s.Catalog.GetEdition(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, edition)
	})
	editions.GET("/:id/relations", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		edges, err := s.Catalog.Relations(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, edges)
	})
	editions.POST("", func(c *gin.Context) {
		var in services.EditionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		edition, err := s.Catalog.CreateEdition(c.Request.Context(), in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusCreated, edition)
	})
	editions.PATCH("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in services.EditionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		edition, err := s.Catalog.UpdateEdition(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, edition)
	})
	editions.DELETE("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := s.Catalog.DeleteEdition(c.Request.Context(), id); err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	api.POST("/relations", func(c *gin.Context) {
		var in services.RelationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		edge, err := s.Catalog.AssertRelation(c.Request.Context(), in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusCreated, edge)
	})
}
