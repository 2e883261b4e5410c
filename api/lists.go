package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"standarr/services"
)

func setupListRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/lists")

	rg.GET("", func(c *gin.Context) {
		lists, err := s.Lists.Lists(c.Request.Context())
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, lists)
	})
	rg.POST("", func(c *gin.Context) {
		var in services.ListInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		list, err := s.Lists.CreateList(c.Request.Context(), in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusCreated, list)
	})
	rg.GET("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		list, err := s.Lists.GetList(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	rg.PATCH("/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in services.ListUpdate
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		list, err := s.Lists.UpdateList(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	rg.POST("/:id/regenerate", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		list, result, err := s.Lists.RegenerateList(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"list": list, "result": result})
	})
	rg.GET("/:id/items", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		items, err := s.Lists.ListItems(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})
	rg.POST("/:id/items/manual-add", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			EditionID uint    `json:"edition_id"`
			Note      *string `json:"note"`
		}
		if err := c.ShouldBindJSON(&in); err != nil || in.EditionID == 0 {
			badRequest(c, "edition_id is required")
			return
		}
		item, err := s.Lists.ManualAddItem(c.Request.Context(), id, in.EditionID, in.Note)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	rg.POST("/:id/items/:item/include", func(c *gin.Context) {
		listID, itemID, ok := itemParams(c)
		if !ok {
			return
		}
		item, err := s.Lists.IncludeItem(c.Request.Context(), listID, itemID)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	rg.POST("/:id/items/:item/exclude", func(c *gin.Context) {
		listID, itemID, ok := itemParams(c)
		if !ok {
			return
		}
		item, err := s.Lists.ExcludeItem(c.Request.Context(), listID, itemID)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	rg.PATCH("/:id/items/:item", func(c *gin.Context) {
		listID, itemID, ok := itemParams(c)
		if !ok {
			return
		}
		var in struct {
			Note *string `json:"note"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		item, err := s.Lists.UpdateItemNote(c.Request.Context(), listID, itemID, in.Note)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})
	rg.GET("/:id/export/txt", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		text, err := s.Exporter.ExportListAsText(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.String(http.StatusOK, text)
	})
}

func itemParams(c *gin.Context) (uint, uint, bool) {
	listID, ok := idParam(c, "id")
	if !ok {
		return 0, 0, false
	}
	itemID, ok := idParam(c, "item")
	if !ok {
		return 0, 0, false
	}
	return listID, itemID, true
}
