package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes begrenzt die Größe eines einzelnen Anhangs.
const maxUploadBytes = 64 << 20

func setupAttachmentRoutes(api *gin.RouterGroup, s *Server) {
	api.GET("/editions/:id/attachments", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		out, err := s.Attachments.List(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	api.POST("/editions/:id/attachments", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		header, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "multipart field 'file' is required")
			return
		}
		if header.Size > maxUploadBytes {
			badRequest(c, fmt.Sprintf("file exceeds %d bytes", maxUploadBytes))
			return
		}
		f, err := header.Open()
		if err != nil {
			badRequest(c, "cannot read upload")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		if err != nil {
			badRequest(c, "cannot read upload")
			return
		}
		attachment, created, err := s.Attachments.Upload(c.Request.Context(), id, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, attachment)
	})

	api.GET("/attachments/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		attachment, data, err := s.Attachments.Download(c.Request.Context(), id)
		if err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
		c.Data(http.StatusOK, attachment.MimeType, data)
	})

	api.DELETE("/attachments/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := s.Attachments.Delete(c.Request.Context(), id); err != nil {
			respondError(c, s.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})
}
