package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"standarr/services"
)

// mapError übersetzt Service-Fehler in HTTP-Status und Fehlercode.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrConsistency):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, code := mapError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Anfrage fehlgeschlagen", zap.String("path", c.FullPath()), zap.Error(err))
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "INVALID_REQUEST"})
}

// idParam liest eine positive numerische Pfad-ID.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
