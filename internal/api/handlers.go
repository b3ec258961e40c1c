package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"carelink/internal/analysis"
	"carelink/internal/careplan"
	"carelink/internal/config"
	"carelink/internal/document"
	"carelink/internal/goal"
	"carelink/internal/logging"
	"carelink/internal/service"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"documents": gin.H{
				"max_size_mb":      cfg.Documents.MaxSizeMB,
				"fallback_enabled": cfg.Documents.FallbackEnabled,
			},
			"analysis": gin.H{"engine": cfg.Analysis.Engine},
			"progress": cfg.Progress,
		})
	}
}

func loggerMiddleware(l zerolog.Logger) gin.HandlerFunc {
	return logging.GinLogger(logging.Component(l, "http"))
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": gin.H{"message": msg}})
}

// statusFor maps domain errors onto HTTP status codes; unknown errors are
// reported with fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, goal.ErrValidation), errors.Is(err, document.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, careplan.ErrNotFound), errors.Is(err, service.ErrNoPlan):
		return http.StatusNotFound
	case errors.Is(err, document.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrNotImplemented):
		return http.StatusNotImplemented
	}
	return fallback
}

func serviceError(c *gin.Context, err error) {
	status := statusFor(err, http.StatusInternalServerError)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal error"
		_ = c.Error(err)
	}
	errorJSON(c, status, msg)
}
