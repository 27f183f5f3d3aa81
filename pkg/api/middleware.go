package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func logRequest(c *gin.Context, elapsed time.Duration) {
	status := c.Writer.Status()
	log := slog.With(
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	switch {
	case status >= 500:
		log.Error("request completed")
	case status >= 400:
		log.Warn("request completed")
	default:
		log.Info("request completed")
	}
}
