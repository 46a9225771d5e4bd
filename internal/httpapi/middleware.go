package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"featureboard/internal/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// requestLogger writes one line per request; server errors log at error level.
func requestLogger(logger core.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		}
		if c.FullPath() == "" {
			kv[3] = c.Request.URL.Path
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "error", errs.String())
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("http request", kv...)
		case status >= 400:
			logger.Warn("http request", kv...)
		default:
			logger.Info("http request", kv...)
		}
	}
}
