package middleware

import (
	"log/slog"
	"time"

	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one access line per request. Paths in quiet are logged
// at debug level when they succeed, so health probes stay out of info logs.
func RequestLogger(quiet ...string) gin.HandlerFunc {
	quietPaths := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case quietPaths[path]:
			level = slog.LevelDebug
		}
		logger.WithContext(c.Request.Context()).Log(c.Request.Context(), level, "request completed", attrs...)
	}
}
