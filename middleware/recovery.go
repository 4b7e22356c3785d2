package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 carrying the request ID. A panic
// after the response was written is only logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"error", err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": GetRequestID(c),
			})
		}()

		c.Next()
	}
}
