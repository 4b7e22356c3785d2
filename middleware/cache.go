package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheControl disables caching of API responses except stored mockup images,
// which never change once written.
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		switch {
		case strings.HasPrefix(path, "/api/") && strings.HasSuffix(path, "/image"):
			c.Header("Cache-Control", "private, max-age=3600")
		case strings.HasPrefix(path, "/api"):
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}
