// Package middleware holds HTTP middleware specific to site-builder.
package middleware

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cache lifetimes for static files and stored media.
const (
	LongCache  = 365 * 24 * time.Hour
	ShortCache = 7 * 24 * time.Hour
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// CacheMaxAge returns the cache lifetime for a request path, or zero when
// the path is not cacheable.
func CacheMaxAge(p string) time.Duration {
	switch {
	case strings.HasPrefix(p, "/static/"):
		return LongCache
	case strings.HasPrefix(p, "/media/"):
		if imageExtensions[strings.ToLower(path.Ext(p))] {
			return LongCache
		}
		return ShortCache
	}
	return 0
}

// CacheHeaders sets Cache-Control and Expires on static and media responses.
func CacheHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxAge := CacheMaxAge(c.Request.URL.Path); maxAge > 0 {
			h := c.Writer.Header()
			h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
			h.Set("Expires", time.Now().Add(maxAge).UTC().Format(http.TimeFormat))
		}
		c.Next()
	}
}
