// Package api assembles the HTTP server and route table.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	infragin "github.com/jonesrussell/site-builder/infrastructure/gin"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/handlers"
	"github.com/jonesrussell/site-builder/internal/middleware"
	"github.com/jonesrussell/site-builder/internal/telemetry"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 120 * time.Second // exports and pushes are synchronous
	defaultIdleTimeout  = 120 * time.Second
)

// Handlers groups the route handlers.
type Handlers struct {
	Websites *handlers.WebsiteHandler
	Pages    *handlers.PageHandler
	Menus    *handlers.MenuHandler
	Export   *handlers.ExportHandler
}

// Options configures the server.
type Options struct {
	ServiceName string
	Version     string
	Port        int
	Debug       bool
	CORSOrigins []string
	JWTSecret   string
	MediaRoot   string
	Metrics     *telemetry.Metrics
	// DatabasePing and RedisPing feed the health routes; either may be nil.
	DatabasePing func() error
	RedisPing    func() error
}

// NewServer builds the HTTP server.
func NewServer(opts Options, h Handlers, log logger.Logger) *infragin.Server {
	b := infragin.NewServerBuilder(opts.ServiceName, opts.Port).
		WithLogger(log).
		WithDebug(opts.Debug).
		WithVersion(opts.Version).
		WithCORSOrigins(opts.CORSOrigins).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, opts, h)
		})
	if opts.DatabasePing != nil {
		b = b.WithDatabaseHealthCheck(opts.DatabasePing)
	}
	if opts.RedisPing != nil {
		b = b.WithRedisHealthCheck(opts.RedisPing)
	}
	return b.Build()
}

// SetupRoutes registers every service route on router.
func SetupRoutes(router *gin.Engine, opts Options, h Handlers) {
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
		router.Use(opts.Metrics.Middleware())
	}
	if opts.MediaRoot != "" {
		media := router.Group("/media", middleware.CacheHeaders())
		media.Static("/", opts.MediaRoot)
	}

	v1 := infragin.ProtectedGroup(router, "/api/v1", opts.JWTSecret)

	websites := v1.Group("/websites")
	websites.GET("", h.Websites.List)
	websites.POST("", h.Websites.Create)
	websites.GET("/:id", h.Websites.Get)
	websites.PUT("/:id", h.Websites.Update)
	websites.PUT("/:id/tracking", h.Websites.UpdateTracking)
	websites.PUT("/:id/form", h.Websites.UpdateForm)
	websites.DELETE("/:id", h.Websites.Delete)
	websites.POST("/:id/assets/:kind", h.Websites.UploadAsset)
	websites.GET("/:id/author", h.Websites.GetAuthor)
	websites.PUT("/:id/author", h.Websites.SaveAuthor)

	websites.GET("/:id/pages", h.Pages.List)
	websites.POST("/:id/pages", h.Pages.Create)
	websites.POST("/:id/pages/import", h.Pages.Import)
	websites.GET("/:id/pages/:pageId", h.Pages.Get)
	websites.PUT("/:id/pages/:pageId", h.Pages.Update)
	websites.DELETE("/:id/pages/:pageId", h.Pages.Delete)
	websites.GET("/:id/pages/:pageId/preview", h.Pages.Preview)

	websites.GET("/:id/menus", h.Menus.List)
	websites.PUT("/:id/menus/:type", h.Menus.Save)
	websites.GET("/:id/menus/:type/tree", h.Menus.Tree)

	websites.GET("/:id/export", h.Export.Download)
	websites.GET("/:id/github/repos", h.Export.Repos)
	websites.POST("/:id/github", h.Export.Publish)
}
