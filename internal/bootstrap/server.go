package bootstrap

import (
	"github.com/jmoiron/sqlx"
	infragin "github.com/jonesrussell/site-builder/infrastructure/gin"
	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/api"
	"github.com/jonesrussell/site-builder/internal/config"
	"github.com/jonesrussell/site-builder/internal/export"
	"github.com/jonesrussell/site-builder/internal/handlers"
	"github.com/jonesrussell/site-builder/internal/repository"
	"github.com/jonesrussell/site-builder/internal/telemetry"
)

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	db *sqlx.DB,
	events *EventSetup,
	exports *export.Service,
	metrics *telemetry.Metrics,
	log infralogger.Logger,
) *infragin.Server {
	websites := repository.NewWebsiteRepository(db)
	pages := repository.NewPageRepository(db)

	var repos handlers.RepoLister
	if client := NewGitHubClient(cfg, log); client != nil {
		repos = client
	}

	h := api.Handlers{
		Websites: handlers.NewWebsiteHandler(websites, repository.NewAuthorRepository(db), handlers.UploadConfig{
			MediaRoot: cfg.Media.Root,
			MaxBytes:  cfg.Media.MaxUploadBytes,
		}, log),
		Pages:  handlers.NewPageHandler(websites, pages, log),
		Menus:  handlers.NewMenuHandler(websites, repository.NewMenuRepository(db), pages, log),
		Export: handlers.NewExportHandler(websites, exports, repos, log),
	}

	opts := api.Options{
		ServiceName:  cfg.Service.Name,
		Version:      cfg.Service.Version,
		Port:         cfg.Service.Port,
		Debug:        cfg.Service.Debug,
		CORSOrigins:  cfg.Service.CORSOrigins,
		JWTSecret:    cfg.Auth.JWTSecret,
		MediaRoot:    cfg.Media.Root,
		Metrics:      metrics,
		DatabasePing: db.Ping,
	}
	if events.Client != nil {
		opts.RedisPing = events.Ping
	}
	return api.NewServer(opts, h, log)
}
