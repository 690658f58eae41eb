package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/config"
	"github.com/jonesrussell/site-builder/internal/events"
	"github.com/jonesrussell/site-builder/internal/export"
	"github.com/jonesrussell/site-builder/internal/github"
	"github.com/jonesrussell/site-builder/internal/markup"
	"github.com/jonesrussell/site-builder/internal/media"
	"github.com/jonesrussell/site-builder/internal/repository"
	"github.com/jonesrussell/site-builder/internal/sink"
	"github.com/jonesrussell/site-builder/internal/snapshot"
	"github.com/jonesrussell/site-builder/internal/telemetry"
)

// NewGitHubClient returns nil when no token is configured.
func NewGitHubClient(cfg *config.Config, log infralogger.Logger) *github.Client {
	if cfg.GitHub.Token == "" {
		return nil
	}
	return github.NewClient(github.Config{
		BaseURL:           cfg.GitHub.APIURL,
		Token:             cfg.GitHub.Token,
		Timeout:           cfg.GitHub.Timeout,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
	}, log)
}

// SetupExportService assembles the export pipeline. publisher and metrics may be nil.
func SetupExportService(
	cfg *config.Config,
	db *sqlx.DB,
	publisher *events.Publisher,
	metrics *telemetry.Metrics,
	log infralogger.Logger,
) (*export.Service, error) {
	generator, err := snapshot.NewGenerator(cfg.Export.ListenAddr, cfg.Export.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("load bundle templates: %w", err)
	}

	// Branding assets and page images have separate download budgets.
	mediaFetcher := media.NewHTTPFetcher(cfg.Export.MediaTimeout)
	imageFetcher := mediaFetcher.WithTimeout(cfg.Export.ImageTimeout)

	websites := repository.NewWebsiteRepository(db)
	pages := repository.NewPageRepository(db)

	deps := export.Deps{
		Stores: export.Stores{
			Websites: websites,
			Pages:    pages,
			Menus:    repository.NewMenuRepository(db),
			Authors:  repository.NewAuthorRepository(db),
		},
		Resolver: media.NewResolver(mediaFetcher, media.ResolverConfig{
			Root:    cfg.Media.Root,
			BaseURL: cfg.Media.BaseURL,
		}, log, metrics),
		Rewriter:  markup.NewRewriter(imageFetcher, nil, log),
		Generator: generator,
		Builder:   snapshot.Builder{FormAPIKey: cfg.Export.Web3FormsKey},
		Events:    publisher,
		Metrics:   metrics,
		Logger:    log,
	}
	if client := NewGitHubClient(cfg, log); client != nil {
		deps.GitHub = client
		deps.Publisher = sink.NewPublisher(log, cfg.GitHub.PushTimeout)
	}

	return export.NewService(export.Config{
		WorkDir:        cfg.Export.WorkDir,
		MediaRoot:      cfg.Media.Root,
		DefaultHeading: cfg.Media.DefaultHeading,
		GitHubToken:    cfg.GitHub.Token,
	}, deps), nil
}
