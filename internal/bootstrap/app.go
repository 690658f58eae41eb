// Package bootstrap handles application initialization and lifecycle management
// for the site-builder service.
package bootstrap

import (
	"context"
	"fmt"

	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/infrastructure/profiling"
	"github.com/jonesrussell/site-builder/internal/telemetry"
)

// Start initializes and runs the site-builder API.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	profiling.StartPprofServer(log)

	ctx := context.Background()

	// Phase 2: Setup database
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", infralogger.Error(closeErr))
		}
	}()

	// Phase 3: Setup event publisher (optional)
	events := SetupEventPublisher(ctx, cfg, log)
	defer events.Close()

	// Phase 4: Export pipeline
	metrics := telemetry.New()
	exports, err := SetupExportService(cfg, db, events.Publisher, metrics, log)
	if err != nil {
		return fmt.Errorf("failed to setup export pipeline: %w", err)
	}

	// Phase 5: Setup and run HTTP server
	server := SetupHTTPServer(cfg, db, events, exports, metrics, log)
	if runErr := server.Run(); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
