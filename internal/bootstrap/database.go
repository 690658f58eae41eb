package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/config"
	"github.com/jonesrussell/site-builder/internal/database"
)

// SetupDatabase creates a database connection.
func SetupDatabase(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*sqlx.DB, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database connected",
		infralogger.String("host", cfg.Database.Host),
		infralogger.String("database", cfg.Database.Database),
	)
	return db, nil
}
