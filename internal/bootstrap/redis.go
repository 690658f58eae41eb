package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	infraredis "github.com/jonesrussell/site-builder/infrastructure/redis"
	"github.com/jonesrussell/site-builder/internal/config"
	"github.com/jonesrussell/site-builder/internal/events"
)

// EventSetup is the optional Redis connection and its publisher.
// Both fields are nil when events are disabled.
type EventSetup struct {
	Client    *redis.Client
	Publisher *events.Publisher
}

// Ping reports Redis health.
func (e *EventSetup) Ping() error {
	return e.Client.Ping(context.Background()).Err()
}

func (e *EventSetup) Close() {
	if e.Client != nil {
		_ = e.Client.Close()
	}
}

// SetupEventPublisher creates an optional event publisher if Redis is enabled.
// Events are disabled when Redis is disabled or unavailable.
func SetupEventPublisher(ctx context.Context, cfg *config.Config, log infralogger.Logger) *EventSetup {
	if !cfg.Redis.Enabled {
		return &EventSetup{}
	}

	client, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis not available, events disabled",
			infralogger.Error(err),
		)
		return &EventSetup{}
	}

	log.Info("Event publisher initialized",
		infralogger.String("redis_address", cfg.Redis.Address),
	)
	return &EventSetup{Client: client, Publisher: events.NewPublisher(client, log)}
}
