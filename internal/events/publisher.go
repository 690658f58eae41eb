// Package events publishes website lifecycle events to Redis Streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	infraevents "github.com/jonesrussell/site-builder/infrastructure/events"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
)

const asyncPublishTimeout = 5 * time.Second

// Publisher writes website events to the stream. A nil Publisher is a
// valid no-op, used when Redis is disabled.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher returns nil when client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client, log: log}
}

// Publish appends event to the stream and returns the entry id.
func (p *Publisher) Publish(ctx context.Context, event infraevents.WebsiteEvent) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: infraevents.StreamName,
		Values: map[string]any{"event": string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to stream: %w", err)
	}

	p.log.Debug("Published website event",
		logger.String("event_type", string(event.EventType)),
		logger.Int64("website_id", event.WebsiteID),
		logger.String("stream_id", id),
	)
	return id, nil
}

// PublishAsync publishes in the background. Failures are logged.
func (p *Publisher) PublishAsync(event infraevents.WebsiteEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if _, err := p.Publish(ctx, event); err != nil {
			p.log.Error("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.Int64("website_id", event.WebsiteID),
				logger.Error(err),
			)
		}
	}()
}
