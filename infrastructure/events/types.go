// Package events defines the website lifecycle events written to Redis Streams.
package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream carrying website events.
const StreamName = "website-events"

// EventType names a website lifecycle transition.
type EventType string

const (
	WebsiteExported  EventType = "WEBSITE_EXPORTED"
	WebsitePublished EventType = "WEBSITE_PUBLISHED"
)

// WebsiteEvent is the envelope stored under the "event" field of a stream entry.
type WebsiteEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	WebsiteID int64     `json:"website_id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps a fresh envelope.
func New(t EventType, websiteID int64, ownerID string, payload any) WebsiteEvent {
	return WebsiteEvent{
		EventID:   uuid.New(),
		EventType: t,
		WebsiteID: websiteID,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ExportedPayload describes a finished archive export.
type ExportedPayload struct {
	Domain    string `json:"domain"`
	Pages     int    `json:"pages"`
	Bytes     int64  `json:"bytes"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// PublishedPayload describes a finished repository publish.
type PublishedPayload struct {
	Repository string `json:"repository"`
	Committed  bool   `json:"committed"`
	Commit     string `json:"commit,omitempty"`
}
