// Package context holds timeout helpers for infrastructure probes.
package context

import (
	"context"
	"time"
)

// DefaultPingTimeout bounds health and startup pings.
const DefaultPingTimeout = 5 * time.Second

// WithPingTimeout derives a context bounded by DefaultPingTimeout.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}
