// Package streaming fans out session progress events to live subscribers
// such as the SSE endpoint.
package streaming

import (
	"context"
	"time"
)

// Event is a progress notification for one session.
type Event struct {
	SessionID string    `json:"session_id"`
	Section   string    `json:"section,omitempty"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Time      time.Time `json:"time"`
}

// Filter selects the events a subscriber receives. Zero fields match all.
type Filter struct {
	SessionID string   `json:"session_id,omitempty"`
	Types     []string `json:"types,omitempty"`
}

// Hub provides pub/sub for session events.
type Hub interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of matching events and a cancel func that
	// unregisters the subscriber and closes the channel.
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}
