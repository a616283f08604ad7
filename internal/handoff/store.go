// Package handoff holds conversation sessions between the chat step and the
// report step. A session carries the transcript and, once extracted, the
// requirements the report is built from.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/reqbot/pkg/schema"
)

// DefaultMaxBytes bounds the encoded size of a single session.
const DefaultMaxBytes = 1 << 20

// Session is the hand-off record.
type Session struct {
	ID           string               `json:"id"`
	Messages     []schema.Message     `json:"messages"`
	Requirements []schema.Requirement `json:"requirements"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewSession returns an empty session with a fresh ID.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message authored by role and returns it.
func (s *Session) AddMessage(role schema.Role, text string) schema.Message {
	m := schema.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	s.Messages = append(s.Messages, m)
	return m
}

// Transcript renders the session's messages in transcript form.
func (s *Session) Transcript() string {
	return schema.FormatTranscript(s.Messages)
}

// Store persists sessions. Implementations are safe for concurrent use.
// Missing sessions are reported as NOT_FOUND, every other failure as
// STORAGE_ERROR.
type Store interface {
	// Save creates or replaces the session, stamping UpdatedAt.
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// List returns the IDs of live sessions in ascending order.
	List(ctx context.Context) ([]string, error)
	// Purge removes sessions last updated before the given time and
	// returns how many were removed.
	Purge(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Option tunes a backend. Options a backend has no use for are ignored.
type Option func(*options)

type options struct {
	maxBytes int
	ttl      time.Duration
	prefix   string
}

func buildOptions(opts []Option) options {
	o := options{maxBytes: DefaultMaxBytes, prefix: "reqbot:session:"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxBytes caps the encoded session size. Zero or less disables the cap.
func WithMaxBytes(n int) Option {
	return func(o *options) { o.maxBytes = n }
}

// WithTTL sets a native expiry on stored sessions (Redis only).
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithPrefix sets the key prefix for sessions (Redis only).
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// encode stamps and serializes s, enforcing the size cap.
func encode(s *Session, maxBytes int) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "session id is required")
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	data, err := json.Marshal(s)
	if err != nil {
		return nil, storageError("encode session", err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, schema.NewErrorf(schema.ErrCodeStorage,
			"session %q is %d bytes, limit is %d", s.ID, len(data), maxBytes).
			WithDetails(map[string]any{"session_id": s.ID, "size": len(data), "max_bytes": maxBytes})
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, storageError("decode session", err)
	}
	return &s, nil
}

func notFound(id string) *schema.ReqbotError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "session %q not found", id)
}

func storageError(op string, err error) *schema.ReqbotError {
	return schema.NewError(schema.ErrCodeStorage, fmt.Sprintf("%s: %v", op, err)).WithCause(err)
}
