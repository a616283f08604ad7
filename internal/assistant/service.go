// Package assistant is the session-level facade shared by the HTTP API, the
// MCP server and the CLI. It threads each step's state through hand-off
// storage: chat turns append to the session, extraction stores the
// requirements, and reports are built from what was stored.
package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/internal/report"
	"github.com/rendis/reqbot/internal/streaming"
	"github.com/rendis/reqbot/pkg/schema"
)

// Conversation holds the chat-side flows.
type Conversation interface {
	ChatReply(ctx context.Context, history []schema.Message, message string) (string, error)
	ExtractRequirements(ctx context.Context, messages []schema.Message) ([]schema.Requirement, error)
}

// Service runs the chat, extraction and report steps against stored sessions.
type Service struct {
	conv    Conversation
	store   handoff.Store
	reports *report.Builder
	hub     streaming.Hub
	logger  *slog.Logger

	locks sync.Map // session id -> *sync.Mutex
}

// New creates a Service. hub and logger may be nil.
func New(conv Conversation, store handoff.Store, reports *report.Builder, hub streaming.Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{conv: conv, store: store, reports: reports, hub: hub, logger: logger}
}

// Store exposes the hand-off store.
func (s *Service) Store() handoff.Store { return s.store }

// Hub exposes the event hub, possibly nil.
func (s *Service) Hub() streaming.Hub { return s.hub }

// CreateSession stores a new empty session.
func (s *Service) CreateSession(ctx context.Context) (*handoff.Session, error) {
	sess := handoff.NewSession()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.InfoContext(logging.WithSessionID(ctx, sess.ID), "session created")
	return sess, nil
}

// Session loads a session.
func (s *Service) Session(ctx context.Context, id string) (*handoff.Session, error) {
	return s.store.Load(ctx, id)
}

// Sessions lists stored session IDs.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)
	return nil
}

// Purge removes sessions idle since before.
func (s *Service) Purge(ctx context.Context, before time.Time) (int, error) {
	return s.store.Purge(ctx, before)
}

// Chat sends one user message and returns the assistant's reply. Both
// messages are appended to the session only when the reply succeeds.
func (s *Service) Chat(ctx context.Context, id, message string) (string, error) {
	ctx = logging.WithSessionID(ctx, id)
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	reply, err := s.conv.ChatReply(ctx, sess.Messages, message)
	if err != nil {
		return "", err
	}

	user := sess.AddMessage(schema.RoleUser, message)
	ai := sess.AddMessage(schema.RoleAI, reply)
	if err := s.store.Save(ctx, sess); err != nil {
		return "", err
	}
	s.publish(ctx, id, schema.EventMessageAdded, []schema.Message{user, ai})
	return reply, nil
}

// Extract derives requirements from the session transcript and stores them,
// replacing any earlier extraction.
func (s *Service) Extract(ctx context.Context, id string) ([]schema.Requirement, error) {
	ctx = logging.WithSessionID(ctx, id)
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	reqs, err := s.conv.ExtractRequirements(ctx, sess.Messages)
	if err != nil {
		return nil, err
	}
	sess.Requirements = reqs
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.publish(ctx, id, schema.EventRequirementsExtracted, map[string]any{"count": len(reqs)})
	return reqs, nil
}

// Report builds the full report from the stored requirements.
func (s *Service) Report(ctx context.Context, id string) (*schema.Report, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reports.Build(ctx, sess)
}

// RetrySection rebuilds one report section.
func (s *Service) RetrySection(ctx context.Context, id string, sec schema.Section) (schema.SectionResult, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return schema.SectionResult{}, err
	}
	return s.reports.Section(ctx, sess, sec)
}

// lock serializes read-modify-write cycles on one session in this process.
func (s *Service) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) publish(ctx context.Context, id, typ string, payload any) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(context.WithoutCancel(ctx), streaming.Event{SessionID: id, Type: typ, Payload: payload}); err != nil {
		s.logger.DebugContext(ctx, "publish failed", "event", typ, "error", err)
	}
}
