package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rendis/reqbot/internal/generation"
)

// Reply is one canned oracle answer.
type Reply struct {
	Text  string `yaml:"text"`
	Error string `yaml:"error,omitempty"`
}

// Scripted answers from a fixed table keyed by template ID. It backs the
// "scripted" provider for offline runs and is the oracle used in tests.
type Scripted struct {
	mu      sync.Mutex
	replies map[string]Reply
	calls   map[string]int
}

// NewScripted creates a scripted oracle from a reply table.
func NewScripted(replies map[string]Reply) *Scripted {
	return &Scripted{replies: replies, calls: make(map[string]int)}
}

// LoadScript reads a YAML file mapping template IDs to replies:
//
//	chat_reply:
//	  text: '{"response": "Hello"}'
//	cost_estimation:
//	  error: "quota exceeded"
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oracle script: %w", err)
	}
	replies := make(map[string]Reply)
	if err := yaml.Unmarshal(data, &replies); err != nil {
		return nil, fmt.Errorf("parse oracle script %s: %w", path, err)
	}
	return NewScripted(replies), nil
}

// Complete returns the canned reply for req.TemplateID.
func (s *Scripted) Complete(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls[req.TemplateID]++
	reply, ok := s.replies[req.TemplateID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no scripted reply for template %q", req.TemplateID)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	return &generation.Response{Text: reply.Text, Model: "scripted"}, nil
}

// Calls reports how many times templateID was requested.
func (s *Scripted) Calls(templateID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[templateID]
}
