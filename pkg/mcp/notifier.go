package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/reqbot/internal/streaming"
)

// SendFunc delivers a notification to one MCP client session.
type SendFunc func(clientID, method string, params map[string]any) error

// Notifier forwards session events from the hub to the MCP client that is
// driving the session, as notifications/message log entries.
type Notifier struct {
	hub      streaming.Hub
	send     SendFunc
	sessions *SessionRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	cancels map[string]func()
	closed  bool
}

// NewNotifier creates a notifier that pushes hub events through send.
func NewNotifier(hub streaming.Hub, send SendFunc, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		hub:      hub,
		send:     send,
		sessions: NewSessionRegistry(),
		logger:   logger,
		cancels:  make(map[string]func()),
	}
}

// Watch starts forwarding events of sessionID to clientID. Watching a
// session that is already forwarded only retargets it.
func (n *Notifier) Watch(sessionID, clientID string) error {
	if sessionID == "" || clientID == "" {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}

	n.sessions.Register(sessionID, clientID)
	if _, ok := n.cancels[sessionID]; ok {
		return nil
	}
	ch, cancel, err := n.hub.Subscribe(context.Background(), streaming.Filter{SessionID: sessionID})
	if err != nil {
		n.sessions.Forget(sessionID)
		return err
	}
	n.cancels[sessionID] = cancel
	go n.forward(sessionID, ch)
	return nil
}

// Drop stops forwarding every session held by clientID.
func (n *Notifier) Drop(clientID string) {
	released := n.sessions.Remove(clientID)
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sid := range released {
		if cancel, ok := n.cancels[sid]; ok {
			cancel()
			delete(n.cancels, sid)
		}
	}
}

// Unwatch stops forwarding one session.
func (n *Notifier) Unwatch(sessionID string) {
	n.sessions.Forget(sessionID)
	n.mu.Lock()
	defer n.mu.Unlock()
	if cancel, ok := n.cancels[sessionID]; ok {
		cancel()
		delete(n.cancels, sessionID)
	}
}

// Watching returns the number of forwarded sessions.
func (n *Notifier) Watching() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cancels)
}

// Close stops all forwarding. Later Watch calls are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for sid, cancel := range n.cancels {
		cancel()
		delete(n.cancels, sid)
	}
}

func (n *Notifier) forward(sessionID string, ch <-chan streaming.Event) {
	for ev := range ch {
		clientID, ok := n.sessions.ClientFor(sessionID)
		if !ok {
			continue
		}
		err := n.send(clientID, "notifications/message", map[string]any{
			"level":  "info",
			"logger": "reqbot",
			"data":   ev,
		})
		if errors.Is(err, server.ErrSessionNotFound) {
			// Client went away between lookup and send.
			n.Drop(clientID)
			continue
		}
		if err != nil {
			n.logger.Debug("notification failed", "session_id", sessionID, "event", ev.Type, "error", err)
		}
	}
}
