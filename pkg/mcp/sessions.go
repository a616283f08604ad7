package mcp

import (
	"sort"
	"sync"
)

// SessionRegistry maps reqbot session IDs to the MCP client session that
// last used them. Populated whenever a tool call names a session.
type SessionRegistry struct {
	mu      sync.RWMutex
	clients map[string]string // reqbot session → MCP client session
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{clients: make(map[string]string)}
}

// Register associates a reqbot session with an MCP client. It reports
// whether the mapping changed; a second client taking over a session
// overwrites the first.
func (r *SessionRegistry) Register(sessionID, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[sessionID] == clientID {
		return false
	}
	r.clients[sessionID] = clientID
	return true
}

// ClientFor returns the MCP client watching the given reqbot session.
func (r *SessionRegistry) ClientFor(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.clients[sessionID]
	return cid, ok
}

// Remove deletes every mapping held by the given MCP client and returns the
// released reqbot session IDs in sorted order.
func (r *SessionRegistry) Remove(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released []string
	for sid, cid := range r.clients {
		if cid == clientID {
			delete(r.clients, sid)
			released = append(released, sid)
		}
	}
	sort.Strings(released)
	return released
}

// Forget drops the mapping for one reqbot session.
func (r *SessionRegistry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, sessionID)
}
