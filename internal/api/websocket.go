package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rendis/reqbot/pkg/schema"
)

const wsIdleTimeout = 10 * time.Minute

// wsReply is one outgoing frame: content or error, never both.
type wsReply struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// handleWebSocket carries the chat over a websocket. Each inbound
// {"message": ...} frame gets one reply frame, in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Service.Session(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var req messageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.deps.Logger.WarnContext(ctx, "websocket closed", "session_id", id, "error", err)
			}
			return
		}

		var out wsReply
		reply, err := s.deps.Service.Chat(ctx, id, req.Message)
		if err != nil {
			out = wsReply{Error: err.Error(), Code: schema.ErrorCode(err)}
		} else {
			out = wsReply{Content: reply}
		}
		if err := conn.WriteJSON(out); err != nil {
			s.deps.Logger.WarnContext(ctx, "websocket write failed", "session_id", id, "error", err)
			return
		}
	}
}
