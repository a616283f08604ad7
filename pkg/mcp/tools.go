package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/pkg/schema"
)

// handleRenderDiagram renders a caller-supplied diagram.
func (s *ReqbotServer) handleRenderDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["diagram"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("diagram is required"), nil
	}
	d, err := decodeDiagram(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid diagram: %v", err)), nil
	}
	format, err := diagram.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return toolError("render failed", err), nil
	}

	out, err := diagram.RenderFormat(ctx, d, format)
	if err != nil {
		return toolError("render failed", err), nil
	}

	switch format {
	case diagram.FormatPNG:
		encoded := base64.StdEncoding.EncodeToString(out.Image)
		return mcp.NewToolResultImage(diagnosticsText(out.Diagnostics), encoded, "image/png"), nil
	case diagram.FormatSVG:
		return marshalResult(map[string]any{
			"format":      out.Format,
			"content":     string(out.Image),
			"diagnostics": out.Diagnostics,
		})
	default:
		return marshalResult(map[string]any{
			"format":      out.Format,
			"content":     out.Markup,
			"diagnostics": out.Diagnostics,
		})
	}
}

// handleChat continues a session, starting one when no session_id is given.
func (s *ReqbotServer) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil || message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		sess, createErr := s.service.CreateSession(ctx)
		if createErr != nil {
			return toolError("failed to create session", createErr), nil
		}
		sessionID = sess.ID
	}
	s.captureSession(ctx, sessionID)

	reply, err := s.service.Chat(ctx, sessionID, message)
	if err != nil {
		return toolError("chat failed", err), nil
	}
	return marshalResult(map[string]any{
		"session_id": sessionID,
		"reply":      reply,
	})
}

// handleExtract derives requirements from the session transcript.
func (s *ReqbotServer) handleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	s.captureSession(ctx, sessionID)

	reqs, err := s.service.Extract(ctx, sessionID)
	if err != nil {
		return toolError("extraction failed", err), nil
	}
	return marshalResult(map[string]any{
		"session_id":           sessionID,
		"requirements":         reqs,
		"requirements_by_type": schema.GroupRequirements(reqs),
	})
}

// handleReport builds the full report, or one section when section is set.
// Section failures are part of the result, not tool errors.
func (s *ReqbotServer) handleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	s.captureSession(ctx, sessionID)

	if name := req.GetString("section", ""); name != "" {
		sec, parseErr := schema.ParseSection(name)
		if parseErr != nil {
			return toolError("invalid section", parseErr), nil
		}
		res, secErr := s.service.RetrySection(ctx, sessionID, sec)
		if secErr != nil {
			return toolError("section failed", secErr), nil
		}
		return marshalResult(map[string]any{
			"session_id": sessionID,
			"section":    sec,
			"result":     res,
		})
	}

	rep, err := s.service.Report(ctx, sessionID)
	if err != nil {
		return toolError("report failed", err), nil
	}
	return marshalResult(rep)
}

// handleSession manages the session lifecycle.
func (s *ReqbotServer) handleSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}
	sessionID := req.GetString("session_id", "")

	switch action {
	case "create":
		sess, createErr := s.service.CreateSession(ctx)
		if createErr != nil {
			return toolError("failed to create session", createErr), nil
		}
		s.captureSession(ctx, sess.ID)
		return marshalResult(map[string]any{"session_id": sess.ID, "created_at": sess.CreatedAt})

	case "list":
		ids, listErr := s.service.Sessions(ctx)
		if listErr != nil {
			return toolError("failed to list sessions", listErr), nil
		}
		if ids == nil {
			ids = []string{}
		}
		return marshalResult(map[string]any{"sessions": ids})

	case "get":
		if sessionID == "" {
			return mcp.NewToolResultError("session_id is required for get"), nil
		}
		sess, getErr := s.service.Session(ctx, sessionID)
		if getErr != nil {
			return toolError("session lookup failed", getErr), nil
		}
		return marshalResult(map[string]any{
			"session":    sess,
			"transcript": sess.Transcript(),
		})

	case "delete":
		if sessionID == "" {
			return mcp.NewToolResultError("session_id is required for delete"), nil
		}
		if delErr := s.service.DeleteSession(ctx, sessionID); delErr != nil {
			return toolError("delete failed", delErr), nil
		}
		if s.notifier != nil {
			s.notifier.Unwatch(sessionID)
		}
		return marshalResult(map[string]any{"ok": true, "session_id": sessionID})

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q: must be create, get, list, or delete", action)), nil
	}
}

// --- Helpers ---

// captureSession routes the session's events to the calling MCP client.
func (s *ReqbotServer) captureSession(ctx context.Context, sessionID string) {
	if s.notifier == nil {
		return
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		if err := s.notifier.Watch(sessionID, session.SessionID()); err != nil {
			s.logger.DebugContext(ctx, "event forwarding unavailable", "session_id", sessionID, "error", err)
		}
	}
}

// decodeDiagram accepts the diagram either as a JSON object or as a JSON
// string.
func decodeDiagram(raw any) (*diagram.Diagram, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = b
	}
	var d diagram.Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func diagnosticsText(issues []schema.ValidationIssue) string {
	if len(issues) == 0 {
		return "rendered diagram"
	}
	return fmt.Sprintf("rendered diagram (%d warnings, first: %s)", len(issues), issues[0].Message)
}

// toolError reports err as a tool-level error carrying its code.
func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
