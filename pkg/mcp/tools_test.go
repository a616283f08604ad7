package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/assistant/assistanttest"
	"github.com/rendis/reqbot/internal/generation"
	"github.com/rendis/reqbot/internal/oracle"
	"github.com/rendis/reqbot/pkg/schema"
)

func newTestServer(t *testing.T, replies map[string]oracle.Reply) (*ReqbotServer, *assistanttest.Fixture) {
	t.Helper()
	fx := assistanttest.New(t, replies)
	s := NewReqbotServer(ReqbotServerDeps{Service: fx.Service})
	t.Cleanup(s.Close)
	return s, fx
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func diagramArg(t *testing.T) map[string]any {
	t.Helper()
	var d map[string]any
	require.NoError(t, json.Unmarshal([]byte(assistanttest.DiagramReply), &d))
	return d
}

// startSession chats once and extracts, returning the session ID.
func startSession(t *testing.T, s *ReqbotServer) string {
	t.Helper()
	ctx := context.Background()

	result, err := s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{"message": "I need a booking system"}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var chat struct {
		SessionID string `json:"session_id"`
	}
	unmarshalResult(t, result, &chat)
	require.NotEmpty(t, chat.SessionID)

	result, err = s.handleExtract(ctx, buildRequest("reqbot.extract", map[string]any{"session_id": chat.SessionID}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	return chat.SessionID
}

func TestRenderDiagramTool(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()

	result, err := s.handleRenderDiagram(ctx, buildRequest("reqbot.render_diagram", map[string]any{
		"diagram": diagramArg(t),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out struct {
		Format      string                   `json:"format"`
		Content     string                   `json:"content"`
		Diagnostics []schema.ValidationIssue `json:"diagnostics"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, "mermaid", out.Format)
	lines := strings.Split(strings.TrimSuffix(out.Content, "\n"), "\n")
	assert.Equal(t, "flowchart TD", lines[0])
	assert.Len(t, lines, 9)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, schema.ErrCodeDanglingEdge, out.Diagnostics[0].Code)
}

func TestRenderDiagramTool_StringDiagramAndASCII(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())

	result, err := s.handleRenderDiagram(context.Background(), buildRequest("reqbot.render_diagram", map[string]any{
		"diagram": assistanttest.DiagramReply,
		"format":  "ascii",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, extractText(t, result), "Transitions:")
}

func TestRenderDiagramTool_PNG(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())

	result, err := s.handleRenderDiagram(context.Background(), buildRequest("reqbot.render_diagram", map[string]any{
		"diagram": diagramArg(t),
		"format":  "png",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var image *mcp.ImageContent
	for _, c := range result.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			image = &ic
		}
	}
	require.NotNil(t, image)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.NotEmpty(t, image.Data)
}

func TestRenderDiagramTool_Errors(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing", map[string]any{}, "diagram is required"},
		{"not json", map[string]any{"diagram": "{nodes"}, "invalid diagram"},
		{"empty", map[string]any{"diagram": map[string]any{"nodes": []any{}, "edges": []any{}}}, schema.ErrCodeEmptyDiagram},
		{"no start", map[string]any{"diagram": map[string]any{
			"nodes": []any{
				map[string]any{"id": "A", "kind": "action", "label": "x"},
				map[string]any{"id": "D", "kind": "end", "label": "y"},
			},
			"edges": []any{},
		}}, schema.ErrCodeMalformedDiagram},
		{"bad format", map[string]any{"diagram": assistanttest.DiagramReply, "format": "gif"}, schema.ErrCodeValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleRenderDiagram(ctx, buildRequest("reqbot.render_diagram", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestChatTool(t *testing.T) {
	s, fx := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()

	result, err := s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{"message": "I need a booking system"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, "Who will use the system?", out.Reply)

	result, err = s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{
		"session_id": out.SessionID,
		"message":    "Patients and clinic staff",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	sess, err := fx.Store.Load(ctx, out.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 4)
	assert.Equal(t, schema.RoleUser, sess.Messages[2].Role)
	assert.Equal(t, "Patients and clinic staff", sess.Messages[2].Text)
}

func TestChatTool_Errors(t *testing.T) {
	replies := assistanttest.Replies()
	replies[generation.TemplateChatReply] = oracle.Reply{Error: "model unavailable"}
	s, _ := newTestServer(t, replies)
	ctx := context.Background()

	result, err := s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "message is required")

	result, err = s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{
		"session_id": "missing",
		"message":    "hi",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeNotFound)

	result, err = s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{"message": "hi"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeGeneration)
}

func TestExtractTool(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()

	result, err := s.handleChat(ctx, buildRequest("reqbot.chat", map[string]any{"message": "I need a booking system"}))
	require.NoError(t, err)
	var chat struct {
		SessionID string `json:"session_id"`
	}
	unmarshalResult(t, result, &chat)

	result, err = s.handleExtract(ctx, buildRequest("reqbot.extract", map[string]any{"session_id": chat.SessionID}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Requirements []schema.Requirement                                `json:"requirements"`
		ByType       map[schema.RequirementType][]schema.Requirement `json:"requirements_by_type"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Requirements, 2)
	assert.Equal(t, "FR-1", out.Requirements[0].ID)
	assert.Len(t, out.ByType[schema.RequirementFunctional], 1)
	assert.Len(t, out.ByType[schema.RequirementNonFunctional], 1)

	result, err = s.handleExtract(ctx, buildRequest("reqbot.extract", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReportTool(t *testing.T) {
	replies := assistanttest.Replies()
	replies[generation.TemplateCostEstimation] = oracle.Reply{Error: "quota exceeded"}
	s, fx := newTestServer(t, replies)
	ctx := context.Background()
	id := startSession(t, s)

	result, err := s.handleReport(ctx, buildRequest("reqbot.report", map[string]any{"session_id": id}))
	require.NoError(t, err)
	require.False(t, result.IsError, "a failing section must not fail the report")

	var rep schema.Report
	unmarshalResult(t, result, &rep)
	assert.Equal(t, id, rep.SessionID)
	require.Len(t, rep.Sections, 4)
	assert.False(t, rep.Sections[schema.SectionCost].OK())
	assert.Equal(t, schema.ErrCodeGeneration, rep.Sections[schema.SectionCost].Code)
	assert.True(t, rep.Sections[schema.SectionSummary].OK())
	assert.True(t, strings.HasPrefix(rep.Sections[schema.SectionDiagram].Content, "flowchart TD\n"))

	result, err = s.handleReport(ctx, buildRequest("reqbot.report", map[string]any{
		"session_id": id,
		"section":    "references",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var sec struct {
		Section schema.Section       `json:"section"`
		Result  schema.SectionResult `json:"result"`
	}
	unmarshalResult(t, result, &sec)
	assert.Equal(t, schema.SectionReferences, sec.Section)
	assert.Contains(t, sec.Result.Content, "FHIR")
	assert.Equal(t, 2, fx.Oracle.Calls(generation.TemplateReferences))

	result, err = s.handleReport(ctx, buildRequest("reqbot.report", map[string]any{
		"session_id": id,
		"section":    "appendix",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReportTool_WithoutRequirements(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()

	result, err := s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "create"}))
	require.NoError(t, err)
	var created struct {
		SessionID string `json:"session_id"`
	}
	unmarshalResult(t, result, &created)

	result, err = s.handleReport(ctx, buildRequest("reqbot.report", map[string]any{"session_id": created.SessionID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeValidation)
}

func TestSessionTool(t *testing.T) {
	s, _ := newTestServer(t, assistanttest.Replies())
	ctx := context.Background()
	id := startSession(t, s)

	result, err := s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "list"}))
	require.NoError(t, err)
	var list struct {
		Sessions []string `json:"sessions"`
	}
	unmarshalResult(t, result, &list)
	assert.Equal(t, []string{id}, list.Sessions)

	result, err = s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "get", "session_id": id}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var got struct {
		Transcript string `json:"transcript"`
	}
	unmarshalResult(t, result, &got)
	assert.Equal(t, "User: I need a booking system\nAI: Who will use the system?", got.Transcript)

	result, err = s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "delete", "session_id": id}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "get", "session_id": id}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), schema.ErrCodeNotFound)

	result, err = s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "delete"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleSession(ctx, buildRequest("reqbot.session", map[string]any{"action": "rename"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "unknown action")
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
