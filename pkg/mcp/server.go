package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/reqbot/internal/assistant"
)

// ReqbotServerDeps holds the dependencies for creating a ReqbotServer.
type ReqbotServerDeps struct {
	Service *assistant.Service
	Logger  *slog.Logger
	Version string
}

// ReqbotServer wraps an MCP server with reqbot-specific tool handlers.
type ReqbotServer struct {
	service   *assistant.Service
	logger    *slog.Logger
	notifier  *Notifier
	mcpServer *server.MCPServer
}

// NewReqbotServer creates a new ReqbotServer with all 5 tools registered.
func NewReqbotServer(deps ReqbotServerDeps) *ReqbotServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &ReqbotServer{
		service: deps.Service,
		logger:  logger,
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		if s.notifier != nil {
			s.notifier.Drop(session.SessionID())
		}
	})

	mcpSrv := server.NewMCPServer(
		"reqbot",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("ReqBot elicits software requirements through conversation. Use reqbot.chat to interview the stakeholder, reqbot.extract to derive requirements from the transcript, reqbot.report to synthesize the summary, activity diagram, cost estimate and references, reqbot.render_diagram to render a structured diagram, and reqbot.session to manage sessions."),
	)
	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv

	if deps.Service != nil && deps.Service.Hub() != nil {
		s.notifier = NewNotifier(deps.Service.Hub(), mcpSrv.SendNotificationToSpecificClient, logger)
	}
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *ReqbotServer) Serve(ctx context.Context) error {
	defer s.Close()
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close stops all event forwarding.
func (s *ReqbotServer) Close() {
	if s.notifier != nil {
		s.notifier.Close()
	}
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *ReqbotServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *ReqbotServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: renderDiagramTool(), Handler: s.handleRenderDiagram},
		{Tool: chatTool(), Handler: s.handleChat},
		{Tool: extractTool(), Handler: s.handleExtract},
		{Tool: reportTool(), Handler: s.handleReport},
		{Tool: sessionTool(), Handler: s.handleSession},
	}
}

// --- Tool definitions ---

func renderDiagramTool() mcp.Tool {
	return mcp.NewTool("reqbot.render_diagram",
		mcp.WithDescription("Render a structured activity diagram as Mermaid, ASCII, SVG or a PNG image"),
		mcp.WithObject("diagram", mcp.Required(), mcp.Description("Diagram object with nodes (id, kind, label) and edges (from, to, label)")),
		mcp.WithString("format",
			mcp.Enum("mermaid", "ascii", "svg", "png"),
			mcp.Description("Output format (default: mermaid)"),
		),
	)
}

func chatTool() mcp.Tool {
	return mcp.NewTool("reqbot.chat",
		mcp.WithDescription("Send a stakeholder message and get the assistant's next elicitation question"),
		mcp.WithString("message", mcp.Required(), mcp.Description("The stakeholder's message")),
		mcp.WithString("session_id", mcp.Description("Session to continue (default: start a new session)")),
	)
}

func extractTool() mcp.Tool {
	return mcp.NewTool("reqbot.extract",
		mcp.WithDescription("Extract structured requirements from a session transcript"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session whose transcript is analysed")),
	)
}

func reportTool() mcp.Tool {
	return mcp.NewTool("reqbot.report",
		mcp.WithDescription("Generate the requirements report, or regenerate a single section"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session with extracted requirements")),
		mcp.WithString("section",
			mcp.Enum("summary", "diagram", "cost", "references"),
			mcp.Description("Regenerate only this section"),
		),
	)
}

func sessionTool() mcp.Tool {
	return mcp.NewTool("reqbot.session",
		mcp.WithDescription("Create, inspect, list or delete elicitation sessions"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("create", "get", "list", "delete"),
			mcp.Description("Operation to perform"),
		),
		mcp.WithString("session_id", mcp.Description("Target session (required for get and delete)")),
	)
}
