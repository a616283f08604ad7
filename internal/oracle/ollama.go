package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"

	"github.com/rendis/reqbot/internal/generation"
)

// Ollama talks to a local or remote Ollama server. The output schema is
// passed as the chat "format" so the server constrains decoding to it.
type Ollama struct {
	client *ollama.Client
	cfg    Config
	logger *slog.Logger
}

// NewOllama creates an Ollama transport. An empty BaseURL falls back to
// OLLAMA_HOST or the default local address.
func NewOllama(cfg Config, logger *slog.Logger) (*Ollama, error) {
	var client *ollama.Client
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ollama base url: %w", err)
		}
		client = ollama.NewClient(u, http.DefaultClient)
	} else {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		client = c
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
	}
	return &Ollama{client: client, cfg: cfg, logger: logger}, nil
}

// Complete sends one non-streaming chat request.
func (o *Ollama) Complete(ctx context.Context, req *generation.Request) (*generation.Response, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	messages := make([]ollama.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    o.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Format:   req.Schema,
		Options: map[string]any{
			"temperature": o.cfg.Temperature,
		},
	}

	var (
		content strings.Builder
		last    ollama.ChatResponse
	)
	err := o.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		last = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat (%s): %w", describe(o.cfg), err)
	}

	o.logger.DebugContext(ctx, "ollama reply",
		"model", last.Model, "prompt_tokens", last.PromptEvalCount, "completion_tokens", last.EvalCount)

	return &generation.Response{
		Text:             content.String(),
		Model:            last.Model,
		PromptTokens:     last.PromptEvalCount,
		CompletionTokens: last.EvalCount,
	}, nil
}
