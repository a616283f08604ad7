// Package oracle provides the model transports behind the generation
// contract. Each transport makes exactly one remote call per request and
// asks the backend to constrain its reply to the request's JSON Schema.
package oracle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rendis/reqbot/internal/generation"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/pkg/schema"
)

// Provider names.
const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

// Config selects and configures a transport.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	// Script is the reply file for the scripted provider.
	Script string
}

// New builds the transport named by cfg.Provider.
func New(cfg Config, logger *slog.Logger) (generation.Oracle, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Provider == ProviderScripted {
		if cfg.Script == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "scripted oracle needs a script file")
		}
		return LoadScript(cfg.Script)
	}
	if cfg.Model == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "oracle model is required")
	}
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllama(cfg, logger)
	case ProviderOpenAI:
		return NewOpenAI(cfg, logger)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown oracle provider %q", cfg.Provider)
	}
}

func describe(cfg Config) string {
	return fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model)
}
