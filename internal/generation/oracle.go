package generation

import (
	"context"
	"encoding/json"
)

// Request is a single exchange with the oracle: a rendered prompt plus the
// JSON Schema the reply must satisfy.
type Request struct {
	TemplateID string
	System     string
	Prompt     string
	SchemaName string
	Schema     json.RawMessage
}

// Response is the raw oracle reply. Text is expected to hold a JSON document.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Oracle is the external structured-generation capability. Implementations
// perform exactly one remote call per Complete and never retry.
type Oracle interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req *Request) (*Response, error)

// Complete calls f.
func (f OracleFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
