// Package flows binds each ReqBot capability to a fixed prompt template and
// output type on top of the generation contract.
package flows

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/internal/generation"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/pkg/schema"
)

// ChatReplyOutput is the chat flow result.
type ChatReplyOutput struct {
	Response string `json:"response" jsonschema:"minLength=1"`
}

// ExtractionOutput is the requirements extraction result.
type ExtractionOutput struct {
	Requirements []schema.Requirement `json:"requirements"`
}

// SummaryOutput is the executive summary result.
type SummaryOutput struct {
	Summary string `json:"summary" jsonschema:"minLength=1"`
}

// CostOutput is the cost estimation result.
type CostOutput struct {
	Estimation string `json:"estimation" jsonschema:"minLength=1"`
}

// ReferencesOutput is the references result.
type ReferencesOutput struct {
	References string `json:"references" jsonschema:"minLength=1"`
}

type chatInput struct {
	History []schema.Message
	Message string
}

type requirementsInput struct {
	Requirements []schema.Requirement
}

type transcriptInput struct {
	Transcript string
}

// Flows runs the six ReqBot flows.
type Flows struct {
	gen    *generation.Generator
	logger *slog.Logger
}

// New creates the flow set.
func New(gen *generation.Generator, logger *slog.Logger) *Flows {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Flows{gen: gen, logger: logger}
}

// ChatReply produces the assistant's next message given the history and the
// user's latest message.
func (f *Flows) ChatReply(ctx context.Context, history []schema.Message, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", schema.NewError(schema.ErrCodeValidation, "message is empty")
	}
	out, err := generation.Generate[ChatReplyOutput](ctx, f.gen, generation.TemplateChatReply,
		chatInput{History: history, Message: message})
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

// ExtractRequirements turns a conversation into structured requirements.
func (f *Flows) ExtractRequirements(ctx context.Context, messages []schema.Message) ([]schema.Requirement, error) {
	if len(messages) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "conversation is empty")
	}
	out, err := generation.Generate[ExtractionOutput](ctx, f.gen, generation.TemplateExtractRequirements,
		transcriptInput{Transcript: schema.FormatTranscript(messages)})
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "requirements extracted", "count", len(out.Requirements))
	return out.Requirements, nil
}

// ExecutiveSummary writes the report summary section.
func (f *Flows) ExecutiveSummary(ctx context.Context, reqs []schema.Requirement) (string, error) {
	out, err := generation.Generate[SummaryOutput](ctx, f.gen, generation.TemplateExecutiveSummary,
		requirementsInput{Requirements: reqs})
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// ActivityDiagram asks the oracle for a structured diagram and renders it as
// Mermaid markup. Structural problems surface as EMPTY_DIAGRAM or
// MALFORMED_DIAGRAM; dropped edges are returned as diagnostics.
func (f *Flows) ActivityDiagram(ctx context.Context, reqs []schema.Requirement) (*diagram.Rendered, error) {
	d, err := generation.Generate[diagram.Diagram](ctx, f.gen, generation.TemplateActivityDiagram,
		requirementsInput{Requirements: reqs})
	if err != nil {
		return nil, err
	}
	rendered, err := diagram.Render(&d)
	if err != nil {
		return nil, err
	}
	for _, w := range rendered.Diagnostics {
		f.logger.WarnContext(ctx, "diagram diagnostic", "path", w.Path, "code", w.Code, "message", w.Message)
	}
	return rendered, nil
}

// CostEstimation writes the speculative cost section.
func (f *Flows) CostEstimation(ctx context.Context, reqs []schema.Requirement) (string, error) {
	out, err := generation.Generate[CostOutput](ctx, f.gen, generation.TemplateCostEstimation,
		requirementsInput{Requirements: reqs})
	if err != nil {
		return "", err
	}
	return out.Estimation, nil
}

// References lists sources relevant to the conversation.
func (f *Flows) References(ctx context.Context, messages []schema.Message) (string, error) {
	out, err := generation.Generate[ReferencesOutput](ctx, f.gen, generation.TemplateReferences,
		transcriptInput{Transcript: schema.FormatTranscript(messages)})
	if err != nil {
		return "", err
	}
	return out.References, nil
}
