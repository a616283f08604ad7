package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/pkg/schema"
)

// Observer receives one notification per Generate call.
type Observer interface {
	ObserveGeneration(templateID string, err error, elapsed time.Duration)
}

// Generator implements the structured generation contract: render a fixed
// template, make one oracle call, and accept the reply only if it satisfies
// the output schema. There is no retry, caching of results, rate limiting
// or batching.
type Generator struct {
	oracle    Oracle
	templates *Templates
	validator *Validator
	logger    *slog.Logger
	observer  Observer

	schemas sync.Map // reflect.Type -> *OutputSchema
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemplates replaces the embedded template set.
func WithTemplates(t *Templates) Option {
	return func(g *Generator) { g.templates = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithObserver registers an observer for call outcomes.
func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observer = o }
}

// New creates a Generator backed by oracle.
func New(oracle Oracle, opts ...Option) (*Generator, error) {
	g := &Generator{
		oracle:    oracle,
		validator: NewValidator(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.templates == nil {
		t, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		g.templates = t
	}
	return g, nil
}

// Templates returns the template set in use.
func (g *Generator) Templates() *Templates {
	return g.templates
}

// Generate renders templateID against input, asks the oracle for a document
// matching out and returns the validated JSON. Every failure is a
// GENERATION_ERROR carrying the underlying cause.
func (g *Generator) Generate(ctx context.Context, templateID string, input any, out *OutputSchema) (result json.RawMessage, err error) {
	ctx = logging.WithTemplateID(ctx, templateID)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if g.observer != nil {
			g.observer.ObserveGeneration(templateID, err, elapsed)
		}
		if err != nil {
			g.logger.WarnContext(ctx, "generation failed", "duration", elapsed, "error", err)
			return
		}
		g.logger.DebugContext(ctx, "generation completed", "duration", elapsed, "bytes", len(result))
	}()

	if out == nil {
		return nil, generationError(templateID, "no output schema given", nil)
	}

	system, prompt, err := g.templates.Render(templateID, input)
	if err != nil {
		return nil, generationError(templateID, "prompt rendering failed", err)
	}

	resp, err := g.oracle.Complete(ctx, &Request{
		TemplateID: templateID,
		System:     system,
		Prompt:     prompt,
		SchemaName: out.Name,
		Schema:     out.Raw,
	})
	if err != nil {
		return nil, generationError(templateID, "oracle call failed", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, generationError(templateID, "oracle returned empty output", nil)
	}

	text := extractJSON(resp.Text)
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, generationError(templateID, "oracle output is not valid JSON", err)
	}
	if err := g.validator.Validate(doc, out); err != nil {
		return nil, generationError(templateID, "oracle output does not match schema", err)
	}

	return json.RawMessage(text), nil
}

// Generate is the typed form of Generator.Generate: the output schema is
// reflected from T and the validated document is decoded into T.
func Generate[T any](ctx context.Context, g *Generator, templateID string, input any) (T, error) {
	var zero T

	out, err := g.schemaFor(reflect.TypeFor[T](), templateID)
	if err != nil {
		return zero, generationError(templateID, "output schema unavailable", err)
	}

	raw, err := g.Generate(ctx, templateID, input, out)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, generationError(templateID, "decode output", err)
	}
	return result, nil
}

func (g *Generator) schemaFor(t reflect.Type, templateID string) (*OutputSchema, error) {
	if cached, ok := g.schemas.Load(t); ok {
		return cached.(*OutputSchema), nil
	}
	s, err := schemaOfType(t, templateID+"_output")
	if err != nil {
		return nil, err
	}
	actual, _ := g.schemas.LoadOrStore(t, s)
	return actual.(*OutputSchema), nil
}

func generationError(templateID, msg string, cause error) error {
	full := fmt.Sprintf("%s: %s", templateID, msg)
	if cause != nil {
		full = fmt.Sprintf("%s: %v", full, cause)
	}
	e := schema.NewError(schema.ErrCodeGeneration, full).
		WithDetails(map[string]any{"template_id": templateID})
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
