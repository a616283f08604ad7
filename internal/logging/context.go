package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	sectionKey
	templateIDKey
)

// WithSessionID returns a context with the session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithSection returns a context with the report section set.
func WithSection(ctx context.Context, section string) context.Context {
	return context.WithValue(ctx, sectionKey, section)
}

// WithTemplateID returns a context with the prompt template ID set.
func WithTemplateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, templateIDKey, id)
}

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// Section extracts the report section from the context, or "" if absent.
func Section(ctx context.Context) string {
	v, _ := ctx.Value(sectionKey).(string)
	return v
}

// TemplateID extracts the template ID from the context, or "" if absent.
func TemplateID(ctx context.Context) string {
	v, _ := ctx.Value(templateIDKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if v := SessionID(ctx); v != "" {
		logger = logger.With(slog.String("session_id", v))
	}
	if v := Section(ctx); v != "" {
		logger = logger.With(slog.String("section", v))
	}
	if v := TemplateID(ctx); v != "" {
		logger = logger.With(slog.String("template_id", v))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := SessionID(ctx); v != "" {
		r.AddAttrs(slog.String("session_id", v))
	}
	if v := Section(ctx); v != "" {
		r.AddAttrs(slog.String("section", v))
	}
	if v := TemplateID(ctx); v != "" {
		r.AddAttrs(slog.String("template_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
