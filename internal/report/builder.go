// Package report builds the multi-section requirements report. The four
// sections run concurrently and fail independently: a failing section
// yields an error result while its siblings still produce content.
package report

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/internal/expressions"
	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/internal/streaming"
	"github.com/rendis/reqbot/internal/workers"
	"github.com/rendis/reqbot/pkg/schema"
)

// SectionFlows are the generation flows behind the report sections.
type SectionFlows interface {
	ExecutiveSummary(ctx context.Context, reqs []schema.Requirement) (string, error)
	ActivityDiagram(ctx context.Context, reqs []schema.Requirement) (*diagram.Rendered, error)
	CostEstimation(ctx context.Context, reqs []schema.Requirement) (string, error)
	References(ctx context.Context, messages []schema.Message) (string, error)
}

// Observer receives section outcomes and diagram diagnostics.
type Observer interface {
	ObserveSection(section schema.Section, err error)
	ObserveDiagnostics(issues []schema.ValidationIssue)
}

// Builder assembles reports on a shared worker pool.
type Builder struct {
	flows    SectionFlows
	pool     *workers.Pool
	hub      streaming.Hub
	filter   *expressions.Filter
	observer Observer
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithHub publishes progress events for every build.
func WithHub(h streaming.Hub) Option {
	return func(b *Builder) { b.hub = h }
}

// WithFilter narrows the requirements every section sees.
func WithFilter(f *expressions.Filter) Option {
	return func(b *Builder) { b.filter = f }
}

// WithObserver registers an observer for section outcomes.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New creates a Builder.
func New(flows SectionFlows, pool *workers.Pool, opts ...Option) *Builder {
	b := &Builder{flows: flows, pool: pool, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs all sections for sess. The returned error covers only
// preconditions (no requirements, a failing filter); section failures are
// reported inside the Report.
func (b *Builder) Build(ctx context.Context, sess *handoff.Session) (*schema.Report, error) {
	ctx = logging.WithSessionID(ctx, sess.ID)
	reqs, err := b.requirements(ctx, sess)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b.publish(ctx, sess.ID, "", schema.EventReportStarted, map[string]any{"requirements": len(reqs)})

	results := make([]schema.SectionResult, len(schema.Sections))
	batch := b.pool.NewBatch()
	for i, sec := range schema.Sections {
		var content schema.SectionResult
		err := batch.Go(ctx, func(ctx context.Context) error {
			res, err := b.runSection(ctx, sess, reqs, sec)
			content = res
			return err
		}, func(err error) {
			results[i] = b.finish(ctx, sess.ID, sec, content, err)
		})
		if err != nil {
			results[i] = b.finish(ctx, sess.ID, sec, schema.SectionResult{}, err)
		}
	}
	batch.Wait()

	rep := &schema.Report{
		SessionID:    sess.ID,
		Requirements: reqs,
		ByType:       schema.GroupRequirements(reqs),
		Sections:     make(map[schema.Section]schema.SectionResult, len(results)),
		GeneratedAt:  time.Now().UTC(),
	}
	failed := 0
	for i, sec := range schema.Sections {
		rep.Sections[sec] = results[i]
		if !results[i].OK() {
			failed++
		}
	}

	b.logger.InfoContext(ctx, "report built",
		"duration", time.Since(start), "failed_sections", failed)
	b.publish(ctx, sess.ID, "", schema.EventReportCompleted, map[string]any{"failed_sections": failed})
	return rep, nil
}

// Section rebuilds a single section, the caller-initiated retry for a
// section that failed in an earlier build.
func (b *Builder) Section(ctx context.Context, sess *handoff.Session, sec schema.Section) (schema.SectionResult, error) {
	ctx = logging.WithSessionID(ctx, sess.ID)
	if _, err := schema.ParseSection(string(sec)); err != nil {
		return schema.SectionResult{}, err
	}
	reqs, err := b.requirements(ctx, sess)
	if err != nil {
		return schema.SectionResult{}, err
	}

	var result schema.SectionResult
	var content schema.SectionResult
	batch := b.pool.NewBatch()
	err = batch.Go(ctx, func(ctx context.Context) error {
		res, err := b.runSection(ctx, sess, reqs, sec)
		content = res
		return err
	}, func(err error) {
		result = b.finish(ctx, sess.ID, sec, content, err)
	})
	if err != nil {
		result = b.finish(ctx, sess.ID, sec, schema.SectionResult{}, err)
	}
	batch.Wait()
	return result, nil
}

func (b *Builder) requirements(ctx context.Context, sess *handoff.Session) ([]schema.Requirement, error) {
	if len(sess.Requirements) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"session %q has no extracted requirements", sess.ID)
	}
	reqs, err := b.filter.Apply(ctx, sess.Requirements)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"filter %s matched none of %d requirements", b.filter, len(sess.Requirements))
	}
	return reqs, nil
}

func (b *Builder) runSection(ctx context.Context, sess *handoff.Session, reqs []schema.Requirement, sec schema.Section) (schema.SectionResult, error) {
	ctx = logging.WithSection(ctx, string(sec))
	b.publish(ctx, sess.ID, sec, schema.EventSectionStarted, nil)

	switch sec {
	case schema.SectionSummary:
		text, err := b.flows.ExecutiveSummary(ctx, reqs)
		return schema.SectionOK(text), err
	case schema.SectionDiagram:
		rendered, err := b.flows.ActivityDiagram(ctx, reqs)
		if err != nil {
			return schema.SectionResult{}, err
		}
		if b.observer != nil {
			b.observer.ObserveDiagnostics(rendered.Diagnostics)
		}
		return schema.SectionOK(rendered.Markup, rendered.Diagnostics...), nil
	case schema.SectionCost:
		text, err := b.flows.CostEstimation(ctx, reqs)
		return schema.SectionOK(text), err
	case schema.SectionReferences:
		text, err := b.flows.References(ctx, sess.Messages)
		return schema.SectionOK(text), err
	default:
		return schema.SectionResult{}, schema.NewErrorf(schema.ErrCodeValidation, "unknown report section %q", sec)
	}
}

// finish turns a section outcome into its UI-facing result.
func (b *Builder) finish(ctx context.Context, sessionID string, sec schema.Section, content schema.SectionResult, err error) schema.SectionResult {
	ctx = logging.WithSection(ctx, string(sec))
	if b.observer != nil {
		b.observer.ObserveSection(sec, err)
	}
	if err == nil {
		b.publish(ctx, sessionID, sec, schema.EventSectionCompleted, content)
		return content
	}

	var pe *workers.PanicError
	if errors.As(err, &pe) {
		err = schema.NewErrorf(schema.ErrCodeGeneration, "section panicked: %v", pe.Value).WithCause(pe)
	}
	res := schema.SectionFailed(err)
	b.logger.WarnContext(ctx, "report section failed", "error", err)
	b.publish(ctx, sessionID, sec, schema.EventSectionFailed, res)
	return res
}

func (b *Builder) publish(ctx context.Context, sessionID string, sec schema.Section, typ string, payload any) {
	if b.hub == nil {
		return
	}
	// Progress events must outlive a cancelled request context.
	err := b.hub.Publish(context.WithoutCancel(ctx), streaming.Event{
		SessionID: sessionID,
		Section:   string(sec),
		Type:      typ,
		Payload:   payload,
	})
	if err != nil {
		b.logger.DebugContext(ctx, "publish failed", "event", typ, "error", err)
	}
}
