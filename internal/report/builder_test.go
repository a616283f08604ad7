package report

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/internal/expressions"
	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/streaming"
	"github.com/rendis/reqbot/internal/workers"
	"github.com/rendis/reqbot/pkg/schema"
)

type fakeFlows struct {
	costErr  error
	panicRef bool
	calls    atomic.Int32
	gotReqs  []schema.Requirement
	mu       sync.Mutex
}

func (f *fakeFlows) ExecutiveSummary(_ context.Context, reqs []schema.Requirement) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.gotReqs = reqs
	f.mu.Unlock()
	return "## Summary", nil
}

func (f *fakeFlows) ActivityDiagram(_ context.Context, _ []schema.Requirement) (*diagram.Rendered, error) {
	f.calls.Add(1)
	return &diagram.Rendered{
		Format: diagram.FormatMermaid,
		Markup: "flowchart TD\n    A([\"Start\"])\n    D([\"End\"])\n    A --> D",
		Diagnostics: []schema.ValidationIssue{
			{Path: "edges[1]", Code: schema.ErrCodeDanglingEdge, Message: "dropped", Severity: schema.SeverityWarning},
		},
	}, nil
}

func (f *fakeFlows) CostEstimation(_ context.Context, _ []schema.Requirement) (string, error) {
	f.calls.Add(1)
	if f.costErr != nil {
		return "", f.costErr
	}
	return "About 3 months", nil
}

func (f *fakeFlows) References(_ context.Context, msgs []schema.Message) (string, error) {
	f.calls.Add(1)
	if f.panicRef {
		panic("references exploded")
	}
	return "- HL7 FHIR", nil
}

type recordingObserver struct {
	mu          sync.Mutex
	sections    map[schema.Section]error
	diagnostics int
}

func (o *recordingObserver) ObserveSection(sec schema.Section, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sections == nil {
		o.sections = map[schema.Section]error{}
	}
	o.sections[sec] = err
}

func (o *recordingObserver) ObserveDiagnostics(issues []schema.ValidationIssue) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.diagnostics += len(issues)
}

func sessionWithRequirements() *handoff.Session {
	s := handoff.NewSession()
	s.AddMessage(schema.RoleUser, "Patients book appointments online")
	s.Requirements = []schema.Requirement{
		{ID: "FR-1", Type: schema.RequirementFunctional, Description: "Book online", Priority: schema.PriorityHigh, ConfidenceScore: 0.9},
		{ID: "NFR-1", Type: schema.RequirementNonFunctional, Description: "Available 24/7", Priority: schema.PriorityMed, ConfidenceScore: 0.3},
	}
	return s
}

func newPool(t *testing.T) *workers.Pool {
	t.Helper()
	p := workers.New(4)
	t.Cleanup(p.Shutdown)
	return p
}

func TestBuild_AllSectionsSucceed(t *testing.T) {
	flows := &fakeFlows{}
	obs := &recordingObserver{}
	b := New(flows, newPool(t), WithObserver(obs))

	rep, err := b.Build(context.Background(), sessionWithRequirements())
	require.NoError(t, err)

	require.Len(t, rep.Sections, 4)
	for _, sec := range schema.Sections {
		res := rep.Sections[sec]
		assert.True(t, res.OK(), "section %s", sec)
		assert.NotEmpty(t, res.Content, "section %s", sec)
		assert.Empty(t, res.Error, "section %s", sec)
	}
	assert.Len(t, rep.Sections[schema.SectionDiagram].Warnings, 1)
	assert.Len(t, rep.ByType[schema.RequirementFunctional], 1)
	assert.Len(t, rep.ByType[schema.RequirementNonFunctional], 1)
	assert.Empty(t, rep.ByType[schema.RequirementInverse])
	assert.Equal(t, int32(4), flows.calls.Load())
	assert.Equal(t, 1, obs.diagnostics)
	assert.Len(t, obs.sections, 4)
}

func TestBuild_FailingSectionIsIsolated(t *testing.T) {
	flows := &fakeFlows{costErr: schema.NewError(schema.ErrCodeGeneration, "cost_estimation: oracle timed out")}
	b := New(flows, newPool(t))

	rep, err := b.Build(context.Background(), sessionWithRequirements())
	require.NoError(t, err)

	cost := rep.Sections[schema.SectionCost]
	assert.False(t, cost.OK())
	assert.Empty(t, cost.Content)
	assert.Equal(t, schema.ErrCodeGeneration, cost.Code)
	assert.Contains(t, cost.Error, "oracle timed out")

	for _, sec := range []schema.Section{schema.SectionSummary, schema.SectionDiagram, schema.SectionReferences} {
		assert.True(t, rep.Sections[sec].OK(), "section %s", sec)
	}
}

func TestBuild_PanickingSectionIsIsolated(t *testing.T) {
	flows := &fakeFlows{panicRef: true}
	pool := newPool(t)
	b := New(flows, pool)

	rep, err := b.Build(context.Background(), sessionWithRequirements())
	require.NoError(t, err)

	refs := rep.Sections[schema.SectionReferences]
	assert.False(t, refs.OK())
	assert.Equal(t, schema.ErrCodeGeneration, refs.Code)
	assert.Contains(t, refs.Error, "references exploded")
	assert.True(t, rep.Sections[schema.SectionSummary].OK())
	assert.Equal(t, int64(1), pool.Stats().Panics)
}

func TestBuild_NoRequirements(t *testing.T) {
	flows := &fakeFlows{}
	b := New(flows, newPool(t))

	_, err := b.Build(context.Background(), handoff.NewSession())
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Equal(t, int32(0), flows.calls.Load())
}

func TestBuild_Filter(t *testing.T) {
	f, err := expressions.NewFilter(expressions.EngineExpr, "confidence_score >= 0.5")
	require.NoError(t, err)
	flows := &fakeFlows{}
	b := New(flows, newPool(t), WithFilter(f))

	rep, err := b.Build(context.Background(), sessionWithRequirements())
	require.NoError(t, err)
	require.Len(t, rep.Requirements, 1)
	assert.Equal(t, "FR-1", rep.Requirements[0].ID)
	assert.Equal(t, rep.Requirements, flows.gotReqs)

	none, err := expressions.NewFilter(expressions.EngineExpr, "confidence_score > 1")
	require.NoError(t, err)
	_, err = New(flows, newPool(t), WithFilter(none)).Build(context.Background(), sessionWithRequirements())
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestBuild_PublishesProgress(t *testing.T) {
	hub := streaming.NewMemoryHub()
	sess := sessionWithRequirements()
	ch, cancel, err := hub.Subscribe(context.Background(), streaming.Filter{SessionID: sess.ID})
	require.NoError(t, err)
	defer cancel()

	flows := &fakeFlows{costErr: errors.New("boom")}
	_, err = New(flows, newPool(t), WithHub(hub)).Build(context.Background(), sess)
	require.NoError(t, err)

	counts := map[string]int{}
	timeout := time.After(time.Second)
	for counts[schema.EventReportCompleted] == 0 {
		select {
		case ev := <-ch:
			counts[ev.Type]++
		case <-timeout:
			t.Fatalf("timed out, got %v", counts)
		}
	}
	assert.Equal(t, 1, counts[schema.EventReportStarted])
	assert.Equal(t, 4, counts[schema.EventSectionStarted])
	assert.Equal(t, 3, counts[schema.EventSectionCompleted])
	assert.Equal(t, 1, counts[schema.EventSectionFailed])
}

func TestSection_Retry(t *testing.T) {
	flows := &fakeFlows{costErr: errors.New("boom")}
	b := New(flows, newPool(t))
	sess := sessionWithRequirements()

	res, err := b.Section(context.Background(), sess, schema.SectionCost)
	require.NoError(t, err)
	assert.False(t, res.OK())

	flows.costErr = nil
	res, err = b.Section(context.Background(), sess, schema.SectionCost)
	require.NoError(t, err)
	assert.Equal(t, "About 3 months", res.Content)

	_, err = b.Section(context.Background(), sess, schema.Section("appendix"))
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New(&fakeFlows{}, newPool(t)).Build(ctx, sessionWithRequirements())
	require.NoError(t, err)
	for _, sec := range schema.Sections {
		res := rep.Sections[sec]
		if !res.OK() {
			assert.Contains(t, res.Error, "context canceled")
		}
	}
}
