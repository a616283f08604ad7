// Package metrics exposes ReqBot's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/reqbot/internal/workers"
	"github.com/rendis/reqbot/pkg/schema"
)

const namespace = "reqbot"

// Registry owns a private Prometheus registry so tests and embedded servers
// never collide on the global one.
type Registry struct {
	reg *prometheus.Registry

	generationDuration *prometheus.HistogramVec
	generationFailures *prometheus.CounterVec
	sectionOutcomes    *prometheus.CounterVec
	diagramIssues      *prometheus.CounterVec
	purgedSessions     prometheus.Counter
}

// New creates a registry with all ReqBot collectors plus the Go runtime ones.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of structured generation calls",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"template", "outcome"},
		),
		generationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_failures_total",
				Help:      "Failed structured generation calls by error code",
			},
			[]string{"template", "code"},
		),
		sectionOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_sections_total",
				Help:      "Report sections built, by section and outcome",
			},
			[]string{"section", "outcome"},
		),
		diagramIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagram_diagnostics_total",
				Help:      "Diagram diagnostics raised while rendering, by code",
			},
			[]string{"code"},
		),
		purgedSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Sessions removed by the purge job",
		}),
	}
	r.reg.MustRegister(
		r.generationDuration,
		r.generationFailures,
		r.sectionOutcomes,
		r.diagramIssues,
		r.purgedSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveGeneration records one generation call.
func (r *Registry) ObserveGeneration(templateID string, err error, elapsed time.Duration) {
	r.generationDuration.WithLabelValues(templateID, outcome(err)).Observe(elapsed.Seconds())
	if err != nil {
		r.generationFailures.WithLabelValues(templateID, codeOf(err)).Inc()
	}
}

// ObserveSection records one report section result.
func (r *Registry) ObserveSection(section schema.Section, err error) {
	r.sectionOutcomes.WithLabelValues(string(section), outcome(err)).Inc()
}

// ObserveDiagnostics counts render diagnostics such as dropped edges.
func (r *Registry) ObserveDiagnostics(issues []schema.ValidationIssue) {
	for _, is := range issues {
		r.diagramIssues.WithLabelValues(is.Code).Inc()
	}
}

// ObservePurge counts sessions removed by a purge run.
func (r *Registry) ObservePurge(n int) {
	r.purgedSessions.Add(float64(n))
}

// RegisterPool exports the pool's live counters as gauges.
func (r *Registry) RegisterPool(p *workers.Pool) {
	stat := func(name, help string, pick func(workers.Stats) int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(p.Stats())) })
	}
	r.reg.MustRegister(
		stat("size", "Maximum concurrent tasks", func(s workers.Stats) int64 { return int64(s.Size) }),
		stat("active", "Tasks currently running", func(s workers.Stats) int64 { return s.Active }),
		stat("completed", "Tasks finished without error", func(s workers.Stats) int64 { return s.Completed }),
		stat("failed", "Tasks that returned an error or panicked", func(s workers.Stats) int64 { return s.Failed }),
	)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func codeOf(err error) string {
	if code := schema.ErrorCode(err); code != "" {
		return code
	}
	return "UNKNOWN"
}
