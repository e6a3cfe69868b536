// Package metrics records catalog build statistics with Prometheus
// collectors. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/agentstation/cwemap/internal/indexer"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cwemap"

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	builds   *prometheus.CounterVec
	failures *prometheus.CounterVec
	entities *prometheus.GaugeVec
	skipped  *prometheus.CounterVec
	dangling prometheus.Counter
	edges    prometheus.Gauge
	duration prometheus.Histogram
	info     *prometheus.GaugeVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Catalog rebuilds by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_failures_total",
			Help:      "Failed catalog rebuilds by kind of failure.",
		}, []string{"kind"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities in the current store by group.",
		}, []string{"group"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Raw records skipped while indexing by reason.",
		}, []string{"reason"}),
		dangling: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_edges_total",
			Help:      "Membership edges naming an unknown id.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Membership edges linked in the current store.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent fetching, indexing and swapping a catalog.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_info",
			Help:      "Version of the catalog currently served, always 1.",
		}, []string{"version"}),
	}

	m.registry.MustRegister(m.builds, m.failures, m.entities, m.skipped, m.dangling, m.edges, m.duration, m.info)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveBuild records the outcome of one rebuild.
func (m *Metrics) ObserveBuild(report *indexer.Report, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil || report == nil {
		m.builds.WithLabelValues("failure").Inc()
		m.failures.WithLabelValues(failureKind(err)).Inc()
		return
	}

	m.builds.WithLabelValues("success").Inc()
	for _, g := range catalog.Groups() {
		m.entities.WithLabelValues(g.String()).Set(float64(report.Counts[g]))
	}
	for reason, n := range report.SkippedByReason() {
		m.skipped.WithLabelValues(string(reason)).Add(float64(n))
	}
	m.dangling.Add(float64(len(report.Dangling)))
	m.edges.Set(float64(report.Edges))
	m.SetVersion(report.Version)
}

// failureKind classifies a build error for the failures counter.
func failureKind(err error) string {
	switch {
	case errors.IsFetch(err):
		return "fetch"
	case errors.IsStorage(err):
		return "storage"
	case errors.IsParse(err):
		return "parse"
	case errors.IsValidationError(err):
		return "validation"
	default:
		return "other"
	}
}

// SetVersion marks version as the catalog being served.
func (m *Metrics) SetVersion(version string) {
	if m == nil {
		return
	}
	m.info.Reset()
	m.info.WithLabelValues(version).Set(1)
}

// WriteTextfile writes every metric in the text exposition format, for
// collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
