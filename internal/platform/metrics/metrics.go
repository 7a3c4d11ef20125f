// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sheepyard"

// Metrics owns its registry so tests and multiple processes never collide on
// the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	votesToggled    *prometheus.CounterVec
	deadlines       *prometheus.CounterVec
	deadlineScan    prometheus.Histogram
	broadcastPushes *prometheus.CounterVec
	directorySyncs  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		votesToggled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_toggled_total",
				Help:      "Vote toggles by outcome (added, removed).",
			},
			[]string{"outcome"},
		),
		deadlines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deadlines_processed_total",
				Help:      "Resolved poll deadlines by kind and result.",
			},
			[]string{"kind", "result"},
		),
		deadlineScan: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deadline_scan_seconds",
				Help:      "Duration of one deadline scheduler scan.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		broadcastPushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_pushes_total",
				Help:      "Live snapshot pushes by result (delivered, failed, dropped).",
			},
			[]string{"result"},
		),
		directorySyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_syncs_total",
				Help:      "Member directory synchronisations by result.",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) VoteToggled(outcome string) {
	m.votesToggled.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DeadlineProcessed(kind string, result string) {
	m.deadlines.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) DeadlineScanObserved(duration time.Duration) {
	m.deadlineScan.Observe(duration.Seconds())
}

func (m *Metrics) BroadcastPushed(result string) {
	m.broadcastPushes.WithLabelValues(result).Inc()
}

func (m *Metrics) DirectorySynced(result string) {
	m.directorySyncs.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
