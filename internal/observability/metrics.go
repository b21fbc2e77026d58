// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for a single crawl run. Each Metrics owns a
// private registry so that runs and tests never share state.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestsTotal counts HTTP attempts, labeled by endpoint and outcome
	// (ok, status, transport, rate_limited).
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes HTTP attempt latency in seconds, labeled by endpoint.
	RequestDuration *prometheus.HistogramVec

	// Retries counts retry waits, labeled by operation.
	Retries *prometheus.CounterVec

	// RateLimited counts 429 (and 503 with Retry-After) responses, labeled by endpoint.
	RateLimited *prometheus.CounterVec

	// SoftMisses counts ids that produced no record, labeled by stage.
	SoftMisses *prometheus.CounterVec

	// ParseErrors counts malformed records and batches, labeled by stage.
	ParseErrors *prometheus.CounterVec

	// ArticlesTotal counts assembled article records.
	ArticlesTotal prometheus.Counter

	// RelevantArticles counts records that matched at least one keyword.
	RelevantArticles prometheus.Counter

	// CitationLookups counts citation lookups, labeled by the source that answered.
	CitationLookups *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on a fresh registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP request attempts by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP request attempts in seconds by endpoint",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"endpoint"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried operations",
		}, []string{"op"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of rate-limited responses by endpoint",
		}, []string{"endpoint"}),
		SoftMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soft_misses_total",
			Help:      "Total number of ids without a record by stage",
		}, []string{"stage"}),
		ParseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total number of malformed records or batches by stage",
		}, []string{"stage"}),
		ArticlesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Total number of assembled article records",
		}),
		RelevantArticles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relevant_articles_total",
			Help:      "Total number of articles matching at least one keyword",
		}),
		CitationLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_lookups_total",
			Help:      "Total number of citation lookups by answering source",
		}, []string{"source"}),
	}
}

// WriteTextfile writes the registry in the Prometheus text exposition
// format, for pickup by a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

// SoftMiss records n ids without a record for the given stage. A nil
// receiver is a no-op so stages can run without metrics.
func (m *Metrics) SoftMiss(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SoftMisses.WithLabelValues(stage).Add(float64(n))
}

// ParseFailure records a malformed record or batch for the given stage.
func (m *Metrics) ParseFailure(stage string) {
	if m == nil {
		return
	}
	m.ParseErrors.WithLabelValues(stage).Inc()
}
