// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus metrics for the matching pipeline.
// A nil *Metrics is valid and records nothing, so components can run
// without a registry in tests and CLI commands.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's collectors.
type Metrics struct {
	RecallTotal       *prometheus.CounterVec
	RecallTierErrors  *prometheus.CounterVec
	RerankTotal       *prometheus.CounterVec
	RerankDuration    prometheus.Histogram
	IntegrityDrops    prometheus.Counter
	BackfillTotal     *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecallTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "policymatch_recall_total",
			Help: "Recall requests by mode and the tier that produced results.",
		}, []string{"mode", "tier"}),

		RecallTierErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "policymatch_recall_tier_errors_total",
			Help: "Recall tier failures that fell through to the next tier.",
		}, []string{"tier"}),

		RerankTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "policymatch_rerank_total",
			Help: "Ranking calls by outcome.",
		}, []string{"outcome"}),

		RerankDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "policymatch_rerank_duration_seconds",
			Help:    "Duration of ranking service calls.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),

		IntegrityDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "policymatch_integrity_drops_total",
			Help: "Ranked selections dropped because their id was not in the recall pool.",
		}),

		BackfillTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "policymatch_backfill_total",
			Help: "Result slots filled after ranking, by source.",
		}, []string{"source"}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "policymatch_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "policymatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordRecall counts a recall request answered by tier.
func (m *Metrics) RecordRecall(mode, tier string) {
	if m == nil {
		return
	}
	m.RecallTotal.WithLabelValues(mode, tier).Inc()
}

// RecordTierError counts a tier failure.
func (m *Metrics) RecordTierError(tier string) {
	if m == nil {
		return
	}
	m.RecallTierErrors.WithLabelValues(tier).Inc()
}

// RecordRerank counts a ranking call by outcome and observes its duration.
func (m *Metrics) RecordRerank(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RerankTotal.WithLabelValues(outcome).Inc()
	m.RerankDuration.Observe(d.Seconds())
}

// RecordIntegrityDrop counts a selection dropped during merge.
func (m *Metrics) RecordIntegrityDrop() {
	if m == nil {
		return
	}
	m.IntegrityDrops.Inc()
}

// RecordBackfill counts n slots filled from source.
func (m *Metrics) RecordBackfill(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.BackfillTotal.WithLabelValues(source).Add(float64(n))
}

// RecordHTTP records one HTTP request.
func (m *Metrics) RecordHTTP(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
