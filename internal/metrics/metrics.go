// Package metrics exposes the Prometheus collectors shared by the pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration observes how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stocksense",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"domain", "stage"})

	// StageErrors counts stage failures by error kind.
	StageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stocksense",
		Name:      "stage_errors_total",
		Help:      "Pipeline stage failures.",
	}, []string{"domain", "stage", "kind"})

	// EnrichmentDropped counts fan-out items converted to omissions.
	EnrichmentDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stocksense",
		Name:      "enrichment_dropped_total",
		Help:      "Items dropped during best-effort enrichment.",
	}, []string{"domain", "stage"})

	// UpstreamRequests counts outbound HTTP calls by host and status class.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stocksense",
		Name:      "upstream_requests_total",
		Help:      "Outbound requests to third-party services.",
	}, []string{"host", "status"})
)
