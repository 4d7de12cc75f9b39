// Package metrics holds the Prometheus collectors for the ratings and
// favorites subsystems.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

var (
	RatingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_rating_submissions_total",
			Help: "Rating submissions by outcome",
		},
		[]string{"outcome"},
	)

	RatingRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_rating_removals_total",
			Help: "Rating removals by outcome",
		},
		[]string{"outcome"},
	)

	AggregateRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_aggregate_recomputes_total",
			Help: "Aggregate recomputations by result",
		},
		[]string{"result"},
	)

	AggregateRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipebox_aggregate_recompute_duration_seconds",
			Help:    "Duration of aggregate recomputations",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcileQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipebox_reconcile_queue_depth",
			Help: "Recipe ids waiting for aggregate repair",
		},
	)

	ReconcileRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_reconcile_repairs_total",
			Help: "Aggregates repaired by the reconciler, by source",
		},
		[]string{"source"},
	)

	ReconcileDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipebox_reconcile_dropped_total",
			Help: "Repair requests dropped because the queue was full or retries were exhausted",
		},
	)

	FavoritesMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_favorites_mutations_total",
			Help: "Favorites add/remove calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipebox_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome maps an operation result to a label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(domain.KindOf(err)))
}
