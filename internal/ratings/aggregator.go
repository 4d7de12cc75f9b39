package ratings

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/metrics"
)

const defaultRecomputeTimeout = 5 * time.Second

// RetryQueue accepts recipe ids whose aggregate could not be written.
type RetryQueue interface {
	Enqueue(recipeID string) bool
}

// Aggregator is the only writer of a recipe's averageRating and ratingCount.
type Aggregator struct {
	store   AggregateStore
	timeout time.Duration
	logger  zerolog.Logger
	retry   RetryQueue
}

// NewAggregator builds an Aggregator. timeout bounds each post-mutation
// recompute; zero selects a default.
func NewAggregator(store AggregateStore, timeout time.Duration, logger zerolog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = defaultRecomputeTimeout
	}
	return &Aggregator{
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Summarize computes count and arithmetic mean. The mean of no values is 0.
func Summarize(values []int) domain.RatingAggregate {
	if len(values) == 0 {
		return domain.RatingAggregate{}
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	return domain.RatingAggregate{
		Average: float64(sum) / float64(len(values)),
		Count:   int64(len(values)),
	}
}

// Recompute re-derives and stores the aggregate for recipeID.
func (a *Aggregator) Recompute(ctx context.Context, recipeID string) (domain.RatingAggregate, error) {
	if !domain.ValidID(recipeID) {
		return domain.RatingAggregate{}, domain.E(domain.KindInvalidInput, "Invalid recipe ID format")
	}

	start := time.Now()
	agg, err := a.store.RecomputeAggregate(ctx, recipeID, Summarize)
	metrics.AggregateRecomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.AggregateRecomputes.WithLabelValues("not_found").Inc()
			return domain.RatingAggregate{}, domain.E(domain.KindNotFound, "Recipe not found")
		}
		metrics.AggregateRecomputes.WithLabelValues("error").Inc()
		return domain.RatingAggregate{}, domain.Storage("recompute aggregate", err)
	}
	metrics.AggregateRecomputes.WithLabelValues("ok").Inc()
	return agg, nil
}

// AfterMutation recomputes the aggregate following a committed ledger change.
// It ignores the caller's cancellation so an abandoned request cannot skip
// the recompute. Failures are logged and queued for retry; they are never
// reported to the caller.
func (a *Aggregator) AfterMutation(ctx context.Context, recipeID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	agg, err := a.Recompute(rctx, recipeID)
	if err == nil {
		a.logger.Debug().
			Str("recipe_id", recipeID).
			Float64("average", agg.Average).
			Int64("count", agg.Count).
			Msg("aggregate updated")
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		// The recipe was deleted; its ratings went with it.
		return
	}

	a.logger.Error().Err(err).Str("recipe_id", recipeID).Msg("aggregate recompute failed; queued for retry")
	if a.retry == nil || !a.retry.Enqueue(recipeID) {
		a.logger.Warn().Str("recipe_id", recipeID).Msg("aggregate left stale until next sweep")
	}
}
