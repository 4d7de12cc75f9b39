package ratings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/metrics"
)

// ReconcilerOptions tunes the retry queue and sweep.
type ReconcilerOptions struct {
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	Interval    time.Duration // zero disables the periodic sweep
	Logger      zerolog.Logger
}

// Reconciler repairs aggregates whose recompute failed after a committed
// ledger mutation. It holds recipe ids only, never aggregate values.
type Reconciler struct {
	agg   *Aggregator
	opts  ReconcilerOptions
	queue chan string

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewReconciler creates a reconciler and registers it as agg's retry queue.
func NewReconciler(agg *Aggregator, opts ReconcilerOptions) *Reconciler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 200 * time.Millisecond
	}
	opts.Logger = opts.Logger.With().Str("component", "reconciler").Logger()

	r := &Reconciler{
		agg:     agg,
		opts:    opts,
		queue:   make(chan string, opts.QueueSize),
		pending: make(map[string]struct{}),
	}
	agg.retry = r
	return r
}

// Enqueue schedules recipeID for repair. It never blocks and reports false
// when the queue is full; duplicates of a pending id are absorbed.
func (r *Reconciler) Enqueue(recipeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[recipeID]; ok {
		return true
	}
	select {
	case r.queue <- recipeID:
		r.pending[recipeID] = struct{}{}
		metrics.ReconcileQueueDepth.Set(float64(len(r.pending)))
		return true
	default:
		metrics.ReconcileDropped.Inc()
		r.opts.Logger.Warn().Str("recipe_id", recipeID).Msg("repair queue full")
		return false
	}
}

// Pending reports how many ids are waiting.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reconciler) release(recipeID string) {
	r.mu.Lock()
	delete(r.pending, recipeID)
	metrics.ReconcileQueueDepth.Set(float64(len(r.pending)))
	r.mu.Unlock()
}

// Run processes the queue and the periodic sweep until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.opts.Interval > 0 {
		ticker := time.NewTicker(r.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.opts.Logger.Info().Dur("interval", r.opts.Interval).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.opts.Logger.Info().Int("pending", r.Pending()).Msg("reconciler stopped")
			return ctx.Err()
		case id := <-r.queue:
			r.release(id)
			r.repair(ctx, id)
		case <-tick:
			if n, err := r.Sweep(ctx); err != nil {
				r.opts.Logger.Error().Err(err).Msg("aggregate sweep failed")
			} else if n > 0 {
				r.opts.Logger.Info().Int("repaired", n).Msg("aggregate sweep repaired drift")
			}
		}
	}
}

// Drain repairs every id queued at call time and returns how many it handled.
func (r *Reconciler) Drain(ctx context.Context) int {
	handled := 0
	for {
		select {
		case id := <-r.queue:
			r.release(id)
			r.repair(ctx, id)
			handled++
		default:
			return handled
		}
	}
}

func (r *Reconciler) repair(ctx context.Context, recipeID string) {
	backoff := r.opts.BaseBackoff
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		_, err := r.agg.Recompute(ctx, recipeID)
		if err == nil {
			metrics.ReconcileRepairs.WithLabelValues("queue").Inc()
			return
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			return
		}
		r.opts.Logger.Warn().Err(err).Str("recipe_id", recipeID).Int("attempt", attempt).Msg("aggregate repair failed")
		if attempt == r.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	metrics.ReconcileDropped.Inc()
	r.opts.Logger.Error().Str("recipe_id", recipeID).Msg("aggregate repair gave up; sweep will retry")
}

// Sweep recomputes every recipe whose stored aggregate disagrees with its
// ledger and returns the number repaired.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	ids, err := r.agg.store.ListDriftedRecipes(ctx)
	if err != nil {
		return 0, domain.Storage("list drifted recipes", err)
	}
	repaired := 0
	var firstErr error
	for _, id := range ids {
		if _, err := r.agg.Recompute(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		repaired++
		metrics.ReconcileRepairs.WithLabelValues("sweep").Inc()
	}
	return repaired, firstErr
}
