// Command reaggregate recomputes stored rating aggregates from the ledger.
// With -recipe it repairs a single recipe; otherwise it sweeps every recipe
// whose aggregate has drifted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/recipe-box/internal/config"
	"github.com/Clark-Hu/recipe-box/internal/logging"
	"github.com/Clark-Hu/recipe-box/internal/ratings"
	"github.com/Clark-Hu/recipe-box/internal/repository"
	"github.com/Clark-Hu/recipe-box/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger := logging.New(logging.Options{})
		logger.Fatal().Err(err).Str("command", "reaggregate").Msg("reaggregate failed")
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reaggregate", flag.ContinueOnError)
	recipeID := fs.String("recipe", "", "recompute a single recipe by id")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("command", "reaggregate").Logger()

	st, err := store.New(ctx, cfg.DBURL, store.Options{
		MaxConns:               2,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	repo := repository.New(st)
	agg := ratings.NewAggregator(repo.Ratings, time.Duration(cfg.RecomputeTimeoutSecs)*time.Second, logger)

	if *recipeID != "" {
		summary, err := agg.Recompute(ctx, *recipeID)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", *recipeID, err)
		}
		logger.Info().
			Str("recipe_id", *recipeID).
			Float64("average_rating", summary.Average).
			Int64("rating_count", summary.Count).
			Msg("aggregate recomputed")
		return nil
	}

	reconciler := ratings.NewReconciler(agg, ratings.ReconcilerOptions{Logger: logger})
	repaired, err := reconciler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep (repaired %d): %w", repaired, err)
	}
	logger.Info().Int("repaired", repaired).Msg("sweep complete")
	return nil
}
