package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/config"
	"github.com/Clark-Hu/recipe-box/internal/favorites"
	httpserver "github.com/Clark-Hu/recipe-box/internal/http"
	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/logging"
	"github.com/Clark-Hu/recipe-box/internal/ratings"
	"github.com/Clark-Hu/recipe-box/internal/repository"
	"github.com/Clark-Hu/recipe-box/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger := logging.New(logging.Options{})
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// run wires the service and blocks until ctx is cancelled or the listener
// fails. Resources opened here are released before it returns.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	gate, tokens, err := buildGate(cfg, logger)
	if err != nil {
		return fmt.Errorf("init identity gate: %w", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	repo := repository.New(st)
	agg := ratings.NewAggregator(repo.Ratings, time.Duration(cfg.RecomputeTimeoutSecs)*time.Second, logger)
	reconciler := ratings.NewReconciler(agg, ratings.ReconcilerOptions{
		QueueSize:   cfg.ReconcileQueueSize,
		MaxAttempts: cfg.ReconcileMaxAttempts,
		Interval:    time.Duration(cfg.ReconcileIntervalSecs) * time.Second,
		Logger:      logger,
	})
	go func() {
		if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("reconciler stopped")
		}
	}()

	server := httpserver.New(cfg, httpserver.Deps{
		Health:    st,
		Repo:      repo,
		Gate:      gate,
		Tokens:    tokens,
		Ledger:    ratings.NewLedger(repo.Ratings, agg, logger),
		Favorites: favorites.NewSet(repo.Favorites, logger),
		Logger:    logger,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	if n := reconciler.Drain(shutdownCtx); n > 0 {
		logger.Info().Int("repaired", n).Msg("drained repair queue")
	}
	return serveErr
}

// buildGate prefers the remote identity service when one is configured;
// otherwise tokens are issued and verified locally.
func buildGate(cfg config.Config, logger zerolog.Logger) (identity.Gate, *identity.JWT, error) {
	if cfg.IdentityURL != "" {
		gate, err := identity.NewHTTPGate(cfg.IdentityURL, cfg.IdentityAPIKey, time.Duration(cfg.IdentityTimeoutSecs)*time.Second, logger)
		if err != nil {
			return nil, nil, err
		}
		return gate, nil, nil
	}
	tokens, err := identity.NewJWT(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	if err != nil {
		return nil, nil, err
	}
	return tokens, tokens, nil
}
