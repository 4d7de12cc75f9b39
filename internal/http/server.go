package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/config"
	"github.com/Clark-Hu/recipe-box/internal/favorites"
	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/logging"
	"github.com/Clark-Hu/recipe-box/internal/ratings"
	"github.com/Clark-Hu/recipe-box/internal/repository"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Health    HealthChecker
	Repo      *repository.Repository
	Gate      identity.Gate
	Tokens    *identity.JWT // nil when identity is delegated to a remote verifier
	Ledger    *ratings.Ledger
	Favorites *favorites.Set
	Logger    zerolog.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	deps    Deps
	logger  zerolog.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identity.TokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observeDuration)

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Route("/auth", func(r chi.Router) {
		if s.cfg.AuthRateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(s.cfg.AuthRateLimitPerMin, time.Minute))
		}
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.requireAuth).Get("/me", s.handleMe)
	})
	api.Route("/rating", func(r chi.Router) {
		r.With(s.requireAuth).Post("/", s.handleSubmitRating)
		r.Get("/{recipeId}", s.handleListRatings)
		r.With(s.requireAuth).Delete("/{ratingId}", s.handleDeleteRating)
	})
	api.Route("/favorites", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListFavorites)
		r.Get("/{recipeId}", s.handleFavoriteStatus)
		r.Post("/{recipeId}", s.handleAddFavorite)
		r.Delete("/{recipeId}", s.handleRemoveFavorite)
		r.Post("/{recipeId}/toggle", s.handleToggleFavorite)
	})
	api.Route("/recipes", func(r chi.Router) {
		r.Get("/", s.handleListRecipes)
		r.Get("/search", s.handleSearchRecipes)
		r.Get("/{id}", s.handleGetRecipe)
		r.With(s.requireAuth).Post("/", s.handleCreateRecipe)
		r.With(s.requireAuth).Put("/{id}", s.handleUpdateRecipe)
		r.With(s.requireAuth).Delete("/{id}", s.handleDeleteRecipe)
	})

	// The web client calls the same routes under /api.
	s.router.Mount("/api", api)
	s.router.Mount("/", api)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.deps.Health == nil || s.deps.Health.HealthCheck(ctx) != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
