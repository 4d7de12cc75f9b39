package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/metrics"
)

// requireAuth verifies the request credential through the injected gate and
// stores the user id on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Gate == nil {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
			return
		}
		userID, err := s.deps.Gate.Verify(r.Context(), identity.CredentialFromRequest(r))
		if errors.Is(err, identity.ErrUnavailable) {
			s.log(r).Warn().Err(err).Msg("identity verifier unavailable")
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Authentication service unavailable")
			return
		}
		if err != nil {
			s.respondDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
	})
}

func observeDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
