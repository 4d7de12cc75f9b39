package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

// ErrUnavailable is returned while the remote verifier is failing.
var ErrUnavailable = errors.New("identity: verifier unavailable")

// HTTPGate delegates verification to a remote service:
//
//	GET {base}/verify  Authorization: Bearer <credential>
//	200 {"userId": "..."} | 401/403 rejected
type HTTPGate struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[string]
	logger  zerolog.Logger
}

func NewHTTPGate(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPGate, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse identity url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("identity url %q must be absolute", baseURL)
	}
	logger = logger.With().Str("component", "identity").Logger()

	g := &HTTPGate{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
	g.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "identity-verifier",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// A rejected credential means the verifier is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrUnauthenticated)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return g, nil
}

// Verify implements Gate.
func (g *HTTPGate) Verify(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", unauthenticated("No token, authorization denied")
	}
	userID, err := g.cb.Execute(func() (string, error) {
		return g.verify(ctx, credential)
	})
	if err == nil {
		return userID, nil
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		return "", err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", domain.Storage("identity verifier", ErrUnavailable)
	}
	g.logger.Error().Err(err).Msg("identity verification failed")
	return "", domain.Storage("identity verifier", err)
}

func (g *HTTPGate) verify(ctx context.Context, credential string) (string, error) {
	endpoint := g.baseURL.ResolveReference(&url.URL{Path: g.baseURL.Path + "/verify"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeVerifyResponse(io.LimitReader(resp.Body, 1<<16))
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", unauthenticated("Token is not valid")
	default:
		return "", fmt.Errorf("identity: upstream returned %d", resp.StatusCode)
	}
}

type verifyResponse struct {
	UserID string `json:"userId"`
}

func decodeVerifyResponse(r io.Reader) (string, error) {
	var payload verifyResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	id := strings.TrimSpace(payload.UserID)
	if id == "" {
		return "", errors.New("identity: verify response missing userId")
	}
	if !domain.ValidID(id) {
		return "", unauthenticated("Token is not valid")
	}
	return strings.ToLower(id), nil
}
