// Package identity turns a request credential into a trusted user id.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

// Gate verifies a credential and returns the user id it belongs to. It fails
// with a domain.KindUnauthenticated error for any credential it rejects.
type Gate interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// TokenHeader is the alternative header accepted alongside Authorization.
const TokenHeader = "x-auth-token"

// CredentialFromRequest extracts a bearer token from Authorization or the
// x-auth-token header. It returns "" when neither is present.
func CredentialFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

func unauthenticated(msg string) error {
	return domain.E(domain.KindUnauthenticated, msg)
}

type ctxKey struct{}

// WithUserID stores a verified user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the verified user id on ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
