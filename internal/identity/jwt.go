package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the session length users expect from the web client.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims carries the user id in the "userId" claim.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWT issues and verifies HS256 tokens locally.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("identity: jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID.
func (j *JWT) Issue(userID string) (string, error) {
	now := j.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify implements Gate.
func (j *JWT) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", unauthenticated("No token, authorization denied")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", unauthenticated("Token expired")
		}
		return "", unauthenticated("Token is not valid")
	}
	if claims.UserID == "" {
		return "", unauthenticated("Token is not valid")
	}
	return claims.UserID, nil
}
