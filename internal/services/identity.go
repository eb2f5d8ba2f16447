package services

import (
	"context"
	"fmt"
	"strings"

	"social-fitness-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims read from an external auth token
type IdentityClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IdentityResolver maps external auth tokens to internal users
type IdentityResolver struct {
	users  UserStore
	secret []byte
	issuer string
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(users UserStore, secret, issuer string) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Resolve verifies the token and returns the matching user, creating it on
// first successful resolution. Failures are not retried.
func (s *IdentityResolver) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	externalID, name, err := s.verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpsertByExternalID(ctx, externalID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}

// verify validates the token signature and returns the external user id
func (s *IdentityResolver) verify(tokenString string) (string, string, error) {
	if tokenString == "" {
		return "", "", unauthenticated("token required")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims IdentityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", "", unauthenticated("invalid token")
	}

	externalID := strings.TrimSpace(claims.Subject)
	if externalID == "" {
		return "", "", unauthenticated("subject not found in token")
	}

	return externalID, claims.Name, nil
}
