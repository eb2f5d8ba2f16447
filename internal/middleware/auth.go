package middleware

import (
	"context"
	"net/http"
	"strings"

	"social-fitness-backend/internal/models"

	"github.com/rs/zerolog/log"
)

type contextKey string

const userKey contextKey = "user"

// IdentityResolver maps a bearer token to a local user
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware rejects requests without a valid bearer token
func AuthMiddleware(identity IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(authHeader)
			if !ok {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			user, err := identity.Resolve(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token rejected")
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid bearer token is
// present and lets the request through anonymously otherwise
func OptionalAuthMiddleware(identity IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if ok {
				user, err := identity.Resolve(r.Context(), token)
				if err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				} else {
					log.Debug().Err(err).Msg("Ignoring invalid optional token")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithUser stores the authenticated user in the context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser extracts the authenticated user from context, or nil
func GetUser(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID extracts the authenticated user ID from context, or ""
func GetUserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
