package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-fitness-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, token string) (*models.User, error) {
	if token == "good" {
		return &models.User{ID: "u1", Name: "Una"}, nil
	}
	return nil, errors.New("invalid token")
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetUserID(r.Context())
		if id == "" {
			id = "anonymous"
		}
		w.Write([]byte(id))
	})
}

func serve(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(stubResolver{})(echoUser())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "Invalid authorization header format"},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	handler := OptionalAuthMiddleware(stubResolver{})(echoUser())

	assert.Equal(t, "u1", serve(handler, "Bearer good").Body.String())
	assert.Equal(t, "anonymous", serve(handler, "").Body.String())
	assert.Equal(t, "anonymous", serve(handler, "Bearer bad").Body.String())
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("Token abc")
	assert.False(t, ok)
}
