package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-fitness-backend/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &services.Error{Kind: services.KindNotFound, Message: "event not found"}, http.StatusNotFound},
		{"forbidden", &services.Error{Kind: services.KindForbidden, Message: "friends only event"}, http.StatusForbidden},
		{"capacity", &services.Error{Kind: services.KindCapacityExceeded, Message: "event is full"}, http.StatusConflict},
		{"validation", &services.Error{Kind: services.KindValidation, Message: "title is required"}, http.StatusBadRequest},
		{"unauthenticated", &services.Error{Kind: services.KindUnauthenticated, Message: "invalid token"}, http.StatusUnauthorized},
		{"wrapped", fmt.Errorf("outer: %w", &services.Error{Kind: services.KindNotFound}), http.StatusNotFound},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRespondServiceErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, errors.New("pq: password authentication failed"), "Failed to get event")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to get event"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	respondServiceError(rec, &services.Error{Kind: services.KindCapacityExceeded, Message: "event is full"}, "Failed to save RSVP")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"event is full"}`, rec.Body.String())
}
