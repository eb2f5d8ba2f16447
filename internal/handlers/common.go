package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"social-fitness-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// statusForError maps a service error to its HTTP status
func statusForError(err error) int {
	var serviceErr *services.Error
	if !errors.As(err, &serviceErr) {
		return http.StatusInternalServerError
	}

	switch serviceErr.Kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindCapacityExceeded:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes a domain error as-is and hides internal ones
func respondServiceError(w http.ResponseWriter, err error, msg string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
		respondError(w, msg, status)
		return
	}
	respondError(w, err.Error(), status)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
