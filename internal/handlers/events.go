package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/models"
	"social-fitness-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventHandler handles event, RSVP and calendar HTTP requests
type EventHandler struct {
	directory *services.EventDirectory
	admission *services.AdmissionController
	calendar  *services.CalendarService
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	directory *services.EventDirectory,
	admission *services.AdmissionController,
	calendar *services.CalendarService,
) *EventHandler {
	return &EventHandler{
		directory: directory,
		admission: admission,
		calendar:  calendar,
	}
}

// RSVPRequest represents the request body for an RSVP
type RSVPRequest struct {
	Status models.RSVPStatus `json:"status"`
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.EventInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.directory.CreateEvent(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to create event")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("event_id", event.ID).
		Str("visibility", string(event.Visibility)).
		Msg("Event created")

	respondJSON(w, http.StatusCreated, event)
}

// SearchEvents handles GET /api/v1/events
func (h *EventHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.directory.Search(ctx, viewerID, params)
	if err != nil {
		respondServiceError(w, err, "Failed to search events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// GetEvent handles GET /api/v1/events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	event, err := h.directory.GetEvent(ctx, eventID, viewerID)
	if err != nil {
		respondServiceError(w, err, "Failed to get event")
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /api/v1/events/{event_id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	var req services.EventPatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.directory.UpdateEvent(ctx, eventID, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to update event")
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/v1/events/{event_id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	if err := h.directory.DeleteEvent(ctx, eventID, userID); err != nil {
		respondServiceError(w, err, "Failed to delete event")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("event_id", eventID).
		Msg("Event deleted")

	w.WriteHeader(http.StatusNoContent)
}

// SetRSVP handles POST /api/v1/events/{event_id}/rsvp
func (h *EventHandler) SetRSVP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	var req RSVPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.admission.SetRSVP(ctx, eventID, userID, req.Status)
	if err != nil {
		respondServiceError(w, err, "Failed to save RSVP")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("event_id", eventID).
		Str("status", string(req.Status)).
		Str("outcome", string(result.Outcome)).
		Msg("RSVP applied")

	statusCode := http.StatusOK
	if result.Outcome == services.RSVPPendingApproval {
		statusCode = http.StatusAccepted
	}
	respondJSON(w, statusCode, result)
}

// ListRSVPs handles GET /api/v1/events/{event_id}/rsvps
func (h *EventHandler) ListRSVPs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	rsvps, err := h.admission.ListRSVPs(ctx, eventID, viewerID)
	if err != nil {
		respondServiceError(w, err, "Failed to list RSVPs")
		return
	}
	if rsvps == nil {
		rsvps = []*models.RSVP{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

// ListJoinRequests handles GET /api/v1/events/{event_id}/join-requests
func (h *EventHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	requests, err := h.admission.ListJoinRequests(ctx, eventID, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to list join requests")
		return
	}
	if requests == nil {
		requests = []*models.JoinRequest{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"join_requests": requests})
}

// AcceptJoinRequest handles POST /api/v1/events/{event_id}/join-requests/{request_id}/accept
func (h *EventHandler) AcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	h.respondJoinRequest(w, r, true)
}

// RejectJoinRequest handles POST /api/v1/events/{event_id}/join-requests/{request_id}/reject
func (h *EventHandler) RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	h.respondJoinRequest(w, r, false)
}

func (h *EventHandler) respondJoinRequest(w http.ResponseWriter, r *http.Request, accept bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")
	requestID := chi.URLParam(r, "request_id")

	req, err := h.admission.RespondJoinRequest(ctx, eventID, requestID, userID, accept)
	if err != nil {
		respondServiceError(w, err, "Failed to answer join request")
		return
	}

	respondJSON(w, http.StatusOK, req)
}

// ExportCalendar handles GET /api/v1/events/{event_id}/ics
func (h *EventHandler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	body, err := h.calendar.Export(ctx, eventID, viewerID)
	if err != nil {
		respondServiceError(w, err, "Failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=event.ics")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ShareCalendar handles POST /api/v1/events/{event_id}/ics/link
func (h *EventHandler) ShareCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	link, err := h.calendar.ShareLink(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, services.ErrCalendarSharingDisabled) {
			respondError(w, err.Error(), http.StatusNotImplemented)
			return
		}
		respondServiceError(w, err, "Failed to share calendar")
		return
	}

	respondJSON(w, http.StatusOK, link)
}

// parseSearchParams reads the optional search filters from the query string
func parseSearchParams(q url.Values) (services.SearchParams, error) {
	var (
		params services.SearchParams
		err    error
	)

	if params.Latitude, err = floatParam(q, "latitude"); err != nil {
		return params, err
	}
	if params.Longitude, err = floatParam(q, "longitude"); err != nil {
		return params, err
	}
	if params.RadiusKm, err = floatParam(q, "radius_km"); err != nil {
		return params, err
	}
	if params.StartDate, err = timeParam(q, "start_date"); err != nil {
		return params, err
	}
	if params.EndDate, err = timeParam(q, "end_date"); err != nil {
		return params, err
	}

	var box [4]*float64
	for i, name := range []string{"min_lat", "max_lat", "min_lng", "max_lng"} {
		if box[i], err = floatParam(q, name); err != nil {
			return params, err
		}
	}
	if box[0] != nil && box[1] != nil && box[2] != nil && box[3] != nil {
		params.Area = &models.BoundingBox{
			MinLat: *box[0],
			MaxLat: *box[1],
			MinLng: *box[2],
			MaxLng: *box[3],
		}
	}

	return params, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp", name)
	}
	return &t, nil
}
