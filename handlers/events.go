package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"harborlight/models"
	"harborlight/services/events"
)

// EventsHandler serves the event list endpoints.
type EventsHandler struct {
	Service *events.Service
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(service *events.Service) *EventsHandler {
	return &EventsHandler{Service: service}
}

// EventsResponse is the payload for the event list endpoints.
type EventsResponse struct {
	Events      []models.Event `json:"events"`
	Total       int            `json:"total"`
	GeneratedAt string         `json:"generatedAt"`
}

// GetUpcoming returns normalized upcoming events, soonest first. A CMS
// failure yields an empty list, not an error.
func (h *EventsHandler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	evs := h.Service.FetchUpcoming(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventsResponse{
		Events:      evs,
		Total:       len(evs),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetAll returns every normalized event, past and future.
func (h *EventsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	evs := h.Service.FetchAll(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventsResponse{
		Events:      evs,
		Total:       len(evs),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// Options handles CORS preflight.
func (h *EventsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
