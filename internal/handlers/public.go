package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tixmojo/internal/repositories"
	"tixmojo/internal/services"
)

// PublicHandler serves the event catalog
type PublicHandler struct {
	eventService  *services.EventService
	ticketService *services.TicketService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(eventService *services.EventService, ticketService *services.TicketService) *PublicHandler {
	return &PublicHandler{
		eventService:  eventService,
		ticketService: ticketService,
	}
}

// ListEvents handles GET /events
func (h *PublicHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.eventService.GetUpcomingEvents(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// FeaturedEvents handles GET /events/featured
func (h *PublicHandler) FeaturedEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.eventService.GetFeaturedEvents(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// GetEvent handles GET /events/{id}
func (h *PublicHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	event, err := h.eventService.GetEvent(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListTicketTypes handles GET /events/{id}/ticket-types
func (h *PublicHandler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	// 404 for unpublished events rather than leaking their ticketing.
	if _, err := h.eventService.GetEvent(id); err != nil {
		writeServiceError(w, err)
		return
	}

	ticketTypes, err := h.ticketService.ListTicketTypes(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ticket_types": ticketTypes})
}

// SearchEvents handles GET /search
func (h *PublicHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	filters := repositories.EventSearchFilters{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		City:     query.Get("city"),
		Limit:    limit,
		Offset:   offset,
	}

	events, err := h.eventService.SearchEvents(filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
