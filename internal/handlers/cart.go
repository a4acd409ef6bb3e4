package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"

	"tixmojo/internal/models"
	"tixmojo/internal/services"
)

const (
	sessionName      = "session"
	cartSessionKey   = "cart"
	shopperIDKey     = "shopper_key"
	buyerDefaultsKey = "buyer_defaults"
)

// CartHandler manages the shopper's cart, kept in the browsing session
// as a JSON blob. The cart holds tickets for one event at a time;
// adding a ticket for a different event replaces the cart.
type CartHandler struct {
	eventService  *services.EventService
	ticketService *services.TicketService
	serviceFee    int
	store         sessions.Store
}

// NewCartHandler creates a new cart handler. serviceFee is the fixed
// per-order fee in cents folded into every cart.
func NewCartHandler(eventService *services.EventService, ticketService *services.TicketService, serviceFee int, store sessions.Store) *CartHandler {
	return &CartHandler{
		eventService:  eventService,
		ticketService: ticketService,
		serviceFee:    serviceFee,
		store:         store,
	}
}

type cartMutationRequest struct {
	EventID      int `json:"event_id"`
	TicketTypeID int `json:"ticket_type_id"`
	Quantity     int `json:"quantity"`
}

// cartResponse pairs the cart with its computed totals
type cartResponse struct {
	Cart   *models.Cart  `json:"cart"`
	Totals models.Totals `json:"totals"`
}

// ViewCart handles GET /cart
func (h *CartHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, sessionName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	cart := h.getCartFromSession(session)
	writeJSON(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.ComputeTotals(0)})
}

// AddToCart handles POST /cart/add
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.eventService.GetEvent(req.EventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ticketType, err := h.ticketService.GetTicketType(req.TicketTypeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if ticketType.EventID != event.ID {
		writeError(w, http.StatusBadRequest, "ticket type does not belong to this event")
		return
	}

	if !ticketType.IsAvailable() {
		writeError(w, http.StatusConflict, "tickets are no longer available")
		return
	}

	session, err := h.store.Get(r, sessionName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	cart := h.getCartFromSession(session)

	// Carts are single-event; switching events starts over.
	if cart.EventID != 0 && cart.EventID != event.ID {
		cart = &models.Cart{}
	}
	if cart.EventID == 0 {
		cart.EventID = event.ID
		cart.EventTitle = event.Title
		cart.ServiceFee = h.serviceFee
	}

	cart.AddLine(ticketType)

	h.saveCartToSession(session, cart)
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.ComputeTotals(0)})
}

// UpdateCart handles POST /cart/update
func (h *CartHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.store.Get(r, sessionName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	cart := h.getCartFromSession(session)
	if cart.Line(req.TicketTypeID) == nil {
		writeError(w, http.StatusNotFound, "ticket type is not in the cart")
		return
	}

	if err := cart.SetQuantity(req.TicketTypeID, req.Quantity); err != nil {
		writeServiceError(w, err)
		return
	}

	if cart.IsEmpty() {
		cart = &models.Cart{}
	}

	h.saveCartToSession(session, cart)
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.ComputeTotals(0)})
}

// ClearCart handles POST /cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, sessionName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	cart := &models.Cart{}
	h.saveCartToSession(session, cart)
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{Cart: cart, Totals: cart.ComputeTotals(0)})
}

func (h *CartHandler) getCartFromSession(session *sessions.Session) *models.Cart {
	cartData, ok := session.Values[cartSessionKey]
	if !ok {
		return &models.Cart{}
	}

	cartJSON, ok := cartData.(string)
	if !ok {
		return &models.Cart{}
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(cartJSON), &cart); err != nil {
		return &models.Cart{}
	}

	return &cart
}

func (h *CartHandler) saveCartToSession(session *sessions.Session, cart *models.Cart) {
	cartJSON, err := json.Marshal(cart)
	if err != nil {
		return
	}
	session.Values[cartSessionKey] = string(cartJSON)
}
