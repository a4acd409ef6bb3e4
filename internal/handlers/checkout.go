package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"tixmojo/internal/models"
	"tixmojo/internal/services"
)

// CheckoutHandler drives checkout sessions over HTTP. Each live session
// gets a server-side flow holding its step and countdown; flows are
// rebuilt from the session store on demand, so a restart only loses the
// in-memory countdown, never the session itself.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	gateway  services.PaymentGateway
	store    sessions.Store

	mu    sync.Mutex
	flows map[string]*services.CheckoutFlow
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService, gateway services.PaymentGateway, store sessions.Store) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		gateway:  gateway,
		store:    store,
		flows:    make(map[string]*services.CheckoutFlow),
	}
}

// sessionResponse is the JSON view of a checkout session
type sessionResponse struct {
	ID               string                `json:"id"`
	Status           models.SessionStatus  `json:"status"`
	Step             services.FlowStep     `json:"step"`
	EventID          int                   `json:"event_id"`
	Cart             *models.Cart          `json:"cart"`
	Totals           models.Totals         `json:"totals"`
	BuyerInfo        *models.BuyerInfo     `json:"buyer_info,omitempty"`
	PaymentInfo      *models.MaskedCard    `json:"payment_info,omitempty"`
	PromoCode        string                `json:"promo_code,omitempty"`
	DiscountRate     float64               `json:"discount_rate"`
	OrderID          string                `json:"order_id,omitempty"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	ExpiresAt        time.Time             `json:"expires_at"`
	BuyerDefaults    *models.BuyerInfo     `json:"buyer_defaults,omitempty"`
}

func (h *CheckoutHandler) sessionView(session *models.CheckoutSession, step services.FlowStep) sessionResponse {
	return sessionResponse{
		ID:               session.ID,
		Status:           session.Status,
		Step:             step,
		EventID:          session.EventID,
		Cart:             session.Cart,
		Totals:           session.Totals(),
		BuyerInfo:        session.BuyerInfo,
		PaymentInfo:      session.PaymentInfo,
		PromoCode:        session.PromoCode,
		DiscountRate:     session.DiscountRate,
		OrderID:          session.OrderID,
		RemainingSeconds: int(h.checkout.Remaining(session) / time.Second),
		ExpiresAt:        session.ExpiresAt,
	}
}

// stepFor maps a stored status to the flow step a fresh client should
// land on.
func stepFor(status models.SessionStatus) services.FlowStep {
	switch status {
	case models.SessionBuyerInfoValidated:
		return services.StepPaymentInfo
	case models.SessionPaymentSucceeded:
		return services.StepCompleted
	case models.SessionExpired:
		return services.StepExpired
	default:
		return services.StepBuyerInfo
	}
}

// CreateSession handles POST /checkout/sessions: it commits the current
// cart into a new time-boxed session.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	browsing, err := h.store.Get(r, sessionName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	cartData, _ := browsing.Values[cartSessionKey].(string)
	var cart models.Cart
	if cartData != "" {
		if err := json.Unmarshal([]byte(cartData), &cart); err != nil {
			writeError(w, http.StatusBadRequest, "cart is corrupted")
			return
		}
	}

	shopperKey, _ := browsing.Values[shopperIDKey].(string)
	if shopperKey == "" {
		shopperKey = uuid.NewString()
		browsing.Values[shopperIDKey] = shopperKey
	}
	if err := browsing.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	session, err := h.checkout.CreateSession(r.Context(), shopperKey, 0, &cart)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	flow := h.registerFlow(session)
	response := h.sessionView(session, flow.Step())
	response.BuyerDefaults = buyerDefaultsFrom(browsing)
	writeJSON(w, http.StatusCreated, response)
}

// buyerDefaultsFrom returns buyer info remembered from an earlier
// checkout in the same browsing session, for form prefill. Guests who
// have never checked out get nothing.
func buyerDefaultsFrom(browsing *sessions.Session) *models.BuyerInfo {
	data, _ := browsing.Values[buyerDefaultsKey].(string)
	if data == "" {
		return nil
	}

	var info models.BuyerInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil
	}
	return &info
}

// GetSession handles GET /checkout/sessions/{id}. The remaining time in
// the response is always derived from the fixed deadline.
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	step := stepFor(session.Status)
	h.mu.Lock()
	if flow, ok := h.flows[id]; ok {
		step = flow.Step()
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.sessionView(session, step))
}

// SubmitBuyerInfo handles POST /checkout/sessions/{id}/buyer-info
func (h *CheckoutHandler) SubmitBuyerInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var info models.BuyerInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flow, err := h.flowFor(r, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := flow.SubmitBuyerInfo(r.Context(), info); err != nil {
		writeServiceError(w, err)
		return
	}

	// Remember the validated details so the next checkout in this
	// browsing session can prefill them.
	if browsing, err := h.store.Get(r, sessionName); err == nil {
		if data, err := json.Marshal(info); err == nil {
			browsing.Values[buyerDefaultsKey] = string(data)
			if err := browsing.Save(r, w); err != nil {
				log.Printf("handlers: failed to save buyer defaults: %v", err)
			}
		}
	}

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionView(session, flow.Step()))
}

type promoRequest struct {
	Code string `json:"code"`
}

// ApplyPromo handles POST /checkout/sessions/{id}/promo. An invalid
// code is a normal response, not an error; the session keeps whatever
// discount it already had.
func (h *CheckoutHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	application, err := h.checkout.ApplyPromo(r.Context(), id, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"promo":  application,
		"totals": session.Totals(),
	})
}

// SubmitPayment handles POST /checkout/sessions/{id}/payment. The card
// payload is used for the gateway call and discarded; only the masked
// reference survives in the completed session.
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var card models.PaymentCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flow, err := h.flowFor(r, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	orderID, err := flow.SubmitPayment(r.Context(), card)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.dropFlow(id)

	// The purchase is done; clear the cart for the next one.
	if browsing, err := h.store.Get(r, sessionName); err == nil {
		delete(browsing.Values, cartSessionKey)
		if err := browsing.Save(r, w); err != nil {
			log.Printf("handlers: failed to clear cart after purchase: %v", err)
		}
	}

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := h.sessionView(session, services.StepCompleted)
	response.OrderID = orderID
	writeJSON(w, http.StatusOK, response)
}

// CancelSession handles POST /checkout/sessions/{id}/cancel
func (h *CheckoutHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	flow, ok := h.flows[id]
	delete(h.flows, id)
	h.mu.Unlock()

	if ok {
		flow.Cancel(r.Context())
	} else if _, err := h.checkout.ExpireSession(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionView(session, services.StepExpired))
}

// flowFor returns the live flow for a session, rebuilding it from the
// store if this is the first touch since startup.
func (h *CheckoutHandler) flowFor(r *http.Request, id string) (*services.CheckoutFlow, error) {
	h.mu.Lock()
	if flow, ok := h.flows[id]; ok {
		h.mu.Unlock()
		return flow, nil
	}
	h.mu.Unlock()

	session, err := h.checkout.GetSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionExpired {
		return nil, models.ErrSessionExpired
	}

	return h.registerFlow(session), nil
}

// registerFlow creates and tracks a flow for a session. The expiry
// callback evicts the flow so an expired session cannot pin memory.
func (h *CheckoutHandler) registerFlow(session *models.CheckoutSession) *services.CheckoutFlow {
	h.mu.Lock()
	defer h.mu.Unlock()

	if flow, ok := h.flows[session.ID]; ok {
		return flow
	}

	id := session.ID
	flow := services.NewCheckoutFlow(h.checkout, h.gateway, session, nil, func() {
		h.dropFlow(id)
	})
	h.flows[id] = flow
	return flow
}

func (h *CheckoutHandler) dropFlow(id string) {
	h.mu.Lock()
	delete(h.flows, id)
	h.mu.Unlock()
}
