package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixmojo/internal/models"
	"tixmojo/internal/repositories"
	"tixmojo/internal/services"
)

type stubEventRepo struct {
	events map[int]*models.Event
}

func (r *stubEventRepo) GetByID(id int) (*models.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

func (r *stubEventRepo) GetFeatured(limit int) ([]*models.Event, error)  { return r.all(), nil }
func (r *stubEventRepo) GetUpcoming(limit int) ([]*models.Event, error) { return r.all(), nil }

func (r *stubEventRepo) Search(filters repositories.EventSearchFilters) ([]*models.Event, error) {
	return r.all(), nil
}

func (r *stubEventRepo) all() []*models.Event {
	events := make([]*models.Event, 0, len(r.events))
	for _, event := range r.events {
		events = append(events, event)
	}
	return events
}

type stubTicketRepo struct {
	tickets map[int]*models.TicketType
}

func (r *stubTicketRepo) GetByID(id int) (*models.TicketType, error) {
	ticketType, ok := r.tickets[id]
	if !ok {
		return nil, models.ErrTicketTypeNotFound
	}
	return ticketType, nil
}

func (r *stubTicketRepo) GetByEvent(eventID int) ([]*models.TicketType, error) {
	var ticketTypes []*models.TicketType
	for _, tt := range r.tickets {
		if tt.EventID == eventID {
			ticketTypes = append(ticketTypes, tt)
		}
	}
	return ticketTypes, nil
}

func (r *stubTicketRepo) RecordSale(ticketTypeID, quantity int) error { return nil }

type stubGateway struct {
	err error
}

func (g *stubGateway) Confirm(ctx context.Context, session *models.CheckoutSession, card *models.PaymentCard) (*services.Confirmation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &services.Confirmation{Reference: "ref_test"}, nil
}

type testServer struct {
	server   *httptest.Server
	client   *http.Client
	checkout *services.CheckoutService
}

func newTestServer(t *testing.T, gateway services.PaymentGateway) *testServer {
	t.Helper()

	eventRepo := &stubEventRepo{events: map[int]*models.Event{
		7: {
			ID:        7,
			Title:     "Harbour Lights Festival",
			Status:    models.EventPublished,
			StartDate: time.Now().Add(30 * 24 * time.Hour),
		},
	}}
	ticketRepo := &stubTicketRepo{tickets: map[int]*models.TicketType{
		1: {
			ID:        1,
			EventID:   7,
			Name:      "General Admission",
			Price:     3900,
			Currency:  "AUD",
			Quantity:  100,
			Sold:      10,
			SaleStart: time.Now().Add(-time.Hour),
			SaleEnd:   time.Now().Add(24 * time.Hour),
		},
		2: {
			ID:        2,
			EventID:   7,
			Name:      "Early Bird",
			Price:     2900,
			Currency:  "AUD",
			Quantity:  50,
			SaleStart: time.Now().Add(-48 * time.Hour),
			SaleEnd:   time.Now().Add(-time.Hour),
		},
	}}

	eventService := services.NewEventService(eventRepo)
	ticketService := services.NewTicketService(ticketRepo)
	checkout := services.NewCheckoutService(
		repositories.NewMemorySessionRepository(),
		services.NewPromoEvaluator(services.DefaultPromoRules()),
		10*time.Minute,
	)

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))

	cartHandler := NewCartHandler(eventService, ticketService, 1000, store)
	checkoutHandler := NewCheckoutHandler(checkout, gateway, store)
	publicHandler := NewPublicHandler(eventService, ticketService)

	router := chi.NewRouter()
	router.Get("/events/{id}", publicHandler.GetEvent)
	router.Get("/events/{id}/ticket-types", publicHandler.ListTicketTypes)
	router.Get("/cart", cartHandler.ViewCart)
	router.Post("/cart/add", cartHandler.AddToCart)
	router.Post("/cart/update", cartHandler.UpdateCart)
	router.Post("/checkout/sessions", checkoutHandler.CreateSession)
	router.Get("/checkout/sessions/{id}", checkoutHandler.GetSession)
	router.Post("/checkout/sessions/{id}/buyer-info", checkoutHandler.SubmitBuyerInfo)
	router.Post("/checkout/sessions/{id}/promo", checkoutHandler.ApplyPromo)
	router.Post("/checkout/sessions/{id}/payment", checkoutHandler.SubmitPayment)
	router.Post("/checkout/sessions/{id}/cancel", checkoutHandler.CancelSession)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		server:   server,
		client:   &http.Client{Jar: jar},
		checkout: checkout,
	}
}

func (ts *testServer) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := ts.client.Post(ts.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (ts *testServer) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := ts.client.Get(ts.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func buyerPayload() map[string]string {
	return map[string]string{
		"first_name": "Jane",
		"last_name":  "Smith",
		"email":      "jane@example.com",
		"phone":      "+61 412 345 678",
	}
}

func cardPayload() map[string]string {
	return map[string]string{
		"cardholder_name": "Jane Smith",
		"number":          "4242424242424242",
		"expiry":          "12/49",
		"cvv":             "123",
		"postal_code":     "2000",
	}
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()

	resp, _ := ts.postJSON(t, "/cart/add", map[string]int{"event_id": 7, "ticket_type_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.postJSON(t, "/cart/add", map[string]int{"event_id": 7, "ticket_type_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.postJSON(t, "/checkout/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sessionID, _ := body["id"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestCheckout_FullPurchase(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	sessionID := ts.createSession(t)

	resp, body := ts.getJSON(t, "/checkout/sessions/"+sessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "initialized", body["status"])
	assert.Equal(t, "buyer_info", body["step"])
	assert.InDelta(t, 600, body["remaining_seconds"], 5)

	totals := body["totals"].(map[string]any)
	assert.Equal(t, float64(7800), totals["subtotal"])
	assert.Equal(t, float64(8800), totals["total"])

	resp, body = ts.postJSON(t, "/checkout/sessions/"+sessionID+"/buyer-info", buyerPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "buyer_info_validated", body["status"])
	assert.Equal(t, "payment_info", body["step"])

	resp, body = ts.postJSON(t, "/checkout/sessions/"+sessionID+"/promo", map[string]string{"code": "WELCOME"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promo := body["promo"].(map[string]any)
	assert.Equal(t, true, promo["is_valid"])
	totals = body["totals"].(map[string]any)
	assert.Equal(t, float64(1170), totals["discount_amount"])
	assert.Equal(t, float64(7630), totals["total"])

	resp, body = ts.postJSON(t, "/checkout/sessions/"+sessionID+"/payment", cardPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payment_succeeded", body["status"])
	assert.Contains(t, body["order_id"], "ORD-")

	payment := body["payment_info"].(map[string]any)
	assert.Equal(t, "visa", payment["brand"])
	assert.Equal(t, "4242", payment["last4"])

	// The cart is cleared once the purchase completes.
	resp, body = ts.getJSON(t, "/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := body["cart"].(map[string]any)
	assert.Empty(t, cart["lines"])
}

func TestCheckout_CreateSessionRequiresCart(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})

	resp, body := ts.postJSON(t, "/checkout/sessions", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestCheckout_BuyerValidationError(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	sessionID := ts.createSession(t)

	payload := buyerPayload()
	payload["email"] = "not-an-email"

	resp, body := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/buyer-info", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "email", body["field"])

	// The session is untouched by the failed submission.
	resp, body = ts.getJSON(t, "/checkout/sessions/"+sessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "initialized", body["status"])
}

func TestCheckout_DeclinedPaymentIsRetryable(t *testing.T) {
	gateway := &stubGateway{err: models.NewPaymentError("card declined")}
	ts := newTestServer(t, gateway)
	sessionID := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/buyer-info", buyerPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/payment", cardPayload())
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	// The shopper sees a generic message, never processor internals.
	assert.NotContains(t, body["error"], "declined")

	gateway.err = nil
	resp, body = ts.postJSON(t, "/checkout/sessions/"+sessionID+"/payment", cardPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payment_succeeded", body["status"])
}

func TestCheckout_ExpiredSessionIsGone(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	sessionID := ts.createSession(t)

	_, err := ts.checkout.ExpireSession(context.Background(), sessionID)
	require.NoError(t, err)

	resp, body := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/buyer-info", buyerPayload())
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, body = ts.getJSON(t, "/checkout/sessions/"+sessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "expired", body["status"])
	assert.Nil(t, body["buyer_info"])
}

func TestCheckout_CancelSession(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	sessionID := ts.createSession(t)

	resp, body := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "expired", body["status"])
}

func TestCheckout_UnknownSession(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})

	resp, _ := ts.getJSON(t, "/checkout/sessions/cs_missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckout_BuyerDefaultsPrefillNextSession(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	sessionID := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/checkout/sessions/"+sessionID+"/buyer-info", buyerPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A second checkout from the same browser offers the remembered
	// details for prefill.
	resp, _ = ts.postJSON(t, "/cart/add", map[string]int{"event_id": 7, "ticket_type_id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := ts.postJSON(t, "/checkout/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	defaults, ok := body["buyer_defaults"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane", defaults["first_name"])
	assert.Equal(t, "jane@example.com", defaults["email"])
}

func TestCart_AddHonoursSaleWindow(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})

	resp, _ := ts.postJSON(t, "/cart/add", map[string]int{"event_id": 7, "ticket_type_id": 1})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Sale window for Early Bird closed an hour ago.
	resp, body := ts.postJSON(t, "/cart/add", map[string]int{"event_id": 7, "ticket_type_id": 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
