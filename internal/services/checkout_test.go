package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixmojo/internal/models"
	"tixmojo/internal/repositories"
)

func testTicketType() *models.TicketType {
	return &models.TicketType{
		ID:       1,
		EventID:  7,
		Name:     "General Admission",
		Price:    3900,
		Currency: "AUD",
		Quantity: 100,
		Sold:     10,
	}
}

func testCart() *models.Cart {
	ticketType := testTicketType()
	cart := &models.Cart{
		EventID:    7,
		EventTitle: "Harbour Lights Festival",
		ServiceFee: 1000,
	}
	cart.AddLine(ticketType)
	cart.AddLine(ticketType)
	return cart
}

func validBuyer() models.BuyerInfo {
	return models.BuyerInfo{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane@example.com",
		Phone:     "+61 412 345 678",
	}
}

// newTestCheckout returns a checkout service over an in-memory store
// with a controllable clock.
func newTestCheckout(t *testing.T) (*CheckoutService, *time.Time) {
	t.Helper()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := NewCheckoutService(
		repositories.NewMemorySessionRepository(),
		NewPromoEvaluator(DefaultPromoRules()),
		10*time.Minute,
	)
	service.SetClock(func() time.Time { return current })

	return service, &current
}

func TestCheckoutService_CreateSession(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	assert.Equal(t, models.SessionInitialized, session.Status)
	assert.Equal(t, 7, session.EventID)
	assert.Contains(t, session.ID, "cs_")
	assert.Contains(t, session.ClientSecret, "sec_")
	assert.Equal(t, 10*time.Minute, session.ExpiresAt.Sub(session.CreatedAt))
	assert.Equal(t, 7800, session.Cart.Subtotal())
}

func TestCheckoutService_CreateSessionRejectsEmptyCart(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	_, err := service.CreateSession(ctx, "shopper-1", 0, nil)
	assert.ErrorIs(t, err, models.ErrInvalidCart)

	_, err = service.CreateSession(ctx, "shopper-1", 0, &models.Cart{EventID: 7})
	assert.ErrorIs(t, err, models.ErrInvalidCart)
}

func TestCheckoutService_CreateSessionSnapshotsCart(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	cart := testCart()
	session, err := service.CreateSession(ctx, "shopper-1", 0, cart)
	require.NoError(t, err)

	// Mutating the live cart must not reach the committed snapshot.
	require.NoError(t, cart.SetQuantity(1, 5))
	assert.Equal(t, 2, session.Cart.Line(1).Quantity)
}

func TestCheckoutService_CreateSessionSupersedesPrior(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	first, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	second, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stale, err := service.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, stale.Status)

	live, err := service.GetSession(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInitialized, live.Status)
}

func TestCheckoutService_GetSessionExpiresOnRead(t *testing.T) {
	service, clock := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	buyer := validBuyer()
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, buyer))

	// One second past the deadline.
	*clock = clock.Add(10*time.Minute + time.Second)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, got.Status)
	assert.Nil(t, got.BuyerInfo)
	assert.Equal(t, time.Duration(0), service.Remaining(got))
}

func TestCheckoutService_ApplyBuyerInfo(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionBuyerInfoValidated, got.Status)
	require.NotNil(t, got.BuyerInfo)
	assert.Equal(t, "jane@example.com", got.BuyerInfo.Email)
}

func TestCheckoutService_ApplyBuyerInfoAcceptsCorrections(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	corrected := validBuyer()
	corrected.Email = "jane.smith@example.com"
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, corrected))

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionBuyerInfoValidated, got.Status)
	assert.Equal(t, "jane.smith@example.com", got.BuyerInfo.Email)
}

func TestCheckoutService_ApplyBuyerInfoValidationLeavesSessionUntouched(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	bad := validBuyer()
	bad.Email = "not-an-email"

	err = service.ApplyBuyerInfo(ctx, session.ID, bad)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "email", validationErr.Field)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInitialized, got.Status)
	assert.Nil(t, got.BuyerInfo)
}

func TestCheckoutService_ApplyBuyerInfoAfterExpiry(t *testing.T) {
	service, clock := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	*clock = clock.Add(11 * time.Minute)

	err = service.ApplyBuyerInfo(ctx, session.ID, validBuyer())
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestCheckoutService_ApplyPromo(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	application, err := service.ApplyPromo(ctx, session.ID, "welcome")
	require.NoError(t, err)
	assert.True(t, application.IsValid)
	assert.Equal(t, 0.15, application.DiscountRate)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.15, got.DiscountRate)
	assert.Equal(t, "WELCOME", got.PromoCode)

	totals := got.Totals()
	assert.Equal(t, 7800, totals.Subtotal)
	assert.Equal(t, 1000, totals.ServiceFee)
	assert.Equal(t, 1170, totals.DiscountAmount)
	assert.Equal(t, 7630, totals.Total)
}

func TestCheckoutService_ApplyPromoInvalidCodeKeepsRate(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	_, err = service.ApplyPromo(ctx, session.ID, "TIXMOJO10")
	require.NoError(t, err)

	application, err := service.ApplyPromo(ctx, session.ID, "BOGUS")
	require.NoError(t, err)
	assert.False(t, application.IsValid)
	assert.Equal(t, "Invalid promo code", application.Message)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.10, got.DiscountRate)
	assert.Equal(t, "TIXMOJO10", got.PromoCode)
}

func TestCheckoutService_FinalizePayment(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	masked := &models.MaskedCard{Brand: models.BrandVisa, Last4: "4242"}
	orderID := models.GenerateOrderNumber()
	require.NoError(t, service.FinalizePayment(ctx, session.ID, masked, orderID))

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaymentSucceeded, got.Status)
	assert.Equal(t, orderID, got.OrderID)
	require.NotNil(t, got.PaymentInfo)
	assert.Equal(t, "4242", got.PaymentInfo.Last4)
}

func TestCheckoutService_FinalizePaymentRequiresBuyerInfo(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)

	masked := &models.MaskedCard{Brand: models.BrandVisa, Last4: "4242"}
	err = service.FinalizePayment(ctx, session.ID, masked, models.GenerateOrderNumber())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCheckoutService_CompletedSessionRejectsFurtherChanges(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	masked := &models.MaskedCard{Brand: models.BrandVisa, Last4: "4242"}
	require.NoError(t, service.FinalizePayment(ctx, session.ID, masked, models.GenerateOrderNumber()))

	err = service.ApplyBuyerInfo(ctx, session.ID, validBuyer())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = service.ApplyPromo(ctx, session.ID, "WELCOME")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCheckoutService_ExpireSessionIdempotent(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	expired, err := service.ExpireSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = service.ExpireSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, got.Status)
	assert.Nil(t, got.BuyerInfo)
}

func TestCheckoutService_ExpireSessionSkipsCompleted(t *testing.T) {
	service, _ := newTestCheckout(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "shopper-1", 0, testCart())
	require.NoError(t, err)
	require.NoError(t, service.ApplyBuyerInfo(ctx, session.ID, validBuyer()))

	masked := &models.MaskedCard{Brand: models.BrandVisa, Last4: "4242"}
	require.NoError(t, service.FinalizePayment(ctx, session.ID, masked, models.GenerateOrderNumber()))

	expired, err := service.ExpireSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaymentSucceeded, got.Status)
}

func TestCheckoutService_GetSessionUnknownID(t *testing.T) {
	service, _ := newTestCheckout(t)

	_, err := service.GetSession(context.Background(), "cs_missing")
	assert.True(t, errors.Is(err, models.ErrSessionNotFound))
}
