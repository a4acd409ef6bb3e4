package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tixmojo/internal/models"
)

// FlowStep identifies the step a checkout flow is on
type FlowStep string

const (
	StepBuyerInfo   FlowStep = "buyer_info"
	StepPaymentInfo FlowStep = "payment_info"
	StepCompleted   FlowStep = "completed"
	StepExpired     FlowStep = "expired"
)

// CheckoutFlow drives one session through the buyer-info, payment-info
// and confirmation steps. It validates each step before touching the
// session, holds form values between steps, and delegates the final
// confirmation to the configured payment gateway. Submissions are
// guarded by a busy flag: a second submit while one is in flight is
// rejected, not queued.
type CheckoutFlow struct {
	checkout *CheckoutService
	gateway  PaymentGateway

	sessionID string
	countdown *Countdown

	mu       sync.Mutex
	step     FlowStep
	inFlight bool
	buyer    *models.BuyerInfo
}

// NewCheckoutFlow starts a flow for an existing session, resuming at
// the step the session's status implies. For a live session the
// countdown begins ticking immediately; when the deadline passes the
// flow expires the session, clears held form values and invokes
// onExpire exactly once. onTick and onExpire may be nil.
func NewCheckoutFlow(checkout *CheckoutService, gateway PaymentGateway, session *models.CheckoutSession, onTick func(time.Duration), onExpire func()) *CheckoutFlow {
	flow := &CheckoutFlow{
		checkout:  checkout,
		gateway:   gateway,
		sessionID: session.ID,
		step:      StepBuyerInfo,
	}

	switch session.Status {
	case models.SessionBuyerInfoValidated:
		flow.step = StepPaymentInfo
		flow.buyer = session.BuyerInfo
	case models.SessionPaymentSucceeded:
		flow.step = StepCompleted
	case models.SessionExpired:
		flow.step = StepExpired
	}

	flow.countdown = NewCountdown(session.ExpiresAt, onTick, func() {
		flow.expire(context.Background())
		if onExpire != nil {
			onExpire()
		}
	})
	if flow.step == StepBuyerInfo || flow.step == StepPaymentInfo {
		flow.countdown.Start()
	}

	return flow
}

// Step returns the current flow step
func (f *CheckoutFlow) Step() FlowStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// BuyerInfo returns the held buyer form values, or nil before the first
// successful submission. Values survive Back so the form stays editable.
func (f *CheckoutFlow) BuyerInfo() *models.BuyerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buyer
}

// Remaining returns the time left before the session expires
func (f *CheckoutFlow) Remaining() time.Duration {
	return f.countdown.Remaining()
}

// SubmitBuyerInfo validates and applies the buyer details, advancing to
// the payment step. Validation failures keep the flow on the buyer step
// with the session untouched.
func (f *CheckoutFlow) SubmitBuyerInfo(ctx context.Context, info models.BuyerInfo) error {
	release, err := f.beginSubmit(StepBuyerInfo)
	if err != nil {
		return err
	}
	defer release()

	if err := f.checkout.ApplyBuyerInfo(ctx, f.sessionID, info); err != nil {
		return f.mapStepError(err)
	}

	f.mu.Lock()
	f.buyer = &info
	f.step = StepPaymentInfo
	f.mu.Unlock()

	return nil
}

// Back returns from the payment step to the buyer step without
// discarding anything.
func (f *CheckoutFlow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == StepPaymentInfo {
		f.step = StepBuyerInfo
	}
}

// SubmitPayment validates the card, asks the gateway to confirm the
// charge and finalizes the session. On gateway failure the flow stays on
// the payment step and the session remains retryable; only a gateway
// success completes the flow. Returns the assigned order ID.
func (f *CheckoutFlow) SubmitPayment(ctx context.Context, card models.PaymentCard) (string, error) {
	release, err := f.beginSubmit(StepPaymentInfo)
	if err != nil {
		return "", err
	}
	defer release()

	session, err := f.checkout.GetSession(ctx, f.sessionID)
	if err != nil {
		return "", err
	}
	if session.Status == models.SessionExpired {
		f.forceExpired()
		return "", models.ErrSessionExpired
	}

	if err := card.Validate(time.Now()); err != nil {
		return "", err
	}

	confirmation, err := f.gateway.Confirm(ctx, session, &card)
	if err != nil {
		var payErr *models.PaymentError
		if errors.As(err, &payErr) {
			log.Printf("checkout: payment confirmation failed for session %s: %s", f.sessionID, payErr.Reason)
			return "", err
		}
		return "", err
	}

	orderID := models.GenerateOrderNumber()
	if err := f.checkout.FinalizePayment(ctx, f.sessionID, card.Mask(), orderID); err != nil {
		return "", f.mapStepError(err)
	}

	f.mu.Lock()
	f.step = StepCompleted
	f.mu.Unlock()
	f.countdown.Stop()

	log.Printf("checkout: session %s completed, order %s, reference %s", f.sessionID, orderID, confirmation.Reference)
	return orderID, nil
}

// Cancel abandons the flow: the session is expired so it cannot be
// resurrected, and held form values are cleared.
func (f *CheckoutFlow) Cancel(ctx context.Context) {
	f.countdown.Stop()
	f.expire(ctx)
}

// beginSubmit takes the re-entrancy guard and verifies the flow is on
// the expected step.
func (f *CheckoutFlow) beginSubmit(expected FlowStep) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight {
		return nil, models.ErrSubmitInFlight
	}

	if f.step != expected {
		if f.step == StepExpired {
			return nil, models.ErrSessionExpired
		}
		return nil, models.ErrInvalidTransition
	}

	f.inFlight = true
	return func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}, nil
}

// mapStepError forces the flow to the expired step when the session has
// expired underneath it; other errors pass through untouched.
func (f *CheckoutFlow) mapStepError(err error) error {
	if errors.Is(err, models.ErrSessionExpired) {
		f.forceExpired()
	}
	return err
}

// forceExpired transitions the flow to expired after the session store
// has already recorded the expiry.
func (f *CheckoutFlow) forceExpired() {
	f.countdown.Stop()

	f.mu.Lock()
	f.step = StepExpired
	f.buyer = nil
	f.mu.Unlock()
}

// expire records expiry on the session and clears all held form state
func (f *CheckoutFlow) expire(ctx context.Context) {
	if _, err := f.checkout.ExpireSession(ctx, f.sessionID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		log.Printf("checkout: failed to expire session %s: %v", f.sessionID, err)
	}

	f.mu.Lock()
	f.step = StepExpired
	f.buyer = nil
	f.mu.Unlock()
}
