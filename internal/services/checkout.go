package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tixmojo/internal/models"
	"tixmojo/internal/repositories"
)

// DefaultSessionTTL is the reservation window from session creation to
// forced expiry.
const DefaultSessionTTL = 10 * time.Minute

// CheckoutService owns the checkout session lifecycle: creation with a
// fixed expiry deadline, the monotonic status progression, promo
// application, payment finalization and expiry. All mutations to one
// session are serialized through a per-session lock; the stored status
// is the single source of truth for what is still allowed.
type CheckoutService struct {
	sessions repositories.SessionRepository
	promo    *PromoEvaluator
	ttl      time.Duration

	// now is the clock used for every expiry decision; injectable so
	// tests can move time instead of sleeping.
	now func() time.Time

	locks sync.Map // session ID -> *sync.Mutex
}

// NewCheckoutService creates a checkout service over a session
// repository. A non-positive ttl falls back to DefaultSessionTTL.
func NewCheckoutService(sessions repositories.SessionRepository, promo *PromoEvaluator, ttl time.Duration) *CheckoutService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &CheckoutService{
		sessions: sessions,
		promo:    promo,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *CheckoutService) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the session time-to-live
func (s *CheckoutService) TTL() time.Duration {
	return s.ttl
}

// lockSession serializes mutations per session ID
func (s *CheckoutService) lockSession(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

// CreateSession snapshots the cart into a new session with a fixed
// expiry deadline. An empty cart is rejected with ErrInvalidCart; line
// quantities are re-checked against availability at commit time. Any
// prior non-terminal session for the same shopper is superseded
// (expired) so no two sessions can complete for one reservation.
func (s *CheckoutService) CreateSession(ctx context.Context, shopperKey string, userID int, cart *models.Cart) (*models.CheckoutSession, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, models.ErrInvalidCart
	}

	for _, line := range cart.Lines {
		if line.Quantity < 1 || line.Quantity > line.TicketType.Available() {
			return nil, models.ErrInvalidCart
		}
	}

	if prior, err := s.sessions.GetActiveByShopper(ctx, shopperKey); err == nil {
		if _, err := s.ExpireSession(ctx, prior.ID); err != nil {
			return nil, fmt.Errorf("failed to supersede prior session: %w", err)
		}
		log.Printf("checkout: session %s superseded by a new attempt for shopper", prior.ID)
	}

	now := s.now()
	session := &models.CheckoutSession{
		ID:           models.NewSessionID(),
		ShopperKey:   shopperKey,
		EventID:      cart.EventID,
		UserID:       userID,
		Cart:         cart.Snapshot(),
		Status:       models.SessionInitialized,
		ClientSecret: "sec_" + uuid.NewString(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// GetSession retrieves a session by ID. A session whose deadline has
// passed is transitioned to expired on read, so callers always observe
// the recorded status, never a stale non-terminal one.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !session.Status.IsTerminal() && session.IsExpiredAt(s.now()) {
		if _, err := s.ExpireSession(ctx, id); err != nil {
			return nil, err
		}
		return s.sessions.Get(ctx, id)
	}

	return session, nil
}

// Remaining returns the time left before a session expires
func (s *CheckoutService) Remaining(session *models.CheckoutSession) time.Duration {
	return session.RemainingAt(s.now())
}

// ApplyBuyerInfo validates and records the buyer contact details,
// advancing the session to buyer_info_validated. A session already in
// that status accepts corrected details without moving; validation
// failures leave the session untouched.
func (s *CheckoutService) ApplyBuyerInfo(ctx context.Context, id string, info models.BuyerInfo) error {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}

	if session.Status != models.SessionBuyerInfoValidated &&
		!session.Status.CanAdvanceTo(models.SessionBuyerInfoValidated) {
		return models.ErrInvalidTransition
	}

	if err := info.Validate(); err != nil {
		return err
	}

	session.BuyerInfo = &info
	session.Status = models.SessionBuyerInfoValidated

	return s.sessions.Save(ctx, session)
}

// ApplyPromo evaluates a promo code against a session and folds a valid
// result into the session's discount rate. Allowed in any non-terminal
// status.
func (s *CheckoutService) ApplyPromo(ctx context.Context, id, code string) (models.PromoApplication, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.loadLive(ctx, id)
	if err != nil {
		return models.PromoApplication{}, err
	}

	if session.Status.IsTerminal() {
		return models.PromoApplication{}, models.ErrInvalidTransition
	}

	application := s.promo.Evaluate(code)
	if !application.IsValid {
		return application, nil
	}

	session.DiscountRate = application.DiscountRate
	session.PromoCode = application.Code

	if err := s.sessions.Save(ctx, session); err != nil {
		return models.PromoApplication{}, err
	}

	return application, nil
}

// FinalizePayment records a successful payment confirmation: the masked
// card reference, the assigned order ID and the terminal
// payment_succeeded status. Only valid from buyer_info_validated.
func (s *CheckoutService) FinalizePayment(ctx context.Context, id string, payment *models.MaskedCard, orderID string) error {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}

	if !session.Status.CanAdvanceTo(models.SessionPaymentSucceeded) {
		return models.ErrInvalidTransition
	}

	session.PaymentInfo = payment
	session.OrderID = orderID
	session.Status = models.SessionPaymentSucceeded

	return s.sessions.Save(ctx, session)
}

// ExpireSession marks a session expired and clears its buyer and
// payment fields. Idempotent: expiring an already-expired session is a
// no-op and reports false, so the expiry side effect runs at most once.
// A completed session cannot be expired.
func (s *CheckoutService) ExpireSession(ctx context.Context, id string) (bool, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return false, err
	}

	if session.Status == models.SessionExpired {
		return false, nil
	}
	if session.Status == models.SessionPaymentSucceeded {
		return false, nil
	}

	session.Status = models.SessionExpired
	session.ClearSensitive()

	if err := s.sessions.Save(ctx, session); err != nil {
		return false, err
	}

	log.Printf("checkout: session %s expired, sensitive fields cleared", id)
	return true, nil
}

// loadLive loads a session for mutation, converting a passed deadline
// into a recorded expiry and ErrSessionExpired. Callers already hold
// the session lock; expiry is applied inline to avoid re-locking.
func (s *CheckoutService) loadLive(ctx context.Context, id string) (*models.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionExpired {
		return nil, models.ErrSessionExpired
	}

	if !session.Status.IsTerminal() && session.IsExpiredAt(s.now()) {
		session.Status = models.SessionExpired
		session.ClearSensitive()
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		return nil, models.ErrSessionExpired
	}

	return session, nil
}
