package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a checkout session
type SessionStatus string

const (
	SessionInitialized        SessionStatus = "initialized"
	SessionBuyerInfoValidated SessionStatus = "buyer_info_validated"
	SessionPaymentSucceeded   SessionStatus = "payment_succeeded"
	SessionExpired            SessionStatus = "expired"
)

// forwardTransitions defines the monotonic status order. Expiry is
// handled separately: it is reachable from any non-terminal status.
var forwardTransitions = map[SessionStatus]SessionStatus{
	SessionInitialized:        SessionBuyerInfoValidated,
	SessionBuyerInfoValidated: SessionPaymentSucceeded,
}

// IsTerminal returns true for statuses no further transition can leave
func (s SessionStatus) IsTerminal() bool {
	return s == SessionPaymentSucceeded || s == SessionExpired
}

// CanAdvanceTo reports whether the forward step to next is allowed
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	if next == SessionExpired {
		return !s.IsTerminal()
	}
	return forwardTransitions[s] == next
}

// CheckoutSession represents a time-boxed reservation binding a cart
// snapshot to one checkout attempt. The expiry time is fixed at creation
// and never extended. The cart snapshot is immutable after creation
// except for the discount rate.
type CheckoutSession struct {
	ID           string        `json:"id"`
	ShopperKey   string        `json:"-"` // Browsing-session identity; at most one active session per key
	EventID      int           `json:"event_id"`
	UserID       int           `json:"user_id,omitempty"` // 0 for guest checkout
	Cart         *Cart         `json:"cart"`
	BuyerInfo    *BuyerInfo    `json:"buyer_info,omitempty"`
	PaymentInfo  *MaskedCard   `json:"payment_info,omitempty"`
	DiscountRate float64       `json:"discount_rate"`
	PromoCode    string        `json:"promo_code,omitempty"`
	Status       SessionStatus `json:"status"`
	OrderID      string        `json:"order_id,omitempty"`
	ClientSecret string        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// IsExpiredAt returns true if the session deadline has passed at the
// given instant. Status is the source of truth once expiry has been
// recorded; this only answers the wall-clock question.
func (s *CheckoutSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RemainingAt returns the time left before expiry at the given instant,
// floored at zero. Always derived from the fixed deadline, never from a
// decremented counter.
func (s *CheckoutSession) RemainingAt(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Totals computes the session amounts with its current discount rate
func (s *CheckoutSession) Totals() Totals {
	return s.Cart.ComputeTotals(s.DiscountRate)
}

// ClearSensitive nulls the buyer and payment fields. Called when a
// session expires so no contact or card reference outlives it.
func (s *CheckoutSession) ClearSensitive() {
	s.BuyerInfo = nil
	s.PaymentInfo = nil
}

// PromoApplication represents the outcome of evaluating a promo code
// against a session. It is not persisted on its own; a valid result is
// folded into the session's discount rate.
type PromoApplication struct {
	Code         string  `json:"code"`
	IsValid      bool    `json:"is_valid"`
	DiscountRate float64 `json:"discount_rate"`
	Message      string  `json:"message"`
}

// NewSessionID generates an opaque unique session token
func NewSessionID() string {
	return "cs_" + uuid.NewString()
}

// GenerateOrderNumber generates a unique order number in the form
// ORD-YYYYMMDD-XXXXXX.
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		return fmt.Sprintf("ORD-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("ORD-%s-%06d", dateStr, randomNum.Int64())
}
