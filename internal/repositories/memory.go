package repositories

import (
	"context"
	"sync"

	"tixmojo/internal/models"
)

// MemorySessionRepository is the in-memory reference implementation of
// SessionRepository. Used in tests and when the service runs without a
// database. Sessions are stored as copies so callers can only mutate
// state through checkout operations followed by Save.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.CheckoutSession
}

// NewMemorySessionRepository creates an empty in-memory session repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*models.CheckoutSession),
	}
}

// Save stores a copy of the session keyed by its ID
func (r *MemorySessionRepository) Save(ctx context.Context, session *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = cloneSession(session)
	return nil
}

// Get retrieves a copy of a session by ID
func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}

	return cloneSession(session), nil
}

// GetActiveByShopper retrieves the most recent non-terminal session for
// a shopper key.
func (r *MemorySessionRepository) GetActiveByShopper(ctx context.Context, shopperKey string) (*models.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.CheckoutSession
	for _, session := range r.sessions {
		if session.ShopperKey != shopperKey || session.Status.IsTerminal() {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}

	if latest == nil {
		return nil, models.ErrSessionNotFound
	}

	return cloneSession(latest), nil
}

// cloneSession deep-copies a session so stored state cannot be mutated
// through returned pointers.
func cloneSession(session *models.CheckoutSession) *models.CheckoutSession {
	copied := *session
	copied.Cart = session.Cart.Snapshot()

	if session.BuyerInfo != nil {
		buyer := *session.BuyerInfo
		copied.BuyerInfo = &buyer
	}

	if session.PaymentInfo != nil {
		payment := *session.PaymentInfo
		copied.PaymentInfo = &payment
	}

	return &copied
}
