package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tixmojo/internal/models"
)

// SessionRepository persists checkout sessions. Implementations must be
// safe for concurrent use; serialization of mutations per session is the
// checkout service's job, not the store's.
type SessionRepository interface {
	Save(ctx context.Context, session *models.CheckoutSession) error
	Get(ctx context.Context, id string) (*models.CheckoutSession, error)
	GetActiveByShopper(ctx context.Context, shopperKey string) (*models.CheckoutSession, error)
}

// PostgresSessionRepository stores checkout sessions in Postgres
type PostgresSessionRepository struct {
	db *sql.DB
}

// NewPostgresSessionRepository creates a new Postgres session repository
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Save upserts a checkout session keyed by its ID. The cart snapshot and
// buyer info travel as JSON; payment info is stored as brand and last4
// columns only, so the schema itself cannot hold a full card number.
func (r *PostgresSessionRepository) Save(ctx context.Context, session *models.CheckoutSession) error {
	cartJSON, err := json.Marshal(session.Cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	var buyerJSON []byte
	if session.BuyerInfo != nil {
		if buyerJSON, err = json.Marshal(session.BuyerInfo); err != nil {
			return fmt.Errorf("failed to marshal buyer info: %w", err)
		}
	}

	var paymentBrand, paymentLast4 sql.NullString
	if session.PaymentInfo != nil {
		paymentBrand = sql.NullString{String: string(session.PaymentInfo.Brand), Valid: true}
		paymentLast4 = sql.NullString{String: session.PaymentInfo.Last4, Valid: true}
	}

	query := `
		INSERT INTO checkout_sessions
			(id, shopper_key, event_id, user_id, cart, buyer_info, payment_brand, payment_last4,
			 discount_rate, promo_code, status, order_id, client_secret, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			buyer_info = EXCLUDED.buyer_info,
			payment_brand = EXCLUDED.payment_brand,
			payment_last4 = EXCLUDED.payment_last4,
			discount_rate = EXCLUDED.discount_rate,
			promo_code = EXCLUDED.promo_code,
			status = EXCLUDED.status,
			order_id = EXCLUDED.order_id`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.ShopperKey,
		session.EventID,
		session.UserID,
		cartJSON,
		buyerJSON,
		paymentBrand,
		paymentLast4,
		session.DiscountRate,
		session.PromoCode,
		session.Status,
		session.OrderID,
		session.ClientSecret,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}

	return nil
}

// Get retrieves a checkout session by ID
func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	query := `
		SELECT id, shopper_key, event_id, user_id, cart, buyer_info, payment_brand, payment_last4,
		       discount_rate, promo_code, status, order_id, client_secret, created_at, expires_at
		FROM checkout_sessions
		WHERE id = $1`

	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByShopper retrieves the most recent non-terminal session for
// a shopper, used to supersede a prior attempt when a new one starts.
func (r *PostgresSessionRepository) GetActiveByShopper(ctx context.Context, shopperKey string) (*models.CheckoutSession, error) {
	query := `
		SELECT id, shopper_key, event_id, user_id, cart, buyer_info, payment_brand, payment_last4,
		       discount_rate, promo_code, status, order_id, client_secret, created_at, expires_at
		FROM checkout_sessions
		WHERE shopper_key = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanSession(r.db.QueryRowContext(ctx, query, shopperKey,
		models.SessionInitialized, models.SessionBuyerInfoValidated))
}

func (r *PostgresSessionRepository) scanSession(row *sql.Row) (*models.CheckoutSession, error) {
	session := &models.CheckoutSession{}
	var cartJSON, buyerJSON []byte
	var paymentBrand, paymentLast4 sql.NullString

	err := row.Scan(
		&session.ID,
		&session.ShopperKey,
		&session.EventID,
		&session.UserID,
		&cartJSON,
		&buyerJSON,
		&paymentBrand,
		&paymentLast4,
		&session.DiscountRate,
		&session.PromoCode,
		&session.Status,
		&session.OrderID,
		&session.ClientSecret,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}

	if err := json.Unmarshal(cartJSON, &session.Cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	if len(buyerJSON) > 0 {
		session.BuyerInfo = &models.BuyerInfo{}
		if err := json.Unmarshal(buyerJSON, session.BuyerInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal buyer info: %w", err)
		}
	}

	if paymentBrand.Valid {
		session.PaymentInfo = &models.MaskedCard{
			Brand: models.CardBrand(paymentBrand.String),
			Last4: paymentLast4.String,
		}
	}

	return session, nil
}
