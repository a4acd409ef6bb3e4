package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixmojo/internal/models"
)

func sessionFixture(id, shopperKey string, status models.SessionStatus, createdAt time.Time) *models.CheckoutSession {
	return &models.CheckoutSession{
		ID:         id,
		ShopperKey: shopperKey,
		EventID:    7,
		Cart: &models.Cart{
			EventID:    7,
			ServiceFee: 1000,
			Lines: []*models.CartLine{
				{TicketType: &models.TicketType{ID: 1, EventID: 7, Price: 3900, Quantity: 100}, Quantity: 2},
			},
		},
		Status:    status,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(10 * time.Minute),
	}
}

func TestMemorySessionRepository_SaveAndGet(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	session := sessionFixture("cs_1", "shopper-1", models.SessionInitialized, time.Now())
	require.NoError(t, repo.Save(ctx, session))

	got, err := repo.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.ID)
	assert.Equal(t, 2, got.Cart.Line(1).Quantity)
}

func TestMemorySessionRepository_GetUnknown(t *testing.T) {
	repo := NewMemorySessionRepository()

	_, err := repo.Get(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestMemorySessionRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	session := sessionFixture("cs_1", "shopper-1", models.SessionInitialized, time.Now())
	require.NoError(t, repo.Save(ctx, session))

	// Mutating what Save was given or Get returned must not change the
	// stored session.
	session.Status = models.SessionExpired
	first, err := repo.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionInitialized, first.Status)

	first.Cart.Line(1).Quantity = 99
	second, err := repo.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Cart.Line(1).Quantity)
}

func TestMemorySessionRepository_GetActiveByShopper(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, repo.Save(ctx, sessionFixture("cs_old", "shopper-1", models.SessionInitialized, base.Add(-time.Hour))))
	require.NoError(t, repo.Save(ctx, sessionFixture("cs_new", "shopper-1", models.SessionBuyerInfoValidated, base)))
	require.NoError(t, repo.Save(ctx, sessionFixture("cs_done", "shopper-1", models.SessionPaymentSucceeded, base.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, sessionFixture("cs_other", "shopper-2", models.SessionInitialized, base)))

	active, err := repo.GetActiveByShopper(ctx, "shopper-1")
	require.NoError(t, err)
	// Terminal sessions are skipped even when newer.
	assert.Equal(t, "cs_new", active.ID)

	_, err = repo.GetActiveByShopper(ctx, "shopper-3")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
