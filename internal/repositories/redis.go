package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tixmojo/internal/models"
)

const (
	sessionKeyPrefix = "checkout:session:"
	shopperKeyPrefix = "checkout:shopper:"

	// Expired sessions stay readable for a grace window after their
	// deadline so late callers get SessionExpired instead of NotFound.
	sessionGracePeriod = time.Hour
)

// RedisSessionRepository stores checkout sessions in Redis with a key
// TTL aligned to the session deadline plus a grace window.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a new Redis session repository
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// redisSession is the persisted form. ShopperKey and ClientSecret are
// excluded from the model's public JSON so they are carried explicitly.
type redisSession struct {
	*models.CheckoutSession
	ShopperKey   string `json:"shopper_key"`
	ClientSecret string `json:"client_secret"`
}

// Save stores the session and refreshes the shopper index
func (r *RedisSessionRepository) Save(ctx context.Context, session *models.CheckoutSession) error {
	payload, err := json.Marshal(redisSession{
		CheckoutSession: session,
		ShopperKey:      session.ShopperKey,
		ClientSecret:    session.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checkout session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + sessionGracePeriod
	if ttl <= 0 {
		ttl = sessionGracePeriod
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl)
	if !session.Status.IsTerminal() {
		pipe.Set(ctx, shopperKeyPrefix+session.ShopperKey, session.ID, ttl)
	} else {
		pipe.Del(ctx, shopperKeyPrefix+session.ShopperKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}

	return unmarshalRedisSession(payload)
}

// GetActiveByShopper retrieves the shopper's current non-terminal session
func (r *RedisSessionRepository) GetActiveByShopper(ctx context.Context, shopperKey string) (*models.CheckoutSession, error) {
	id, err := r.client.Get(ctx, shopperKeyPrefix+shopperKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to look up shopper session: %w", err)
	}

	session, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Status.IsTerminal() {
		return nil, models.ErrSessionNotFound
	}

	return session, nil
}

func unmarshalRedisSession(payload []byte) (*models.CheckoutSession, error) {
	stored := redisSession{CheckoutSession: &models.CheckoutSession{}}
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	session := stored.CheckoutSession
	session.ShopperKey = stored.ShopperKey
	session.ClientSecret = stored.ClientSecret
	return session, nil
}
