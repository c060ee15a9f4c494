// Package localstore keeps the per-client state a browser would hold in local
// storage: the serialized cart, the checkout step and the token of a payment
// that is waiting for the gateway to call back.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookstore-storefront/model"

	"github.com/redis/go-redis/v9"
)

const (
	cartPrefix    = "cart:"
	stepPrefix    = "checkout_step:"
	pendingPrefix = "pending_payment:"

	// IntentPrefix keys expire when a payment window elapses; the worker
	// listens for their expiry events.
	IntentPrefix = "intent:"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore keeps client keys for ttl after their last write; zero keeps
// them forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) LoadCart(ctx context.Context, clientID string) ([]model.CartLine, error) {
	raw, err := s.rdb.Get(ctx, cartPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []model.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("corrupt cart for client %s: %w", clientID, err)
	}
	return lines, nil
}

// SaveCart replaces the whole stored cart.
func (s *RedisStore) SaveCart(ctx context.Context, clientID string, lines []model.CartLine) error {
	if lines == nil {
		lines = []model.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cartPrefix+clientID, raw, s.ttl).Err()
}

func (s *RedisStore) ClearCart(ctx context.Context, clientID string) error {
	return s.rdb.Del(ctx, cartPrefix+clientID).Err()
}

// LoadStep returns "" when the client never entered checkout.
func (s *RedisStore) LoadStep(ctx context.Context, clientID string) (string, error) {
	step, err := s.rdb.Get(ctx, stepPrefix+clientID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return step, err
}

func (s *RedisStore) SaveStep(ctx context.Context, clientID, step string) error {
	return s.rdb.Set(ctx, stepPrefix+clientID, step, s.ttl).Err()
}

func (s *RedisStore) ClearStep(ctx context.Context, clientID string) error {
	return s.rdb.Del(ctx, stepPrefix+clientID).Err()
}

// SwapPendingPayment stores token as the client's unfinished payment and
// returns the token it replaced, if any. The swap is a single SET ... GET so
// concurrent starts each see a distinct predecessor.
func (s *RedisStore) SwapPendingPayment(ctx context.Context, clientID, token string) (string, error) {
	prev, err := s.rdb.SetArgs(ctx, pendingPrefix+clientID, token, redis.SetArgs{TTL: s.ttl, Get: true}).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return prev, err
}

func (s *RedisStore) LoadPendingPayment(ctx context.Context, clientID string) (string, error) {
	token, err := s.rdb.Get(ctx, pendingPrefix+clientID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (s *RedisStore) ClearPendingPayment(ctx context.Context, clientID string) error {
	return s.rdb.Del(ctx, pendingPrefix+clientID).Err()
}

// ArmIntentExpiry starts the payment window of an intent.
func (s *RedisStore) ArmIntentExpiry(ctx context.Context, token string, ttl time.Duration) error {
	return s.rdb.SetEx(ctx, IntentPrefix+token, token, ttl).Err()
}

// DisarmIntentExpiry stops the window so no expiry event fires.
func (s *RedisStore) DisarmIntentExpiry(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, IntentPrefix+token).Err()
}
