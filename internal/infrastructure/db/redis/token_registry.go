package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// minTTL keeps keys alive for tokens that are about to expire anyway.
const minTTL = time.Second

// TokenRegistry records consumed reset tokens and revoked refresh tokens.
// Key format: auth:<state>:<token_id>
type TokenRegistry struct {
	client *redis.Client
}

// NewTokenRegistry creates a TokenRegistry wrapping the given Redis client.
func NewTokenRegistry(client *redis.Client) *TokenRegistry {
	return &TokenRegistry{client: client}
}

// Consume marks id as used with SETNX; the loser of a race gets ErrTokenConsumed.
func (r *TokenRegistry) Consume(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, r.key("consumed", id), "1", clampTTL(ttl)).Result()
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !ok {
		return domain.ErrTokenConsumed
	}
	return nil
}

// Revoke denylists id until its natural expiry.
func (r *TokenRegistry) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key("revoked", id), "1", clampTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether id is on the denylist.
func (r *TokenRegistry) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key("revoked", id)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (r *TokenRegistry) key(state, id string) string {
	return fmt.Sprintf("auth:%s:%s", state, id)
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
