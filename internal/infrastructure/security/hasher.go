// Package security implements the credential hasher and the token issuer.
package security

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// BcryptHasher hashes passwords with a process-wide bcrypt cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher validates cost against bcrypt's accepted range.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash runs bcrypt off the request goroutine so a cancelled request can
// abandon it. Nothing is persisted here, so abandoning is always safe.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("hash password: %w: empty password", domain.ErrValidationFailed)
	}

	hash, err := offload(ctx, func() ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	})
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("hash password: %w: password too long", domain.ErrValidationFailed)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext with hash. bcrypt compares in constant time;
// a malformed hash or a cancelled context yields false.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	_, err := offload(ctx, func() ([]byte, error) {
		return nil, bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	})
	return err == nil
}

func offload(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	type result struct {
		out []byte
		err error
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan result, 1)
	go func() {
		out, err := fn()
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.out, r.err
	}
}
