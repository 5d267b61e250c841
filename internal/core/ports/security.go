package ports

import (
	"context"
	"time"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets. Both calls may be abandoned
// through ctx; Verify reports false for malformed hashes.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) bool
}

// TokenIssuer signs and verifies access, refresh and reset tokens.
// Verify fails with domain.ErrTokenExpired, domain.ErrTokenBadSignature or
// domain.ErrTokenMalformed and never returns claims alongside an error.
type TokenIssuer interface {
	IssueAccessToken(claims domain.TokenClaims) (string, error)
	IssueRefreshToken(claims domain.TokenClaims) (string, error)
	IssueResetToken(email string) (string, error)
	Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error)
}

// TokenRegistry tracks server-side token state keyed by token id.
type TokenRegistry interface {
	// Consume marks id as used. It fails with domain.ErrTokenConsumed when
	// another caller consumed it first.
	Consume(ctx context.Context, id string, ttl time.Duration) error
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}
