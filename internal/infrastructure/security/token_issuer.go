package security

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// KeyConfig is the signing secret and lifetime of one token kind.
type KeyConfig struct {
	Secret string
	TTL    time.Duration
}

// IssuerConfig holds independent keys for every token kind.
type IssuerConfig struct {
	Issuer  string
	Access  KeyConfig
	Refresh KeyConfig
	Reset   KeyConfig
}

// IssuerOption customises a JWTIssuer.
type IssuerOption func(*JWTIssuer)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *JWTIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// JWTIssuer signs HS256 tokens with a separate secret per token kind.
type JWTIssuer struct {
	issuer string
	keys   map[domain.TokenKind]KeyConfig
	now    func() time.Time
}

type tokenClaims struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Kind      string `json:"kind"`
	jwt.RegisteredClaims
}

func NewJWTIssuer(cfg IssuerConfig, opts ...IssuerOption) (*JWTIssuer, error) {
	keys := map[domain.TokenKind]KeyConfig{
		domain.TokenAccess:  cfg.Access,
		domain.TokenRefresh: cfg.Refresh,
		domain.TokenReset:   cfg.Reset,
	}

	seen := make(map[string]domain.TokenKind, len(keys))
	for kind, key := range keys {
		if key.Secret == "" {
			return nil, fmt.Errorf("token issuer: empty %s secret", kind)
		}
		if key.TTL <= 0 {
			return nil, fmt.Errorf("token issuer: non-positive %s lifetime", kind)
		}
		if other, dup := seen[key.Secret]; dup {
			return nil, fmt.Errorf("token issuer: %s and %s share a secret", other, kind)
		}
		seen[key.Secret] = kind
	}

	i := &JWTIssuer{issuer: cfg.Issuer, keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the configured lifetime of kind.
func (i *JWTIssuer) TTL(kind domain.TokenKind) time.Duration {
	return i.keys[kind].TTL
}

func (i *JWTIssuer) IssueAccessToken(claims domain.TokenClaims) (string, error) {
	return i.issue(domain.TokenAccess, claims)
}

func (i *JWTIssuer) IssueRefreshToken(claims domain.TokenClaims) (string, error) {
	return i.issue(domain.TokenRefresh, claims)
}

// IssueResetToken binds a reset token to email only.
func (i *JWTIssuer) IssueResetToken(email string) (string, error) {
	return i.issue(domain.TokenReset, domain.TokenClaims{Email: email})
}

func (i *JWTIssuer) issue(kind domain.TokenKind, c domain.TokenClaims) (string, error) {
	key := i.keys[kind]
	now := i.now()

	claims := tokenClaims{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Role:      string(c.Role),
		Kind:      string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and kind of token.
func (i *JWTIssuer) Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	key, ok := i.keys[kind]
	if !ok {
		return nil, fmt.Errorf("verify token: unknown kind %q: %w", kind, domain.ErrTokenMalformed)
	}

	// The MAC is checked over the raw segments before anything is decoded,
	// so any edit to header, payload or signature reads as a bad signature.
	if err := checkSignature(token, []byte(key.Secret)); err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(key.Secret), nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}
	if claims.Kind != string(kind) || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrTokenMalformed
	}

	out := &domain.TokenClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func checkSignature(token string, secret []byte) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.ErrTokenMalformed
	}
	for _, part := range parts {
		if part == "" || strings.IndexFunc(part, notBase64URL) >= 0 {
			return domain.ErrTokenMalformed
		}
	}

	signingString := token[:strings.LastIndexByte(token, '.')]
	want, err := jwt.SigningMethodHS256.Sign(signingString, secret)
	if err != nil {
		return fmt.Errorf("verify token: %v: %w", err, domain.ErrTokenMalformed)
	}
	if !hmac.Equal([]byte(parts[2]), []byte(base64.RawURLEncoding.EncodeToString(want))) {
		return domain.ErrTokenBadSignature
	}
	return nil
}

func notBase64URL(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		return false
	default:
		return true
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrTokenBadSignature
	default:
		return domain.ErrTokenMalformed
	}
}
