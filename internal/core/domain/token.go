package domain

import (
	"fmt"
	"time"
)

// TokenKind distinguishes the three signed token classes.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenReset   TokenKind = "reset"
)

// TokenClaims is the identity payload carried by signed tokens.
// Reset tokens only populate ID, Email, Kind and the timestamps.
type TokenClaims struct {
	ID        string
	Subject   string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the identity claims for u.
func ClaimsFor(u *User) TokenClaims {
	return TokenClaims{
		Subject:   u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// Remaining returns how long the token stays valid after now.
func (c TokenClaims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// DescribeLifetime renders d for user-facing text, e.g. "5 minutes".
// It picks the largest unit that divides d exactly, down to seconds.
func DescribeLifetime(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Identity is the verified caller attached to a request by the access guard.
type Identity struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Role      Role
}

// IdentityOf returns the identity view of a live user record.
func IdentityOf(u *User) *Identity {
	return &Identity{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
