package domain

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDisabled       = errors.New("account is disabled")
	ErrUserExists            = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("access forbidden")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrValidationFailed      = errors.New("validation failed")
)

// Token verification failures. Services translate these into
// ErrUnauthenticated or ErrInvalidOrExpiredToken at their boundary.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature is invalid")
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenConsumed     = errors.New("token already used")
	ErrTokenRevoked      = errors.New("token revoked")
)

// IsTokenError reports whether err is any token verification failure.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenBadSignature) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenConsumed) ||
		errors.Is(err, ErrTokenRevoked)
}
