package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/api/metrics"
	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// IdentityKey is the echo.Context key holding the verified *domain.Identity.
const IdentityKey = "identity"

type identityCtxKey struct{}

// Auth validates the access token, re-loads the user and injects the live
// identity into the context. Liveness is checked on every request, so a
// deactivated or soft-deleted account loses access while its token is still
// within its lifetime.
func Auth(tokens ports.TokenIssuer, users ports.UserRepository, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return reject(fmt.Errorf("%w: missing access token", domain.ErrUnauthenticated))
			}

			claims, err := tokens.Verify(raw, domain.TokenAccess)
			if err != nil {
				return reject(fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err))
			}

			user, err := users.FindByID(c.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return reject(fmt.Errorf("%w: unknown subject", domain.ErrUnauthenticated))
				}
				metrics.GuardDecisionsTotal.WithLabelValues("error").Inc()
				log.Error().Err(err).Msg("access guard user lookup failed")
				return fmt.Errorf("access guard: %w", err)
			}
			if !user.CanAuthenticate() {
				return reject(fmt.Errorf("%w: account disabled", domain.ErrUnauthenticated))
			}

			setIdentity(c, domain.IdentityOf(user))
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	id, ok := c.Get(IdentityKey).(*domain.Identity)
	return id, ok && id != nil
}

// IdentityFromContext returns the identity stored by Auth on the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return id, ok && id != nil
}

func setIdentity(c echo.Context, id *domain.Identity) {
	c.Set(IdentityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityCtxKey{}, id)))
}

// bearerToken accepts "Bearer <token>" or a bare token.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 1 {
		if strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[0], true
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func reject(err error) error {
	metrics.GuardDecisionsTotal.WithLabelValues("unauthenticated").Inc()
	return err
}
