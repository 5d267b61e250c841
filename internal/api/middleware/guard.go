package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// Guard is the access guard: authentication first, then the role check.
type Guard struct {
	auth echo.MiddlewareFunc
}

func NewGuard(tokens ports.TokenIssuer, users ports.UserRepository, log zerolog.Logger) *Guard {
	return &Guard{auth: Auth(tokens, users, log.With().Str("component", "guard").Logger())}
}

// Authorize returns middleware admitting live users holding one of roles.
// An empty role list admits any live user.
func (g *Guard) Authorize(roles ...domain.Role) echo.MiddlewareFunc {
	rbac := RBAC(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return g.auth(rbac(next))
	}
}
