package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/boilerplate/user-service/internal/api/metrics"
	"github.com/boilerplate/user-service/internal/core/domain"
)

// RBAC enforces role-based access control on the identity set by Auth.
// With no roles given, any authenticated identity passes.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := domain.NewRoleSet(allowedRoles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				metrics.GuardDecisionsTotal.WithLabelValues("unauthenticated").Inc()
				return domain.ErrUnauthenticated
			}
			if !allowed.Allows(id.Role) {
				metrics.GuardDecisionsTotal.WithLabelValues("forbidden").Inc()
				return domain.ErrForbidden
			}
			metrics.GuardDecisionsTotal.WithLabelValues("allowed").Inc()
			return next(c)
		}
	}
}
