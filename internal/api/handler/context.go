package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/boilerplate/user-service/internal/api/middleware"
	"github.com/boilerplate/user-service/internal/core/domain"
)

// callerIdentity returns the identity injected by the access guard. Its
// absence means the route was registered without the guard.
func callerIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return id, nil
}
