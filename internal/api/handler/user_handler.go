package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boilerplate/user-service/internal/api/metrics"
	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// CookieConfig controls the refresh-token cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

// UserHandler handles HTTP requests under /api/v1/user.
type UserHandler struct {
	session  ports.SessionService
	recovery ports.RecoveryService
	cookie   CookieConfig
	resetTTL time.Duration
}

// NewUserHandler builds the handler. resetTTL is the reset token lifetime
// quoted back to the caller of the forget-password endpoint.
func NewUserHandler(session ports.SessionService, recovery ports.RecoveryService, cookie CookieConfig, resetTTL time.Duration) *UserHandler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &UserHandler{session: session, recovery: recovery, cookie: cookie, resetTTL: resetTTL}
}

// Login authenticates a user, returns the access token and sets the refresh cookie.
//
// @Summary      Login
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  successResponse{data=accessTokenResponse}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/v1/user/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.session.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	c.SetCookie(h.refreshCookie(pair.RefreshToken, h.cookie.MaxAge))
	return c.JSON(http.StatusOK, successResponse{
		Message: "User logged in successfully.",
		Data:    accessTokenResponse{AccessToken: pair.AccessToken},
	})
}

// Logout revokes the refresh token, if any, and clears the cookie.
//
// @Summary      Logout
// @Tags         user
// @Produce      json
// @Success      200  {object}  successResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/user/logout [post]
func (h *UserHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context(), h.refreshTokenFrom(c)); err != nil {
		return err
	}

	c.SetCookie(h.refreshCookie("", -1))
	return c.JSON(http.StatusOK, successResponse{Message: "User logged out successfully."})
}

// RefreshToken issues a new access token from the refresh cookie.
//
// @Summary      Refresh the access token
// @Tags         user
// @Produce      json
// @Success      200  {object}  successResponse{data=accessTokenResponse}
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/user/refresh-token [post]
func (h *UserHandler) RefreshToken(c echo.Context) error {
	access, err := h.session.Refresh(c.Request().Context(), h.refreshTokenFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Message: "Access token is retrieved successfully.",
		Data:    accessTokenResponse{AccessToken: access},
	})
}

// Registration creates an account with the default password.
//
// @Summary      Register a user
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registrationRequest  true  "New user"
// @Success      201   {object}  successResponse{data=domain.User}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/user/registration [post]
func (h *UserHandler) Registration(c echo.Context) error {
	var req registrationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.session.Registration(c.Request().Context(), ports.RegistrationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, successResponse{
		Message: "Registration successful.",
		Data:    user,
	})
}

// ResetPassword changes the caller's password.
//
// @Summary      Change the caller's password
// @Tags         password
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      resetPasswordRequest  true  "Old and new password"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/v1/user/password/reset [post]
func (h *UserHandler) ResetPassword(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.recovery.ResetPassword(c.Request().Context(), caller, ports.ResetPasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	metrics.PasswordFlowsTotal.WithLabelValues("reset", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Message: "Password Reset Successful."})
}

// ForgetPassword starts the recovery flow. The response is identical whether
// or not the email belongs to an account.
//
// @Summary      Request a password reset link
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body      forgetPasswordRequest  true  "Account email"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/v1/user/password/forget [post]
func (h *UserHandler) ForgetPassword(c echo.Context) error {
	var req forgetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.recovery.ForgetPassword(c.Request().Context(), req.Email)
	metrics.PasswordFlowsTotal.WithLabelValues("forget", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Message: forgetPasswordMessage(h.resetTTL)})
}

// SetNewPassword completes the recovery flow with a reset token.
//
// @Summary      Set a new password with a reset token
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body      setNewPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/v1/user/password/set-new [post]
func (h *UserHandler) SetNewPassword(c echo.Context) error {
	var req setNewPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.recovery.SetNewPassword(c.Request().Context(), ports.SetNewPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	metrics.PasswordFlowsTotal.WithLabelValues("set_new", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Message: "Password Reset Successful."})
}

// Profile returns the caller's own record.
//
// @Summary      Current user profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse{data=domain.User}
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/user/profile/me [get]
func (h *UserHandler) Profile(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.session.Profile(c.Request().Context(), caller.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Message: "Profile info found successfully.",
		Data:    user,
	})
}

// ActiveStatusUpdate activates or deactivates an account.
//
// @Summary      Update a user's active status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string               true  "User id"
// @Param        body    body      activeStatusRequest  true  "New status"
// @Success      200     {object}  successResponse{data=domain.User}
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /api/v1/user/{userId}/update/active/status [patch]
func (h *UserHandler) ActiveStatusUpdate(c echo.Context) error {
	var req activeStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.session.ActiveStatusUpdate(c.Request().Context(), c.Param("userId"), *req.IsActive)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Message: "User active status updated successfully.",
		Data:    user,
	})
}

// SoftDeleted marks or unmarks an account as deleted.
//
// @Summary      Soft delete a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string             true  "User id"
// @Param        body    body      softDeleteRequest  true  "Deletion flag"
// @Success      200     {object}  successResponse{data=domain.User}
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /api/v1/user/{userId}/soft-delete [delete]
func (h *UserHandler) SoftDeleted(c echo.Context) error {
	var req softDeleteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.session.SoftDeleted(c.Request().Context(), c.Param("userId"), *req.IsDeleted)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Message: "User soft deleted successfully.",
		Data:    user,
	})
}

func (h *UserHandler) refreshTokenFrom(c echo.Context) string {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// refreshCookie builds the refresh cookie; a negative maxAge deletes it.
func (h *UserHandler) refreshCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     h.cookie.Path,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	switch {
	case maxAge < 0:
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	case maxAge > 0:
		cookie.MaxAge = int(maxAge / time.Second)
	}
	return cookie
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "account_disabled"
	default:
		return "error"
	}
}

func forgetPasswordMessage(ttl time.Duration) string {
	if ttl <= 0 {
		return "Check your email to reset your password."
	}
	return fmt.Sprintf("Check your email. You have only %s for reset your password.", domain.DescribeLifetime(ttl))
}
