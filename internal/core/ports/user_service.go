package ports

import (
	"context"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// RegistrationInput carries the admin-supplied fields of a new account.
type RegistrationInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// ResetPasswordInput is the self-service password change payload.
type ResetPasswordInput struct {
	OldPassword string
	NewPassword string
}

// SetNewPasswordInput completes a forgot-password flow.
type SetNewPasswordInput struct {
	Token       string
	NewPassword string
}

// SessionService covers login, session tokens and account administration.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Registration(ctx context.Context, input RegistrationInput) (*domain.User, error)
	Profile(ctx context.Context, email string) (*domain.User, error)
	ActiveStatusUpdate(ctx context.Context, userID string, isActive bool) (*domain.User, error)
	SoftDeleted(ctx context.Context, userID string, isDeleted bool) (*domain.User, error)
}

// RecoveryService covers password change and the forgot-password flow.
type RecoveryService interface {
	ResetPassword(ctx context.Context, caller *domain.Identity, input ResetPasswordInput) error
	ForgetPassword(ctx context.Context, email string) error
	SetNewPassword(ctx context.Context, input SetNewPasswordInput) error
}
