package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// RecoveryService implements password change and the forgot-password flow.
type RecoveryService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	registry ports.TokenRegistry
	notifier ports.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewRecoveryService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	registry ports.TokenRegistry,
	notifier ports.Notifier,
	log zerolog.Logger,
) *RecoveryService {
	return &RecoveryService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		registry: registry,
		notifier: notifier,
		log:      log.With().Str("component", "recovery").Logger(),
		now:      time.Now,
	}
}

// ResetPassword changes the authenticated caller's password after checking the old one.
func (s *RecoveryService) ResetPassword(ctx context.Context, caller *domain.Identity, in ports.ResetPasswordInput) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if in.NewPassword == "" {
		return fmt.Errorf("reset password: %w: newPassword is required", domain.ErrValidationFailed)
	}

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(ctx, in.OldPassword, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// ForgetPassword issues a reset token and hands it to the notifier. The
// result is identical whether or not the email belongs to an account, and
// the token itself is never returned.
func (s *RecoveryService) ForgetPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("forget password: %w", err)
	}
	if !user.CanAuthenticate() {
		return nil
	}

	token, err := s.tokens.IssueResetToken(user.Email)
	if err != nil {
		return fmt.Errorf("forget password: %w", err)
	}

	notice := ports.PasswordResetNotice{Email: user.Email, FirstName: user.FirstName, Token: token}
	if err := s.notifier.NotifyPasswordReset(ctx, notice); err != nil {
		// Delivery problems must not change the response shape.
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password reset notification not queued")
	}
	return nil
}

// SetNewPassword completes a reset. Each reset token is accepted once: its id
// is consumed right before the write, so a replay inside the validity window
// fails like an expired token.
func (s *RecoveryService) SetNewPassword(ctx context.Context, in ports.SetNewPasswordInput) error {
	claims, err := s.tokens.Verify(in.Token, domain.TokenReset)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidOrExpiredToken, err)
	}
	if in.NewPassword == "" {
		return fmt.Errorf("set new password: %w: newPassword is required", domain.ErrValidationFailed)
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("set new password: %w", err)
	}
	if !user.CanAuthenticate() {
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return fmt.Errorf("set new password: %w", err)
	}

	if err := s.registry.Consume(ctx, claims.ID, claims.Remaining(s.now())); err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			return fmt.Errorf("%w: %w", domain.ErrInvalidOrExpiredToken, err)
		}
		return fmt.Errorf("set new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("set new password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password set from reset token")
	return nil
}
