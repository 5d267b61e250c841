package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

// SessionService implements login, token refresh, logout and account administration.
type SessionService struct {
	users           ports.UserRepository
	hasher          ports.PasswordHasher
	tokens          ports.TokenIssuer
	registry        ports.TokenRegistry
	defaultPassword string
	log             zerolog.Logger
	now             func() time.Time

	// dummyHash absorbs the comparison for unknown emails. Set at construction.
	dummyHash string
}

func NewSessionService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	registry ports.TokenRegistry,
	defaultPassword string,
	log zerolog.Logger,
) *SessionService {
	s := &SessionService{
		users:           users,
		hasher:          hasher,
		tokens:          tokens,
		registry:        registry,
		defaultPassword: defaultPassword,
		log:             log.With().Str("component", "session").Logger(),
		now:             time.Now,
	}
	s.dummyHash = s.prepareDummyHash()
	return s
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn one comparison so response time does not reveal the miss.
			s.hasher.Verify(ctx, password, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		return nil, domain.ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, domain.ErrAccountDisabled
	}

	claims := domain.ClaimsFor(user)
	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the presented refresh token until it would have expired.
// An absent or unverifiable token has nothing to revoke.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		s.log.Debug().Err(err).Msg("logout with unusable refresh token")
		return nil
	}

	if err := s.registry.Revoke(ctx, claims.ID, claims.Remaining(s.now())); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", claims.Subject).Msg("refresh token revoked")
	return nil
}

// Refresh mints a new access token from a valid, unrevoked refresh token.
// The claims come from the current user record, not from the refresh token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrUnauthenticated
	}

	claims, err := s.tokens.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	revoked, err := s.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if revoked {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrTokenRevoked)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrUnauthenticated
		}
		return "", fmt.Errorf("refresh: %w", err)
	}
	if !user.CanAuthenticate() {
		return "", domain.ErrUnauthenticated
	}

	access, err := s.tokens.IssueAccessToken(domain.ClaimsFor(user))
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}

// Registration creates an active user holding the configured default password.
func (s *SessionService) Registration(ctx context.Context, in ports.RegistrationInput) (*domain.User, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := domain.NormalizeEmail(in.Email)
	if firstName == "" || lastName == "" || email == "" {
		return nil, fmt.Errorf("registration: %w: firstName, lastName and email are required", domain.ErrValidationFailed)
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("registration: %w: unknown role %q", domain.ErrValidationFailed, in.Role)
	}

	hash, err := s.hasher.Hash(ctx, s.defaultPassword)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("registration: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("email", created.Email).Str("role", string(role)).Msg("user registered")
	return created.Sanitized(), nil
}

// Profile returns the caller's record without the password hash.
func (s *SessionService) Profile(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// ActiveStatusUpdate sets the active flag; repeating the call is a no-op.
func (s *SessionService) ActiveStatusUpdate(ctx context.Context, userID string, isActive bool) (*domain.User, error) {
	user, err := s.users.SetActive(ctx, userID, isActive)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Bool("is_active", isActive).Msg("user active status updated")
	return user.Sanitized(), nil
}

// SoftDeleted sets the soft-delete flag; records are never removed.
func (s *SessionService) SoftDeleted(ctx context.Context, userID string, isDeleted bool) (*domain.User, error) {
	user, err := s.users.SetDeleted(ctx, userID, isDeleted)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Bool("is_deleted", isDeleted).Msg("user soft delete flag updated")
	return user.Sanitized(), nil
}

func (s *SessionService) prepareDummyHash() string {
	h, err := s.hasher.Hash(context.Background(), "timing-equalisation-placeholder")
	if err != nil {
		s.log.Warn().Err(err).Msg("could not prepare dummy hash")
		return ""
	}
	return h
}
