package ports

import (
	"context"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// UserRepository defines the persistence operations for user records.
// Every mutation is a single atomic record update.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetActive and SetDeleted return the updated record, or ErrUserNotFound.
	SetActive(ctx context.Context, id string, isActive bool) (*domain.User, error)
	SetDeleted(ctx context.Context, id string, isDeleted bool) (*domain.User, error)
}
