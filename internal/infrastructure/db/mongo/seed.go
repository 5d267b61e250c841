package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boilerplate/user-service/internal/core/domain"
)

// SuperAdmin describes the bootstrap account created by the seed command.
type SuperAdmin struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// SeedSuperAdmin inserts the super admin only if no user owns its email yet.
// It reports whether a new document was created.
func (r *UserRepository) SeedSuperAdmin(ctx context.Context, admin SuperAdmin) (bool, error) {
	email := domain.NormalizeEmail(admin.Email)
	if email == "" || admin.PasswordHash == "" {
		return false, fmt.Errorf("seed super admin: %w: email and password are required", domain.ErrValidationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"firstName": admin.FirstName,
			"lastName":  admin.LastName,
			"email":     email,
			"password":  admin.PasswordHash,
			"role":      string(domain.RoleSuperAdmin),
			"isActive":  true,
			"isDeleted": false,
			"createdAt": now,
			"updatedAt": now,
		},
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("seed super admin: %w", err)
	}
	return res.UpsertedCount == 1, nil
}
