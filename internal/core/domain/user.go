package domain

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleAdmin          Role = "ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleEngineer       Role = "ENGINEER"
	RoleClient         Role = "CLIENT"
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleProjectManager, RoleEngineer, RoleClient}

// AdminRoles are the roles allowed to manage other users.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// IsValid reports whether r is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleProjectManager, RoleEngineer, RoleClient:
		return true
	default:
		return false
	}
}

// ParseRole converts s into a Role, rejecting anything outside the enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", ErrValidationFailed
	}
	return r, nil
}

// RoleSet is an authorization set; the empty set admits every role.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether r is a member of the set. An empty set allows any valid role.
func (s RoleSet) Allows(r Role) bool {
	if !r.IsValid() {
		return false
	}
	if len(s) == 0 {
		return true
	}
	_, ok := s[r]
	return ok
}

// User models an account managed by the service.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	IsDeleted    bool      `json:"isDeleted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CanAuthenticate reports whether the account is live: active and not soft-deleted.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.IsActive && !u.IsDeleted
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
