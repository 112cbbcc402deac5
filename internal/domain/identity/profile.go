package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// Role is the actor role attached to a profile
type Role string

const (
	RoleTenant     Role = "tenant"
	RoleManager    Role = "manager"
	RoleAccountant Role = "accountant"
	RoleApprover   Role = "approver"
)

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.Validationf("unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleTenant, RoleManager, RoleAccountant, RoleApprover:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Profile is an identity as seen by the directory: contact data and role.
// Authentication lives elsewhere.
type Profile struct {
	shared.BaseEntity
	FullName string
	Email    string
	Phone    string
	Role     Role
}

// NewProfile creates a profile
func NewProfile(fullName, email, phone string, role Role) (*Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.Validationf("full name cannot be empty")
	}
	email = strings.TrimSpace(email)
	if email != "" && !emailPattern.MatchString(email) {
		return nil, shared.Validationf("invalid email format")
	}
	if !role.IsValid() {
		return nil, shared.Validationf("unknown role %q", role)
	}
	return &Profile{
		BaseEntity: shared.NewBaseEntity(),
		FullName:   fullName,
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		Role:       role,
	}, nil
}

// ProfileRepository defines persistence for profiles
type ProfileRepository interface {
	// FindByID returns shared.ErrNotFound when the profile does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// FindAll lists profiles matching the filter (id, role)
	FindAll(ctx context.Context, filter shared.Filter) ([]Profile, error)

	Save(ctx context.Context, profile *Profile) error
}
