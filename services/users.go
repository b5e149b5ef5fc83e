package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/models"
)

const minPasswordLength = 8

// UserInput holds a user provisioned by an admin
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Unit     string `json:"unit"`
	Phone    string `json:"phone"`
}

// UserService provisions users and lets them maintain their own profile
type UserService struct {
	users databases.UserDatabase
	clock *clock
}

// CreateUser provisions an active user with a bcrypt password hash
func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, in UserInput) (*models.User, error) {
	if !actor.HasRole(models.RoleAdmin) {
		return nil, Forbidden("only admins can create users")
	}
	if blank(in.Name) {
		return nil, Validation("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, Validation("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, Validation("password must be at least %d characters", minPasswordLength)
	}
	role := models.RoleMember
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, Validation("role must be one of member, officer, admin")
		}
		role = r
	}
	hash, err := identity.HashPassword(in.Password)
	if err != nil {
		return nil, Internal(err, "failed to hash password")
	}

	now := s.clock.Now()
	u := &models.User{
		ID:           databases.NewID(),
		Name:         in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         role,
		Unit:         in.Unit,
		Phone:        in.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.InsertOne(ctx, u); err != nil {
		if errors.Is(err, databases.ErrDuplicate) {
			return nil, Conflict("a user with this email already exists")
		}
		return nil, storeErr(err, "user")
	}
	zap.S().Infow("user created", "userId", u.ID, "role", u.Role, "by", actor.UserID)
	return u, nil
}

// ListUsers returns a page of users to officers
func (s *UserService) ListUsers(ctx context.Context, actor models.Actor, filter databases.UserFilter, page databases.Page) ([]models.User, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can list users")
	}
	list, err := s.users.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return list, nil
}

// SetRole changes another user's role
func (s *UserService) SetRole(ctx context.Context, actor models.Actor, id, role string) (*models.User, error) {
	if !actor.HasRole(models.RoleAdmin) {
		return nil, Forbidden("only admins can change roles")
	}
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, Validation("role must be one of member, officer, admin")
	}
	if id == actor.UserID {
		return nil, InvalidState("you cannot change your own role")
	}
	u, err := s.users.SetRole(ctx, id, r, s.clock.Now())
	if err != nil {
		return nil, storeErr(err, "user")
	}
	zap.S().Infow("user role changed", "userId", id, "role", r, "by", actor.UserID)
	return u, nil
}

// Deactivate disables another user's account. Users are never deleted.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.HasRole(models.RoleAdmin) {
		return nil, Forbidden("only admins can deactivate users")
	}
	if id == actor.UserID {
		return nil, InvalidState("you cannot deactivate yourself")
	}
	u, err := s.users.Deactivate(ctx, id, s.clock.Now())
	if err != nil {
		return nil, storeErr(err, "user")
	}
	zap.S().Infow("user deactivated", "userId", id, "by", actor.UserID)
	return u, nil
}

// GetMe returns the caller's own user record
func (s *UserService) GetMe(ctx context.Context, actor models.Actor) (*models.User, error) {
	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

// UpdateMe changes the caller's name, phone or unit
func (s *UserService) UpdateMe(ctx context.Context, actor models.Actor, p databases.UserProfile) (*models.User, error) {
	if p.Name != nil && blank(*p.Name) {
		return nil, Validation("name cannot be empty")
	}
	u, err := s.users.UpdateProfile(ctx, actor.UserID, p, s.clock.Now())
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}
