package service

import (
	"context"
	"errors"
	"fmt"

	"secureauth/api/internal/ids"
	"secureauth/api/internal/models"
	"secureauth/api/internal/repository"
	"secureauth/api/internal/security"
)

var (
	// ErrAdminExists means a matching user exists and update was not requested.
	ErrAdminExists = errors.New("user with that username or email already exists")
	// ErrAdminIdentityConflict means the username and email belong to two
	// different existing users.
	ErrAdminIdentityConflict = errors.New("username and email belong to different existing users")
)

type BootstrapAdminInput struct {
	Username       string
	Email          string
	Password       string
	UpdateExisting bool
}

// BootstrapAdmin creates an admin user outside the web workflow, or with
// UpdateExisting resets the matching user's password and elevates them.
// It reuses the same hasher and credential store contracts as
// registration; only the role assignment differs.
func (s *AuthService) BootstrapAdmin(ctx context.Context, input BootstrapAdminInput) (created bool, err error) {
	username := security.NormalizeIdentifier(input.Username)
	email := security.NormalizeIdentifier(input.Email)

	if !security.ValidUsername(username) {
		return false, fmt.Errorf("invalid username %q", input.Username)
	}
	if !security.ValidEmail(email) {
		return false, fmt.Errorf("invalid email %q", input.Email)
	}
	if !security.ValidPasswordComplexity(input.Password) {
		return false, errors.New("password must be 12-128 chars with upper, lower, digit, and symbol")
	}

	byUsername, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("find by username: %w", err)
	}
	byEmail, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("find by email: %w", err)
	}

	if byUsername.ID != "" && byEmail.ID != "" && byUsername.ID != byEmail.ID {
		return false, ErrAdminIdentityConflict
	}

	existing := byUsername
	if existing.ID == "" {
		existing = byEmail
	}

	passwordHash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	if existing.ID != "" {
		if !input.UpdateExisting {
			return false, ErrAdminExists
		}
		if err := s.users.UpdateCredentials(ctx, existing.ID, passwordHash, models.UserRoleAdmin); err != nil {
			return false, fmt.Errorf("update user: %w", err)
		}
		s.log.Info().Str("user_id", existing.ID).Msg("existing user elevated to admin")
		return false, nil
	}

	user := models.User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", username).Msg("admin user created")
	return true, nil
}
