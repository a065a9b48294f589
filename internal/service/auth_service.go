package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"secureauth/api/internal/forms"
	"secureauth/api/internal/ids"
	"secureauth/api/internal/models"
	"secureauth/api/internal/repository"
	"secureauth/api/internal/security"
)

// ErrInvalidCredentials covers every login failure mode: unknown email,
// wrong password, and inactive account. Collapsing them into one error
// keeps responses from confirming whether an address is registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the credential store contract the workflows need.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	UpdateCredentials(ctx context.Context, id string, passwordHash []byte, role models.UserRole) error
}

// SessionIssuer is the session manager contract the workflows need.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string, remember bool) (string, error)
	Destroy(ctx context.Context, token string) error
}

type AuthService struct {
	users    UserStore
	sessions SessionIssuer
	hasher   *security.Hasher
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions SessionIssuer, hasher *security.Hasher, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		log:      log,
	}
}

// AuthResult is returned by the two successful auth transitions.
type AuthResult struct {
	User     models.User
	Token    string
	Remember bool
}

// Register validates the form, creates the user, and signs them in
// immediately. Shape and uniqueness failures come back as per-field
// errors; only storage faults surface as an error.
func (s *AuthService) Register(ctx context.Context, form *forms.RegisterForm) (AuthResult, forms.FieldErrors, error) {
	if errs := form.Validate(); errs.Any() {
		return AuthResult{}, errs, nil
	}

	passwordHash, err := s.hasher.Hash(ctx, form.Password)
	if err != nil {
		return AuthResult{}, nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return AuthResult{}, forms.FieldErrors{"username": "Username is already taken"}, nil
		case errors.Is(err, repository.ErrEmailTaken):
			return AuthResult{}, forms.FieldErrors{"email": "Email is already registered"}, nil
		}
		return AuthResult{}, nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.sessions.Issue(ctx, user.ID, false)
	if err != nil {
		return AuthResult{}, nil, fmt.Errorf("issue session: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stamp last login failed")
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return AuthResult{User: user, Token: token}, nil, nil
}

// Login verifies credentials and issues a session honoring the remember
// flag. Unknown email, wrong password, and inactive account all return
// ErrInvalidCredentials. The password is verified even when the account
// is inactive so the three failures take comparable time.
func (s *AuthService) Login(ctx context.Context, form *forms.LoginForm) (AuthResult, forms.FieldErrors, error) {
	if errs := form.Validate(); errs.Any() {
		return AuthResult{}, errs, nil
	}

	user, err := s.users.FindByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, nil, ErrInvalidCredentials
		}
		return AuthResult{}, nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(ctx, form.Password, user.PasswordHash) || !user.IsActive {
		return AuthResult{}, nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.ID, form.Remember)
	if err != nil {
		return AuthResult{}, nil, fmt.Errorf("issue session: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stamp last login failed")
	}

	return AuthResult{User: user, Token: token, Remember: form.Remember}, nil, nil
}

// Logout destroys the current session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}
