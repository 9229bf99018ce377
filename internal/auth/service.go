package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByLogin(ctx context.Context, login string) (*entities.User, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*entities.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) (int64, error)
	Count(ctx context.Context) (int64, error)
	GetOrCreateOwner(ctx context.Context, username string) (*entities.User, error)
}

// Service handles authentication and user management.
type Service struct {
	users  UserStore
	config config.Auth
	now    func() time.Time
}

func NewService(users UserStore, cfg config.Auth) *Service {
	return &Service{users: users, config: cfg, now: time.Now}
}

// validateNewUser checks the fields of an account before it is stored.
func validateNewUser(username, email, password string, role entities.UserRole) error {
	switch {
	case username == "":
		return ErrUsernameRequired
	case email == "":
		return ErrEmailRequired
	case password == "":
		return ErrPasswordRequired
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	// RFC 5321 caps addresses at 254 characters
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	if role != entities.UserRoleAdmin && role != entities.UserRoleReader {
		return ErrInvalidRole
	}
	return nil
}

// CreateUser stores a password account with the given role.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, role entities.UserRole) (*entities.User, error) {
	if err := validateNewUser(username, email, password, role); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entities.User{Username: username, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Register creates a self-service account. The first account becomes admin.
func (s *Service) Register(ctx context.Context, username, email, password string) (*entities.User, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	role := entities.UserRoleReader
	if count == 0 {
		role = entities.UserRoleAdmin
	}
	return s.CreateUser(ctx, username, email, password, role)
}

// Authenticate validates credentials and returns the user.
// Locks the account after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*entities.User, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	// The owner account used in AUTH_MODE=none has no password
	if user.PasswordHash == "" {
		return nil, ErrInvalidPassword
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(ctx, user)
		return nil, err
	}

	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	if _, err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}); err != nil {
		log.Printf("[AUTH] record login for user %d: %v", user.ID, err)
	}

	return user, nil
}

// lockoutPolicy returns the failure threshold and lock length, falling
// back to 5 attempts and 30 minutes.
func (s *Service) lockoutPolicy() (int, time.Duration) {
	attempts, lock := s.config.MaxLoginAttempts, s.config.LockoutDuration
	if attempts <= 0 {
		attempts = 5
	}
	if lock <= 0 {
		lock = 30 * time.Minute
	}
	return attempts, lock
}

func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User) {
	user.FailedLoginCount++
	updates := map[string]any{"failed_login_count": user.FailedLoginCount}

	if attempts, lock := s.lockoutPolicy(); user.FailedLoginCount >= attempts {
		until := s.now().Add(lock)
		user.LockedUntil = &until
		updates["locked_until"] = until
	}

	if _, err := s.users.UpdateFields(ctx, user.ID, updates); err != nil {
		log.Printf("[AUTH] record failed login for user %d: %v", user.ID, err)
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return user, nil
}

// GenerateToken creates a new API token for a user, replacing any previous one.
// Returns the plaintext token (show to user once); only the hash is stored.
func (s *Service) GenerateToken(ctx context.Context, userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	rows, err := s.users.UpdateFields(ctx, userID, map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	if rows == 0 {
		return "", ErrUserNotFound
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(ctx context.Context, userID uint) error {
	_, err := s.users.UpdateFields(ctx, userID, map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ChangePassword updates a user's password.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	// The passwordless owner account cannot be given a password this way
	if user.PasswordHash == "" {
		return ErrInvalidPassword
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	_, err = s.users.UpdateFields(ctx, userID, map[string]any{"password_hash": newHash})
	return err
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Owner returns the account every request is bound to when authentication is disabled.
func (s *Service) Owner(ctx context.Context) (*entities.User, error) {
	username := s.config.OwnerUsername
	if username == "" {
		username = "owner"
	}
	return s.users.GetOrCreateOwner(ctx, username)
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
