package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const testPassword = "password12345"

func setupTestDB(t *testing.T) *users.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	return users.NewRepository(db)
}

// newTestService uses the cheapest bcrypt cost unless cfg sets one.
func newTestService(t *testing.T, cfg config.Auth) *Service {
	t.Helper()
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 4
	}
	return NewService(setupTestDB(t), cfg)
}

func mustCreateReader(t *testing.T, svc *Service, username string) *entities.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), username, username+"@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)
	return user
}

func TestService_CreateUser(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	tests := []struct {
		name                      string
		username, email, password string
		role                      entities.UserRole
		wantErr                   error
	}{
		{"admin", "admin", "admin@example.com", testPassword, entities.UserRoleAdmin, nil},
		{"reader", "reader_1", "reader@example.com", testPassword, entities.UserRoleReader, nil},
		{"no username", "", "a@example.com", testPassword, entities.UserRoleReader, ErrUsernameRequired},
		{"no email", "alice", "", testPassword, entities.UserRoleReader, ErrEmailRequired},
		{"no password", "alice", "a@example.com", "", entities.UserRoleReader, ErrPasswordRequired},
		{"short password", "alice", "a@example.com", "short", entities.UserRoleReader, ErrPasswordTooShort},
		{"bad username", "a b", "a@example.com", testPassword, entities.UserRoleReader, ErrUsernameInvalid},
		{"bad email", "alice", "not-an-email", testPassword, entities.UserRoleReader, ErrEmailInvalid},
		{"unknown role", "alice", "a@example.com", testPassword, entities.UserRole("librarian"), ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CreateUser(context.Background(), tt.username, tt.email, tt.password, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, user.Username)
			assert.Equal(t, tt.role, user.Role)
			assert.NotEmpty(t, user.PasswordHash)
			assert.NotEqual(t, tt.password, user.PasswordHash)
		})
	}
}

func TestService_CreateUser_Duplicate(t *testing.T) {
	svc := newTestService(t, config.Auth{})
	ctx := context.Background()
	mustCreateReader(t, svc, "alice")

	_, err := svc.CreateUser(ctx, "alice", "other@example.com", testPassword, entities.UserRoleReader)
	assert.ErrorIs(t, err, ErrUserExists, "same username")

	_, err = svc.CreateUser(ctx, "bob", "alice@example.com", testPassword, entities.UserRoleReader)
	assert.ErrorIs(t, err, ErrUserExists, "same email")
}

func TestService_Register_FirstUserIsAdmin(t *testing.T) {
	svc := newTestService(t, config.Auth{})
	ctx := context.Background()

	first, err := svc.Register(ctx, "first", "first@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, first.Role)

	second, err := svc.Register(ctx, "second", "second@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleReader, second.Role)
}

func TestService_Authenticate(t *testing.T) {
	svc := newTestService(t, config.Auth{})
	created := mustCreateReader(t, svc, "alice")

	for _, login := range []string{"alice", "alice@example.com"} {
		user, err := svc.Authenticate(context.Background(), login, testPassword)
		require.NoError(t, err, login)
		assert.Equal(t, created.ID, user.ID)
		assert.NotNil(t, user.LastLoginAt)
	}

	_, err := svc.Authenticate(context.Background(), "alice", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Authenticate(context.Background(), "nobody", testPassword)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Authenticate_Lockout(t *testing.T) {
	svc := newTestService(t, config.Auth{MaxLoginAttempts: 3, LockoutDuration: time.Hour})
	ctx := context.Background()
	mustCreateReader(t, svc, "alice")

	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(ctx, "alice", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidPassword, "attempt %d", i+1)
	}

	_, err := svc.Authenticate(ctx, "alice", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked, "correct password is refused while locked")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, "alice", testPassword)
	assert.NoError(t, err)
}

func TestService_Authenticate_SuccessResetsFailures(t *testing.T) {
	svc := newTestService(t, config.Auth{MaxLoginAttempts: 2, LockoutDuration: time.Hour})
	ctx := context.Background()
	mustCreateReader(t, svc, "alice")

	_, err := svc.Authenticate(ctx, "alice", "wrongpassword")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = svc.Authenticate(ctx, "alice", testPassword)
	require.NoError(t, err)

	// Counter restarted, so one more failure does not lock
	_, err = svc.Authenticate(ctx, "alice", "wrongpassword")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = svc.Authenticate(ctx, "alice", testPassword)
	assert.NoError(t, err)
}

func TestService_Tokens(t *testing.T) {
	svc := newTestService(t, config.Auth{})
	ctx := context.Background()
	user := mustCreateReader(t, svc, "alice")

	token, err := svc.GenerateToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	got, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ValidateToken(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A new token replaces the old one
	replacement, err := svc.GenerateToken(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.RevokeToken(ctx, user.ID))
	_, err = svc.ValidateToken(ctx, replacement)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	svc := newTestService(t, config.Auth{TokenExpiry: time.Hour})
	ctx := context.Background()
	user := mustCreateReader(t, svc, "alice")

	token, err := svc.GenerateToken(ctx, user.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_GenerateToken_UnknownUser(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	_, err := svc.GenerateToken(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_ChangePassword(t *testing.T) {
	svc := newTestService(t, config.Auth{})
	ctx := context.Background()
	user := mustCreateReader(t, svc, "alice")
	const newPassword = "a much longer secret"

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrongpassword", newPassword), ErrInvalidPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, testPassword, "short"), ErrPasswordTooShort)
	assert.ErrorIs(t, svc.ChangePassword(ctx, 999, testPassword, newPassword), ErrUserNotFound)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, testPassword, newPassword))

	_, err := svc.Authenticate(ctx, "alice", newPassword)
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice", testPassword)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestService_HasUsers(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	has, err := svc.HasUsers(context.Background())
	require.NoError(t, err)
	assert.False(t, has)

	mustCreateReader(t, svc, "alice")

	has, err = svc.HasUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestService_AuthMode(t *testing.T) {
	db := setupTestDB(t)

	none := NewService(db, config.Auth{Mode: config.AuthModeNone})
	assert.False(t, none.IsAuthEnabled())
	assert.Equal(t, config.AuthModeNone, none.GetAuthMode())

	local := NewService(db, config.Auth{Mode: config.AuthModeLocal})
	assert.True(t, local.IsAuthEnabled())
	assert.Equal(t, config.AuthModeLocal, local.GetAuthMode())
}

func TestService_Owner(t *testing.T) {
	svc := newTestService(t, config.Auth{Mode: config.AuthModeNone, OwnerUsername: "me"})
	ctx := context.Background()

	owner, err := svc.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me", owner.Username)
	assert.Equal(t, entities.UserRoleAdmin, owner.Role)

	again, err := svc.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, again.ID, "owner is created once")

	// The owner has no password and cannot log in
	_, err = svc.Authenticate(ctx, "me", testPassword)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}
