package users

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "users.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_CreateAndLookup(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	user := &entities.User{Username: "testuser", Email: "test@example.com", TokenHash: "abc123"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)

	byName, err := repo.GetByLogin(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.GetByLogin(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byToken, err := repo.GetByTokenHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)
}

func TestRepository_GetByTokenHash_Empty(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	// Users without a token have an empty hash; an empty lookup must not match them
	require.NoError(t, repo.Create(ctx, &entities.User{Username: "notoken", Email: "n@example.com"}))

	_, err := repo.GetByTokenHash(ctx, "")
	assert.True(t, database.IsNotFound(err))
}

func TestRepository_Create_Duplicate(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entities.User{Username: "dup", Email: "dup@example.com"}))
	err := repo.Create(ctx, &entities.User{Username: "dup", Email: "other@example.com"})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	exists, err := repo.Exists(ctx, "nobody", "dup@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "nobody", "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_UpdateFieldsAndCount(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	user := &entities.User{Username: "u", Email: "u@example.com"}
	require.NoError(t, repo.Create(ctx, user))

	n, err := repo.UpdateFields(ctx, user.ID, map[string]any{"failed_login_count": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FailedLoginCount)

	n, err = repo.UpdateFields(ctx, 999, map[string]any{"failed_login_count": 1})
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_GetOrCreateOwner(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	owner, err := repo.GetOrCreateOwner(ctx, "owner")
	require.NoError(t, err)
	assert.NotZero(t, owner.ID)
	assert.Equal(t, entities.UserRoleAdmin, owner.Role)

	again, err := repo.GetOrCreateOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, again.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
