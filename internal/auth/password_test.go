package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"typical", "correct horse battery", nil},
		{"minimum length", strings.Repeat("x", MinPasswordLength), nil},
		{"maximum length", strings.Repeat("x", MaxPasswordBytes), nil},
		{"too short", "short", ErrPasswordTooShort},
		{"too long", strings.Repeat("x", MaxPasswordBytes+1), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, bcrypt.MinCost)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, CheckPassword(tt.password, hash))
		})
	}
}

func TestHashPassword_CostOutOfRange(t *testing.T) {
	hash, err := HashPassword("correct horse battery", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("correct horse battery", hash))
	assert.ErrorIs(t, CheckPassword("wrong horse battery", hash), ErrInvalidPassword)
	assert.ErrorIs(t, CheckPassword("", hash), ErrInvalidPassword)

	// A malformed hash is a different failure from a wrong password
	err = CheckPassword("correct horse battery", "not-a-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPassword)
}

func TestGenerateAPIToken(t *testing.T) {
	plaintext, hash, err := GenerateAPIToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, 2*tokenBytes)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, plaintext, hash)
	assert.Equal(t, hash, HashToken(plaintext))

	other, _, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other)
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	require.NoError(t, err)
	b, err := GenerateSessionSecret()
	require.NoError(t, err)

	assert.Len(t, a, 2*tokenBytes)
	assert.NotEqual(t, a, b)
}
