package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid password", "validpassword123", nil},
		{"password too short", "short", ErrPasswordTooShort},
		{"password at minimum length", "12345678", nil},
		{"password too long", strings.Repeat("a", 73), ErrPasswordTooLong},
		{"password at maximum length", strings.Repeat("a", 72), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, 4)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				assert.NotEmpty(t, hash)
				assert.NotEqual(t, tt.password, hash)
			}
		})
	}
}

func TestHashPassword_LowCostFallsBackToDefault(t *testing.T) {
	hash, err := HashPassword("testpassword", 0)
	require.NoError(t, err)
	assert.NoError(t, CheckPassword("testpassword", hash))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("testpassword123", 4)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("testpassword123", hash))
	assert.ErrorIs(t, CheckPassword("wrongpassword", hash), ErrInvalidPassword)
	assert.ErrorIs(t, CheckPassword("", hash), ErrInvalidPassword)
	assert.Error(t, CheckPassword("testpassword123", "not-a-bcrypt-hash"))
}

func TestHashPassword_Unique(t *testing.T) {
	a, err := HashPassword("samepassword", 4)
	require.NoError(t, err)
	b, err := HashPassword("samepassword", 4)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salted hashes differ")
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCheckNewPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		wantErr  error
	}{
		{"acceptable", "correct-horse-battery", "alice", nil},
		{"too short", "abc", "alice", ErrPasswordTooShort},
		{"entirely numeric", "1234567890", "alice", ErrPasswordNumeric},
		{"contains username", "Alice-1234", "alice", ErrPasswordLikeAccount},
		{"no username given", "alicealice", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, CheckNewPassword(tt.password, tt.username), tt.wantErr)
		})
	}
}

func TestPasswordErrorMessages(t *testing.T) {
	assert.Equal(t, "This password is too short. It must contain at least 8 characters.", ErrPasswordTooShort.Error())
	assert.Equal(t, "This password is entirely numeric.", ErrPasswordNumeric.Error())
}
