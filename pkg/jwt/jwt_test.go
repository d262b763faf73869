package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken(42, "flint@example.com", string(RoleUser))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "flint@example.com", claims.Email)
	assert.Equal(t, string(RoleUser), claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).GenerateToken(1, "a@example.com", string(RoleUser))
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	token, err := svc.GenerateToken(1, "a@example.com", string(RoleUser))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestHasRole(t *testing.T) {
	user := &JWTClaims{Role: string(RoleUser)}
	admin := &JWTClaims{Role: string(RoleAdmin)}

	assert.True(t, user.HasRole(RoleUser))
	assert.False(t, user.HasRole(RoleAdmin))
	assert.True(t, admin.HasRole(RoleAdmin))
	assert.True(t, admin.HasRole(RoleUser), "admin implies user")
}
