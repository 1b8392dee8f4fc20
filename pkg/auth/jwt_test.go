package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	svc, err := NewJWTService()
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := NewJWTService()
	assert.ErrorIs(t, err, ErrMissingJWTKey)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.GenerateToken("user-1", "tenant-1", "Zhang San", "front_desk", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "Zhang San", claims.Name)
	assert.Equal(t, "front_desk", claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.GenerateToken("user-1", "tenant-1", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "other-secret")
	other, err := NewJWTService()
	require.NoError(t, err)
	token, err := other.GenerateToken("user-1", "tenant-1", "", "", time.Hour)
	require.NoError(t, err)

	svc := newTestJWTService(t)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestJWTService(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
