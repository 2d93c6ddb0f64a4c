package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", 60)

	token, expiresAt, err := manager.GenerateToken("b@x.com", "acme", RoleManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", claims.Email)
	assert.Equal(t, "acme", claims.Tenant)
	assert.Equal(t, RoleManager, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("b@x.com", "acme", RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("secret", 60).ParseToken("not.a.token")
	assert.Error(t, err)
}
