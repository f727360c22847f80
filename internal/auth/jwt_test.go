package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.GenerateUserToken("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestServiceTokenRole(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.GenerateServiceToken("stream-client")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "stream-client", claims.UserID)
	assert.Equal(t, "service", claims.Role)

	// Service tokens outlive user tokens.
	userToken, err := m.GenerateUserToken("u")
	require.NoError(t, err)
	userClaims, err := m.ValidateToken(userToken)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.After(userClaims.ExpiresAt.Time))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").GenerateUserToken("user-1")
	require.NoError(t, err)

	_, err = NewManager("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	m := NewManager("test-secret")
	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = m.ValidateToken("")
	assert.Error(t, err)
}
