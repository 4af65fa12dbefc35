package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewManager("secret", 60)

	token, err := m.GenerateAccessToken("admin", "Admin", AdminLevel)
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.UserID)
	assert.Equal(t, "Admin", claims.Nickname)
	assert.Equal(t, AdminLevel, claims.Level)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewManager("secret", 60).GenerateAccessToken("u1", "", 1)
	require.NoError(t, err)

	_, err = NewManager("other", 60).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	m := NewManager("secret", -60)
	token, err := m.GenerateAccessToken("u1", "", 1)
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewManager("secret", 60).VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
