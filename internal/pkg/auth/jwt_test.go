package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestUserFromRequest(t *testing.T) {
	token, err := GenerateToken(7, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/records/1/files", nil)
	_, err = UserFromRequest(req)
	assert.ErrorIs(t, err, ErrMissingToken)

	req.Header.Set("Bearer", token)
	userID, err := UserFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)

	req = httptest.NewRequest("POST", "/records/1/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	userID, err = UserFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
}
