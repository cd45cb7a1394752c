package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() *Tokens {
	return NewTokens("access-secret", "refresh-secret", time.Minute, time.Hour)
}

func TestGeneratePairRoundTrip(t *testing.T) {
	tokens := testTokens()
	pair, err := tokens.GeneratePair("acc-1", "amb@example.com", true)
	require.NoError(t, err)

	claims, err := tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.True(t, claims.IsStaff)

	refresh, err := tokens.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "amb@example.com", refresh.Email)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	tokens := NewTokens("same", "same", time.Minute, time.Hour)
	pair, err := tokens.GeneratePair("acc-1", "amb@example.com", false)
	require.NoError(t, err)

	_, err = tokens.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	tokens := NewTokens("a", "r", -time.Minute, time.Hour)
	pair, err := tokens.GeneratePair("acc-1", "amb@example.com", false)
	require.NoError(t, err)

	_, err = tokens.ValidateAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	pair, err := testTokens().GeneratePair("acc-1", "amb@example.com", false)
	require.NoError(t, err)

	other := NewTokens("other", "other", time.Minute, time.Hour)
	_, err = other.ValidateAccess(pair.AccessToken)
	assert.Error(t, err)
}
