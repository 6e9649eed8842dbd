package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "probata/pkg/domain-errors"
)

var tokenService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

func Test_GenerateAccessToken(t *testing.T) {
	signed, err := tokenService.GenerateAccessToken("registrar-7", "registrar", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokenService.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "registrar-7", claims.ActorID)
	assert.Equal(t, "registrar", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	signed, err := tokenService.GenerateAccessToken("clerk-2", "clerk", -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewService("another-key", "test-issuer", "test-audience")
	signed, err := other.GenerateAccessToken("clerk-2", "clerk", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_MiddlewareAdapter(t *testing.T) {
	signed, err := tokenService.GenerateAccessToken("registrar-7", "registrar", time.Hour)
	require.NoError(t, err)

	adapter := NewMiddlewareAdapter(tokenService)
	claims, err := adapter.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "registrar-7", claims.ActorID)
	assert.Equal(t, "registrar", claims.Role)
}
