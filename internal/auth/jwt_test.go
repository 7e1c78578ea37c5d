package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "nucleo/pkg/domain-errors"
)

var tokenService = NewTokenService("test-signing-key", "test-issuer", "test-audience")

func Test_IssueAndValidate(t *testing.T) {
	token, err := tokenService.Issue("user-1", Claims{
		Email:       "ann@acme.example",
		Name:        "Ann Perkins",
		CompanyID:   "acme",
		CompanyName: "Acme Corp",
	}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "ann@acme.example", claims.Email)
	assert.Equal(t, "Ann Perkins", claims.Name)
	assert.Equal(t, "acme", claims.CompanyID)
	assert.Equal(t, "Acme Corp", claims.CompanyName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_Invalid(t *testing.T) {
	_, err := tokenService.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func Test_ValidateToken_Expired(t *testing.T) {
	token, err := tokenService.Issue("user-1", Claims{Email: "ann@acme.example"}, -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewTokenService("other-key", "test-issuer", "test-audience")
	token, err := other.Issue("user-1", Claims{}, time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}
