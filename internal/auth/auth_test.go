package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-signing-key"))
	token, err := issuer.Issue("gary", ProviderPassword, time.Minute)
	require.NoError(t, err)

	username, provider, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "gary", username)
	assert.Equal(t, ProviderPassword, provider)
}

func TestTokenIssuerRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-signing-key"))
	token, err := issuer.Issue("gary", ProviderPassword, -time.Minute)
	require.NoError(t, err)

	_, _, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer([]byte("key-a"))
	token, err := issuer.Issue("gary", ProviderPassword, time.Minute)
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("key-b"))
	_, _, err = other.Verify(token)
	assert.Error(t, err)
}

func TestDetailProviderMatchesKind(t *testing.T) {
	assert.Equal(t, ProviderJWT, JWTDetail{}.Provider())
	assert.Equal(t, ProviderSAML, SAMLDetail{}.Provider())
	assert.Equal(t, ProviderCustom, CustomDetail{}.Provider())
	assert.Equal(t, ProviderPassword, PasswordDetail{}.Provider())
}
