package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuer = NewIssuer("test-signing-key", "test-issuer", time.Hour, 14*24*time.Hour)

func Test_CreateAccessToken_RoundTrip(t *testing.T) {
	subject := uuid.NewString()

	tok, err := issuer.CreateAccessToken(subject, "ROLE_USER")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := issuer.ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "ROLE_USER", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_CreateLoginPair(t *testing.T) {
	subject := uuid.NewString()

	pair, err := issuer.CreateLoginPair(subject, "ROLE_USER")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := issuer.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := issuer.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, subject, access.Subject)
	assert.Equal(t, subject, refresh.Subject)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func Test_ValidateToken_Expired_ParseStillSucceeds(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expiredIssuer := NewIssuer("test-signing-key", "test-issuer", time.Hour, time.Hour,
		WithNowFunc(func() time.Time { return past }))

	subject := uuid.NewString()
	tok, err := expiredIssuer.CreateAccessToken(subject, "ROLE_USER")
	require.NoError(t, err)

	_, err = issuer.ValidateToken(tok)
	require.ErrorIs(t, err, ErrTokenExpired)

	// ParseClaims is lenient about expiry so reissue can recover the subject.
	claims, err := issuer.ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
}

func Test_ValidateToken_Malformed(t *testing.T) {
	_, err := issuer.ValidateToken("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseClaims("not-a-token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewIssuer("other-key", "test-issuer", time.Hour, time.Hour)
	tok, err := other.CreateAccessToken(uuid.NewString(), "ROLE_USER")
	require.NoError(t, err)

	_, err = issuer.ValidateToken(tok)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseClaims(tok)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func Test_ValidateToken_Missing(t *testing.T) {
	_, err := issuer.ValidateToken("")
	require.ErrorIs(t, err, ErrTokenMissing)
}
