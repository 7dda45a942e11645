package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("access-secret-0123456789", "refresh-secret-0123456789", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer_Misconfiguration(t *testing.T) {
	_, err := NewIssuer("", "refresh-secret", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("same-secret", "same-secret", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("access-secret", "refresh-secret", 0, time.Hour)
	assert.Error(t, err)
}

func TestIssue_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	userID, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	userID, err = issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestIssue_ConsecutivePairsDiffer(t *testing.T) {
	issuer := newTestIssuer(t)

	first, err := issuer.Issue("user-1")
	require.NoError(t, err)
	second, err := issuer.Issue("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestVerify_Expired(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue("user-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err = issuer.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The refresh token outlives the access token.
	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(169 * time.Hour) }
	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer("other-access-secret-01234", "other-refresh-secret-01234", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)

	pair, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = other.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = other.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_CrossTokenType(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = issuer.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedSignature(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue("user-1")
	require.NoError(t, err)

	tampered := tamperSignature(pair.RefreshToken)
	_, err = issuer.VerifyRefresh(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		_, err := issuer.VerifyAccess(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

// tamperSignature keeps the JWT structure intact but breaks the signature.
func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}
