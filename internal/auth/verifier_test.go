package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokens(t *testing.T) {
	v, err := NewVerifier("", "")
	require.NoError(t, err)
	assert.False(t, v.Required())
	p, err := v.Verify("t1:Admin")
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t1", Role: "admin"}, p)
	_, err = v.Verify("t1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACRoundTrip(t *testing.T) {
	v, err := NewVerifier("hmac", "s3cret")
	require.NoError(t, err)
	assert.True(t, v.Required())
	tok, err := v.Issue(Principal{Tenant: "t1", Role: "operator"}, time.Minute)
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t1", Role: "operator"}, p)

	other, _ := NewVerifier("hmac", "different")
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	segs := strings.Split(tok, ".")
	_, err = v.Verify(segs[0] + "." + segs[1] + ".AAAA")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACExpiry(t *testing.T) {
	v, err := NewVerifier("hmac", "s3cret")
	require.NoError(t, err)
	tok, err := v.Issue(Principal{Tenant: "t1", Role: "admin"}, time.Minute)
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestNewVerifierRejectsBadConfig(t *testing.T) {
	_, err := NewVerifier("hmac", "")
	assert.Error(t, err)
	_, err = NewVerifier("jwks", "x")
	assert.Error(t, err)
}
