package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueVerifyRoundTrip(t *testing.T) {
	raw, err := Issue(secret, PurposeCookieWrite, "subject-value", time.Minute)
	require.NoError(t, err)

	sub, ok := Verify(secret, raw, PurposeCookieWrite)
	require.True(t, ok)
	assert.Equal(t, "subject-value", sub)
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	raw, err := Issue(secret, PurposeCart, "sub", time.Minute)
	require.NoError(t, err)

	_, ok := Verify(secret, raw, PurposeCookieWrite)
	assert.False(t, ok, "a cart token must not authorize a cookie write")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := Issue(secret, PurposeCheckout, "sub", time.Minute)
	require.NoError(t, err)

	_, ok := Verify("other-secret", raw, PurposeCheckout)
	assert.False(t, ok)
}

func TestVerifyRejectsExpired(t *testing.T) {
	raw, err := Issue(secret, PurposeCheckout, "sub", -time.Minute)
	require.NoError(t, err)

	_, ok := Verify(secret, raw, PurposeCheckout)
	assert.False(t, ok)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	// A token without exp must fail even with a valid signature and
	// purpose.
	claims := jwt.MapClaims{
		"purpose": string(PurposeCheckout),
		"sub":     "sub",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, ok := Verify(secret, raw, PurposeCheckout)
	assert.False(t, ok)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{
		"purpose": string(PurposeCheckout),
		"sub":     "sub",
		"exp":     time.Now().Add(time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := Verify(secret, raw, PurposeCheckout)
	assert.False(t, ok)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, ok := Verify(secret, raw, PurposeCheckout)
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestCartRoundTrip(t *testing.T) {
	raw, err := IssueCart(secret, []uint64{3, 1, 7})
	require.NoError(t, err)

	ids, ok := VerifyCart(secret, raw)
	require.True(t, ok)
	assert.Equal(t, []uint64{3, 1, 7}, ids)
}

func TestCartEmptyIsValid(t *testing.T) {
	raw, err := IssueCart(secret, []uint64{})
	require.NoError(t, err)

	ids, ok := VerifyCart(secret, raw)
	require.True(t, ok)
	assert.Empty(t, ids)
}

func TestCartRejectsOtherPurpose(t *testing.T) {
	raw, err := Issue(secret, PurposeCheckout, "sub", time.Minute)
	require.NoError(t, err)

	_, ok := VerifyCart(secret, raw)
	assert.False(t, ok)
}

func TestEmailChangeRoundTrip(t *testing.T) {
	raw, err := IssueEmailChange(secret, 42, "new@example.com")
	require.NoError(t, err)

	uid, email, ok := VerifyEmailChange(secret, raw)
	require.True(t, ok)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, "new@example.com", email)
}

func TestEmailChangeRejectsTamperedSecret(t *testing.T) {
	raw, err := IssueEmailChange(secret, 42, "new@example.com")
	require.NoError(t, err)

	_, _, ok := VerifyEmailChange("other", raw)
	assert.False(t, ok)
}
