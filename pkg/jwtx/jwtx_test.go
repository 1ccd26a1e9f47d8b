package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralSigner("passkeyd-test", time.Hour)
	require.NoError(t, err)

	token, expires, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := signer.Verifier().Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "dana@example.com", claims.Email)
	require.Equal(t, "passkeyd-test", claims.Issuer)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralSigner("passkeyd-test", time.Hour)
	require.NoError(t, err)
	other, err := NewEphemeralSigner("passkeyd-test", time.Hour)
	require.NoError(t, err)

	token, _, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)

	_, err = other.Verifier().Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralSigner("issuer-a", time.Hour)
	require.NoError(t, err)

	token, _, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)

	// Same key, different expected issuer.
	verifier := signer.Verifier()
	verifier.issuer = "issuer-b"
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralSigner("passkeyd-test", time.Hour)
	require.NoError(t, err)
	signer.ttl = -time.Minute

	token, _, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)

	_, err = signer.Verifier().Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralSigner("passkeyd-test", time.Hour)
	require.NoError(t, err)

	_, err = signer.Verifier().Verify("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}
