package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store/drivers/sqlite"
	"github.com/lockplane/passkeyd/pkg/jwtx"
)

func newIdentityService(t *testing.T) *IdentityService {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewEphemeralSigner("test", time.Hour)
	require.NoError(t, err)

	return &IdentityService{Store: st, Signer: signer}
}

func TestResolveOrCreateUser(t *testing.T) {
	svc := newIdentityService(t)
	ctx := context.Background()

	created, err := svc.ResolveOrCreateUser(ctx, "dana@example.com", "Dana", "aGFuZGxl")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "aGFuZGxl", created.WebAuthnHandle)

	// Resolving again returns the same account and ignores the new handle.
	resolved, err := svc.ResolveOrCreateUser(ctx, "dana@example.com", "", "b3RoZXI")
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.ID)
	require.Equal(t, "aGFuZGxl", resolved.WebAuthnHandle)
}

func TestLoginTokenRedemption(t *testing.T) {
	svc := newIdentityService(t)
	ctx := context.Background()

	user, err := svc.ResolveOrCreateUser(ctx, "dana@example.com", "", "aGFuZGxl")
	require.NoError(t, err)

	token, err := svc.IssueLoginToken(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := svc.RedeemLoginToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "Bearer", session.TokenType)
	require.Equal(t, "dana@example.com", session.Email)
	require.Equal(t, int64(3600), session.ExpiresIn)

	// The signed access token names the account.
	claims, err := svc.Signer.Verifier().Verify(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, "dana@example.com", claims.Email)

	// Tokens are single-use.
	_, err = svc.RedeemLoginToken(ctx, token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginTokenExpiry(t *testing.T) {
	svc := newIdentityService(t)
	ctx := context.Background()

	user, err := svc.ResolveOrCreateUser(ctx, "dana@example.com", "", "aGFuZGxl")
	require.NoError(t, err)

	token, err := svc.IssueLoginToken(ctx, user.ID)
	require.NoError(t, err)

	svc.Clock = func() time.Time { return time.Now().Add(DefaultLoginTokenTTL + time.Second) }
	_, err = svc.RedeemLoginToken(ctx, token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRedeemUnknownToken(t *testing.T) {
	svc := newIdentityService(t)

	_, err := svc.RedeemLoginToken(context.Background(), "never-issued")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
