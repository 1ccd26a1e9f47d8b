package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

func passkeyFixture(t *testing.T) (*fixture, *PasskeyService, string) {
	t.Helper()

	f := newFixture(t)
	f.register(t, "dana@example.com")

	user, err := f.store.Users().GetUserByEmail(context.Background(), "dana@example.com")
	require.NoError(t, err)

	return f, &PasskeyService{Store: f.store, Audit: f.audit}, user.ID
}

func TestPasskeyList(t *testing.T) {
	f, svc, userID := passkeyFixture(t)
	ctx := context.Background()

	f.provider.credentialID = []byte("cred-2")
	f.register(t, "dana@example.com")

	passkeys, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, passkeys, 2)
	for _, pk := range passkeys {
		require.NotEmpty(t, pk.ID)
		require.NotEmpty(t, pk.Label)
	}
}

func TestPasskeyRename(t *testing.T) {
	f, svc, userID := passkeyFixture(t)
	ctx := context.Background()

	passkeys, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, passkeys, 1)

	renamed, err := svc.Rename(ctx, userID, passkeys[0].ID, "Work laptop", f.meta)
	require.NoError(t, err)
	require.Equal(t, "Work laptop", renamed.Label)

	_, err = svc.Rename(ctx, userID, passkeys[0].ID, "", f.meta)
	require.Equal(t, domain.CodeInvalidInput, domain.CodeOf(err))

	require.Equal(t, 1, f.auditCount(t, domain.AuditCredentialUpdated))
}

func TestPasskeyRemove(t *testing.T) {
	f, svc, userID := passkeyFixture(t)
	ctx := context.Background()

	passkeys, err := svc.List(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, userID, passkeys[0].ID, f.meta))

	remaining, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, remaining)

	require.Equal(t, 1, f.auditCount(t, domain.AuditCredentialRemoved))
}

func TestPasskeyOwnershipScoping(t *testing.T) {
	f, svc, _ := passkeyFixture(t)
	ctx := context.Background()

	// A second account trying to rename or remove dana's passkey sees
	// not-found, same as a credential that does not exist.
	other, err := f.identity.ResolveOrCreateUser(ctx, "mallory@example.com", "", "bWFsbG9yeQ")
	require.NoError(t, err)

	danasPasskeys, err := svc.List(ctx, f.mustUserID(t, "dana@example.com"))
	require.NoError(t, err)
	require.Len(t, danasPasskeys, 1)

	_, err = svc.Rename(ctx, other.ID, danasPasskeys[0].ID, "mine now", f.meta)
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)

	err = svc.Remove(ctx, other.ID, danasPasskeys[0].ID, f.meta)
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)

	// Still there.
	remaining, err := svc.List(ctx, f.mustUserID(t, "dana@example.com"))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func (f *fixture) mustUserID(t *testing.T, email string) string {
	t.Helper()
	user, err := f.store.Users().GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return user.ID
}
