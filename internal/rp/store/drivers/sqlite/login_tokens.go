package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

type loginTokensRepo struct {
	db dbtx
}

func (r *loginTokensRepo) CreateLoginToken(ctx context.Context, t domain.LoginToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, toMillis(t.ExpiresAt),
		mapOptionalMillis(t.UsedAt), toMillis(t.CreatedAt))
	return mapConstraint(err)
}

// ConsumeLoginToken marks the token used in the same statement that finds it,
// so a token can be redeemed exactly once.
func (r *loginTokensRepo) ConsumeLoginToken(ctx context.Context, tokenHash string, now time.Time) (domain.LoginToken, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE login_tokens SET used_at = ?
		 WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
		 RETURNING id, user_id, token_hash, expires_at, used_at, created_at`,
		toMillis(now), tokenHash, toMillis(now))

	var t domain.LoginToken
	var expires, created int64
	var used sql.NullInt64
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &used, &created); err != nil {
		return domain.LoginToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expires)
	t.UsedAt = mapNullMillis(used)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (r *loginTokensRepo) DeleteExpiredLoginTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_tokens WHERE expires_at <= ?`, toMillis(now))
	return err
}
