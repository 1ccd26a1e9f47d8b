package sqlite

import (
	"context"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
)

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO challenges (id, kind, email, pending_handle, session_json, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Kind), c.Email, c.PendingHandle, c.SessionJSON,
		toMillis(c.ExpiresAt), toMillis(c.CreatedAt))
	return mapConstraint(err)
}

// ConsumeChallenge deletes and returns the row in a single statement.
// Concurrent finish-calls with the same id race to one winner; everyone else
// sees ErrNotFound. The row is gone even when the outcome is a kind mismatch
// or expiry, which is what makes retries with a stale ceremony id fail closed.
func (r *challengesRepo) ConsumeChallenge(ctx context.Context, id string, kind domain.ChallengeKind, now time.Time) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM challenges WHERE id = ?
		 RETURNING id, kind, email, pending_handle, session_json, expires_at, created_at`, id)

	var c domain.Challenge
	var expires, created int64
	if err := row.Scan(&c.ID, (*string)(&c.Kind), &c.Email, &c.PendingHandle,
		&c.SessionJSON, &expires, &created); err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	c.ExpiresAt = fromMillis(expires)
	c.CreatedAt = fromMillis(created)

	if c.Kind != kind {
		return domain.Challenge{}, store.ErrNotFound
	}
	if !c.ExpiresAt.After(now) {
		// The consumed row is returned alongside the error so callers can
		// still attribute the expiry.
		return c, store.ErrChallengeExpired
	}
	return c, nil
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at <= ?`, toMillis(now))
	return err
}
