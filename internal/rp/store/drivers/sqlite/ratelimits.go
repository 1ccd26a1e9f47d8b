package sqlite

import (
	"context"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

type rateLimitsRepo struct {
	db dbtx
}

// IncrementWindow is a single upsert so two concurrent requests in the same
// window both land in the final count. The post-increment value comes back
// through RETURNING; there is no separate read that could race.
func (r *rateLimitsRepo) IncrementWindow(ctx context.Context, identifier string, kind domain.IdentifierKind, endpoint string, windowStart time.Time) (int64, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO rate_limit_windows (identifier, kind, endpoint, window_start, attempts)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT (identifier, kind, endpoint, window_start)
		 DO UPDATE SET attempts = attempts + 1
		 RETURNING attempts`,
		identifier, string(kind), endpoint, toMillis(windowStart))

	var attempts int64
	if err := row.Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *rateLimitsRepo) DeleteWindowsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limit_windows WHERE window_start < ?`, toMillis(cutoff))
	return err
}
