package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
)

type credentialsRepo struct {
	db dbtx
}

const credentialColumns = `id, user_id, label, sign_count, device_type, backed_up,
	transports, credential_json, created_at, updated_at, last_used_at`

func scanCredential(row interface{ Scan(...any) error }) (domain.Credential, error) {
	var c domain.Credential
	var backedUp int64
	var transports string
	var created, updated int64
	var lastUsed sql.NullInt64
	err := row.Scan(&c.ID, &c.UserID, &c.Label, &c.SignCount, (*string)(&c.DeviceType),
		&backedUp, &transports, &c.CredentialJSON, &created, &updated, &lastUsed)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.BackedUp = backedUp != 0
	c.Transports = splitTransports(transports)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	c.LastUsedAt = mapNullMillis(lastUsed)
	return c, nil
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	backedUp := 0
	if c.BackedUp {
		backedUp = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, user_id, label, sign_count, device_type, backed_up,
		 transports, credential_json, created_at, updated_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Label, c.SignCount, string(c.DeviceType), backedUp,
		joinTransports(c.Transports), c.CredentialJSON,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt), mapOptionalMillis(c.LastUsedAt))
	return mapConstraint(err)
}

func (r *credentialsRepo) GetCredentialByID(ctx context.Context, id string) (domain.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = ?`, id))
}

func (r *credentialsRepo) GetUserCredential(ctx context.Context, id, userID string) (domain.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *credentialsRepo) ListUserCredentials(ctx context.Context, userID string) ([]domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) UpdateCredentialSignCount(ctx context.Context, id string, signCount uint32, credentialJSON string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET sign_count = ?, credential_json = ?, updated_at = ?, last_used_at = ?
		 WHERE id = ?`,
		signCount, credentialJSON, toMillis(usedAt), toMillis(usedAt), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) RenameCredential(ctx context.Context, id, userID, label string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET label = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		label, toMillis(now), id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row mutation into ErrNotFound so ownership-scoped
// updates report a non-owner exactly like a missing credential.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
