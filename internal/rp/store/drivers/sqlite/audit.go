package sqlite

import (
	"context"
	"encoding/json"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

type auditEventsRepo struct {
	db dbtx
}

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, kind, user_id, credential_id, email, client_ip,
		 origin, metadata, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.UserID, e.CredentialID, e.Email, e.ClientIP,
		e.Origin, metadata, e.ErrorCode, toMillis(e.CreatedAt))
	return mapConstraint(err)
}

func (r *auditEventsRepo) ListAuditEvents(ctx context.Context, kind domain.AuditKind, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, user_id, credential_id, email, client_ip, origin, metadata, error_code, created_at
		 FROM audit_events WHERE kind = ? ORDER BY created_at DESC LIMIT ?`,
		string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var metadata string
		var created int64
		if err := rows.Scan(&e.ID, (*string)(&e.Kind), &e.UserID, &e.CredentialID,
			&e.Email, &e.ClientIP, &e.Origin, &metadata, &e.ErrorCode, &created); err != nil {
			return nil, err
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, err
			}
		}
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
