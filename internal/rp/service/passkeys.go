package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
)

const maxLabelLength = 64

// PasskeyService manages a signed-in account's stored credentials. Every
// operation is scoped to the owning account; acting on another account's
// credential id reports not-found rather than forbidden.
type PasskeyService struct {
	Store store.Store
	Audit *AuditRecorder

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

func (s *PasskeyService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// List returns the account's passkeys, public metadata only.
func (s *PasskeyService) List(ctx context.Context, userID string) ([]PasskeyInfo, error) {
	records, err := s.Store.Credentials().ListUserCredentials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	passkeys := make([]PasskeyInfo, 0, len(records))
	for _, record := range records {
		passkeys = append(passkeys, passkeyInfo(record))
	}
	return passkeys, nil
}

// Rename updates a passkey's label.
func (s *PasskeyService) Rename(ctx context.Context, userID, credentialID, label string, meta RequestMeta) (PasskeyInfo, error) {
	label = strings.TrimSpace(label)
	if label == "" || len(label) > maxLabelLength {
		return PasskeyInfo{}, &domain.Error{
			Code:    domain.CodeInvalidInput,
			Message: "label must be between 1 and 64 characters",
		}
	}

	if err := s.Store.Credentials().RenameCredential(ctx, credentialID, userID, label, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PasskeyInfo{}, domain.ErrCredentialNotFound
		}
		return PasskeyInfo{}, fmt.Errorf("rename credential: %w", err)
	}

	record, err := s.Store.Credentials().GetUserCredential(ctx, credentialID, userID)
	if err != nil {
		return PasskeyInfo{}, fmt.Errorf("reload credential: %w", err)
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:         domain.AuditCredentialUpdated,
		UserID:       userID,
		CredentialID: credentialID,
		ClientIP:     meta.ClientIP,
		Origin:       meta.Origin,
		Metadata:     map[string]string{"label": label},
	})
	return passkeyInfo(record), nil
}

// Remove deletes a passkey. The account itself survives even when its last
// passkey goes; it simply cannot authenticate until a new registration.
func (s *PasskeyService) Remove(ctx context.Context, userID, credentialID string, meta RequestMeta) error {
	if err := s.Store.Credentials().DeleteCredential(ctx, credentialID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrCredentialNotFound
		}
		return fmt.Errorf("delete credential: %w", err)
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:         domain.AuditCredentialRemoved,
		UserID:       userID,
		CredentialID: credentialID,
		ClientIP:     meta.ClientIP,
		Origin:       meta.Origin,
	})
	return nil
}
