package store

import (
	"context"
	"errors"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrChallengeExpired is the distinguished consume outcome: the row
	// existed (and has been deleted) but its expiry had already passed.
	ErrChallengeExpired = errors.New("store: challenge expired")
)

// Store is the root data access interface. Concrete drivers (sqlite) implement
// this. Sub-repositories keep concerns tidy and testable, and make it obvious
// when a caller is about to open a transaction inside a transaction.
type Store interface {
	Users() Users
	Credentials() Credentials
	Challenges() Challenges
	RateLimits() RateLimits
	AuditEvents() AuditEvents
	LoginTokens() LoginTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the find-by-email lookup used before account creation;
	// emails are stored lowercased and unique.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByHandle resolves the account behind a webauthn user handle,
	// used for discoverable authentication.
	GetUserByHandle(ctx context.Context, handle string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error
}

type Credentials interface {
	// CreateCredential inserts a newly registered credential. The credential
	// id is globally unique; ErrAlreadyExists on collision.
	CreateCredential(ctx context.Context, c domain.Credential) error

	// GetCredentialByID fetches by credential id alone. Only the ceremony path
	// may use this; owner-facing operations go through the scoped variants.
	GetCredentialByID(ctx context.Context, id string) (domain.Credential, error)

	// GetUserCredential fetches by (credential id, owner). A credential owned
	// by someone else is ErrNotFound, never a permission error.
	GetUserCredential(ctx context.Context, id, userID string) (domain.Credential, error)

	ListUserCredentials(ctx context.Context, userID string) ([]domain.Credential, error)

	// UpdateCredentialSignCount persists the post-assertion counter, refreshed
	// credential material, and last-used timestamp.
	UpdateCredentialSignCount(ctx context.Context, id string, signCount uint32, credentialJSON string, usedAt time.Time) error

	// RenameCredential sets the label, scoped by (id, owner). ErrNotFound when
	// the pair does not match.
	RenameCredential(ctx context.Context, id, userID, label string, now time.Time) error

	// DeleteCredential removes a credential, scoped by (id, owner).
	DeleteCredential(ctx context.Context, id, userID string) error
}

type Challenges interface {
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// ConsumeChallenge atomically reads and deletes the challenge in one
	// statement, so concurrent finish-calls race to exactly one winner.
	// Missing row or wrong kind: ErrNotFound. Row present but past expiry:
	// ErrChallengeExpired with the consumed row still returned (the row is
	// deleted in every case).
	ConsumeChallenge(ctx context.Context, id string, kind domain.ChallengeKind, now time.Time) (domain.Challenge, error)

	// DeleteExpiredChallenges is housekeeping for abandoned ceremonies.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) error
}

type RateLimits interface {
	// IncrementWindow atomically upserts-and-increments the attempt counter
	// for (identifier, kind, endpoint, windowStart) and returns the
	// post-increment value. Two concurrent calls are both reflected.
	IncrementWindow(ctx context.Context, identifier string, kind domain.IdentifierKind, endpoint string, windowStart time.Time) (int64, error)

	// DeleteWindowsBefore drops windows older than cutoff (retention sweep).
	DeleteWindowsBefore(ctx context.Context, cutoff time.Time) error
}

type AuditEvents interface {
	// AppendAuditEvent writes one event. There is no update or delete.
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEvents returns the newest events of a kind, for operational
	// queries and tests.
	ListAuditEvents(ctx context.Context, kind domain.AuditKind, limit int) ([]domain.AuditEvent, error)
}

type LoginTokens interface {
	CreateLoginToken(ctx context.Context, t domain.LoginToken) error

	// ConsumeLoginToken marks an unused, unexpired token as used in a single
	// statement and returns it; ErrNotFound otherwise.
	ConsumeLoginToken(ctx context.Context, tokenHash string, now time.Time) (domain.LoginToken, error)

	DeleteExpiredLoginTokens(ctx context.Context, now time.Time) error
}
