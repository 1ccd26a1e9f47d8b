package domain

import "time"

// ChallengeKind tags a ceremony. The tag is checked on consume and never
// reinterpreted: a registration challenge finished against the login endpoint
// is treated as not found.
type ChallengeKind string

const (
	ChallengeKindRegistration   ChallengeKind = "registration"
	ChallengeKindAuthentication ChallengeKind = "authentication"
)

// Challenge is one in-flight ceremony. The cryptographic nonce lives inside
// SessionJSON (webauthn session data); the row is deleted by the first
// finish-call that references it, whatever the outcome.
type Challenge struct {
	ID            string // opaque ceremony identifier returned to the caller
	Kind          ChallengeKind
	Email         string // subject; empty for discoverable authentication
	PendingHandle string // pseudonymous user handle, registration only
	SessionJSON   string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}
