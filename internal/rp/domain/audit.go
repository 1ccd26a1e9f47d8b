package domain

import "time"

// AuditKind names a protocol transition worth recording.
type AuditKind string

const (
	AuditRegistrationStarted     AuditKind = "registration_started"
	AuditRegistrationCompleted   AuditKind = "registration_completed"
	AuditRegistrationFailed      AuditKind = "registration_failed"
	AuditAuthenticationStarted   AuditKind = "authentication_started"
	AuditAuthenticationCompleted AuditKind = "authentication_completed"
	AuditAuthenticationFailed    AuditKind = "authentication_failed"
	AuditChallengeExpired        AuditKind = "challenge_expired"
	AuditRateLimitExceeded       AuditKind = "rate_limit_exceeded"
	AuditCounterMismatch         AuditKind = "counter_mismatch"
	AuditCredentialRemoved       AuditKind = "credential_removed"
	AuditCredentialUpdated       AuditKind = "credential_updated"
)

// AuditEvent is an append-only record of a protocol transition. Events are
// written best-effort after the primary decision is made; the core never
// mutates or deletes them.
type AuditEvent struct {
	ID           string
	Kind         AuditKind
	UserID       string
	CredentialID string
	Email        string
	ClientIP     string
	Origin       string
	Metadata     map[string]string
	ErrorCode    string
	CreatedAt    time.Time
}
