package domain

import "errors"

// ErrorCode is the caller-facing error taxonomy. Every failure that leaves the
// service maps to exactly one code; store-level failures collapse into
// CodeUnknown so transport details never leak to callers.
type ErrorCode string

const (
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeChallengeMismatch  ErrorCode = "CHALLENGE_MISMATCH"
	CodeChallengeExpired   ErrorCode = "CHALLENGE_EXPIRED"
	CodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	CodeCredentialNotFound ErrorCode = "CREDENTIAL_NOT_FOUND"
	CodeUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// Error carries a taxonomy code plus a caller-safe message. Messages are kept
// deliberately generic for codes that could confirm account existence.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// Is matches by code so errors.Is works against the canonical values below
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Canonical errors for each taxonomy code.
var (
	ErrInvalidInput       = &Error{Code: CodeInvalidInput, Message: "malformed request"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "authentication required"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "too many attempts, try again later"}
	ErrChallengeMismatch  = &Error{Code: CodeChallengeMismatch, Message: "unknown or already used ceremony"}
	ErrChallengeExpired   = &Error{Code: CodeChallengeExpired, Message: "ceremony expired, start again"}
	ErrVerificationFailed = &Error{Code: CodeVerificationFailed, Message: "credential verification failed"}
	ErrCredentialNotFound = &Error{Code: CodeCredentialNotFound, Message: "no matching passkey"}
	ErrUnknown            = &Error{Code: CodeUnknown, Message: "internal error"}
)

// CodeOf extracts the taxonomy code from err, defaulting to CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
