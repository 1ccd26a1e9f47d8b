package domain

import "time"

// User is an account identity. WebAuthnHandle is the pseudonymous byte handle
// presented to authenticators in place of the email; it is minted during the
// first registration ceremony and reused for every later one so that a user's
// credentials all share one handle.
type User struct {
	ID             string
	Email          string
	DisplayName    string
	WebAuthnHandle string // base64url, stable per account
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
