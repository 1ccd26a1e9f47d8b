package passkeysdk

import (
	"encoding/json"
	"time"
)

// CeremonyStart is returned by the ceremony start endpoints. Options is the
// verbatim WebAuthn options document the browser feeds to
// navigator.credentials.create or navigator.credentials.get.
type CeremonyStart struct {
	CeremonyID string          `json:"ceremonyId"`
	Options    json.RawMessage `json:"ceremonyOptions"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// Passkey is the public view of a registered credential.
type Passkey struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	DeviceType string     `json:"deviceType"`
	BackedUp   bool       `json:"backedUp"`
	Transports []string   `json:"transports,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// RegistrationResult is returned by a completed registration ceremony.
type RegistrationResult struct {
	Verified   bool    `json:"verified"`
	Passkey    Passkey `json:"passkey"`
	Email      string  `json:"email"`
	LoginToken string  `json:"loginToken"`
}

// AuthenticationResult is returned by a completed authentication ceremony.
type AuthenticationResult struct {
	Verified   bool   `json:"verified"`
	Email      string `json:"email"`
	LoginToken string `json:"loginToken"`
}

// SessionToken is the bearer session minted when a login token is redeemed.
type SessionToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Email       string `json:"email"`
}

// HealthResponse is returned by the /livez and /readyz endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the per-dependency results of a readiness probe.
type HealthChecks struct {
	Database string `json:"database"`
}

type registerStartRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type registerFinishRequest struct {
	CeremonyID        string          `json:"ceremonyId"`
	Response          json.RawMessage `json:"response"`
	AuthenticatorName string          `json:"authenticatorName,omitempty"`
}

type loginStartRequest struct {
	Email string `json:"email,omitempty"`
}

type loginFinishRequest struct {
	CeremonyID string          `json:"ceremonyId"`
	Response   json.RawMessage `json:"response"`
}

type sessionRedeemRequest struct {
	LoginToken string `json:"loginToken"`
}

type passkeyListResponse struct {
	Passkeys []Passkey `json:"passkeys"`
}

type passkeyRenameRequest struct {
	AuthenticatorName string `json:"authenticatorName"`
}
