package service

import (
	"encoding/json"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
)

// RequestMeta carries transport facts that ceremonies record for auditing.
type RequestMeta struct {
	ClientIP string
	Origin   string
}

// CeremonyStart is handed to the browser to drive the authenticator prompt.
// Options is the verbatim options document produced by the verifier.
type CeremonyStart struct {
	CeremonyID string          `json:"ceremonyId"`
	Options    json.RawMessage `json:"ceremonyOptions"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// PasskeyInfo is the public view of a stored credential. Key material never
// leaves the store.
type PasskeyInfo struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	DeviceType domain.DeviceType `json:"deviceType"`
	BackedUp   bool              `json:"backedUp"`
	Transports []string          `json:"transports,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	LastUsedAt *time.Time        `json:"lastUsedAt,omitempty"`
}

func passkeyInfo(c domain.Credential) PasskeyInfo {
	return PasskeyInfo{
		ID:         c.ID,
		Label:      c.Label,
		DeviceType: c.DeviceType,
		BackedUp:   c.BackedUp,
		Transports: c.Transports,
		CreatedAt:  c.CreatedAt,
		LastUsedAt: c.LastUsedAt,
	}
}

// RegistrationResult is returned by a completed registration ceremony.
type RegistrationResult struct {
	Passkey    PasskeyInfo `json:"passkey"`
	Email      string      `json:"email"`
	LoginToken string      `json:"loginToken"`
}

// AuthenticationResult is returned by a completed authentication ceremony.
type AuthenticationResult struct {
	Email      string `json:"email"`
	LoginToken string `json:"loginToken"`
}
