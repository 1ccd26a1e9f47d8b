package domain

import "time"

// DeviceType classifies how a credential's private key lives on the
// authenticator side.
type DeviceType string

const (
	// DeviceTypeSingle means the key exists on exactly one authenticator.
	DeviceTypeSingle DeviceType = "single_device"
	// DeviceTypeMulti means the key is synced across devices (a passkey in
	// the platform-vendor sense).
	DeviceTypeMulti DeviceType = "multi_device"
)

// Credential is one registered authenticator. The credential ID is the
// base64url encoding of the authenticator-supplied identifier and is globally
// unique; ownership scoping happens via UserID on every mutation.
type Credential struct {
	ID             string
	UserID         string
	Label          string // human-readable name chosen by the owner
	SignCount      uint32 // monotonic, clone detection
	DeviceType     DeviceType
	BackedUp       bool
	Transports     []string
	CredentialJSON string // full webauthn credential material (key, flags, attestation type)
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastUsedAt     *time.Time
}
