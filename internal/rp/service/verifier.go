package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/lockplane/passkeyd/internal/rp/domain"
)

// CeremonyProvider is the boundary to the cryptographic verifier. It is
// satisfied by *webauthn.WebAuthn; tests substitute a fake. The provider is
// trusted to enforce challenge, origin, relying-party id, and signature
// checks; counter regression is surfaced through the credential's clone flag
// and converted to a fatal failure here.
type CeremonyProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	BeginDiscoverableLogin(opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
	ValidatePasskeyLogin(handler webauthn.DiscoverableUserHandler, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (webauthn.User, *webauthn.Credential, error)
}

// ResponseParser decodes raw authenticator response bytes.
type ResponseParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

// StdParser delegates to the protocol package.
type StdParser struct{}

func (StdParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (StdParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// VerifiedRegistration is the tagged result of a successful attestation check.
type VerifiedRegistration struct {
	Credential webauthn.Credential
	DeviceType domain.DeviceType
	BackedUp   bool
}

// VerifiedAuthentication is the tagged result of a successful assertion check.
type VerifiedAuthentication struct {
	Credential webauthn.Credential
	NewCounter uint32
}

// ceremonyUser adapts an account (or a not-yet-persisted registration subject)
// to the webauthn.User interface. The authenticator only ever sees the
// pseudonymous handle, never the email.
type ceremonyUser struct {
	handle      []byte
	email       string
	displayName string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte { return u.handle }

func (u *ceremonyUser) WebAuthnName() string { return u.email }

func (u *ceremonyUser) WebAuthnDisplayName() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.email
}

func (u *ceremonyUser) WebAuthnIcon() string { return "" }

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func decodeHandle(handle string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(handle)
	if err != nil {
		return nil, fmt.Errorf("decode user handle: %w", err)
	}
	return raw, nil
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeStoredCredentials unpacks the JSON credential material kept alongside
// each credential row.
func decodeStoredCredentials(records []domain.Credential) ([]webauthn.Credential, error) {
	if len(records) == 0 {
		return nil, nil
	}
	credentials := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		var credential webauthn.Credential
		if err := json.Unmarshal([]byte(record.CredentialJSON), &credential); err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", record.ID, err)
		}
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

// classifyCredential derives the tagged registration result from a verified
// webauthn credential.
func classifyCredential(cred webauthn.Credential) VerifiedRegistration {
	deviceType := domain.DeviceTypeSingle
	if cred.Flags.BackupEligible {
		deviceType = domain.DeviceTypeMulti
	}
	return VerifiedRegistration{
		Credential: cred,
		DeviceType: deviceType,
		BackedUp:   cred.Flags.BackupState,
	}
}

// handleMatches reports whether the authenticator-presented user handle
// belongs to the resolved account.
func handleMatches(presented []byte, account []byte) bool {
	return len(presented) == 0 || bytes.Equal(presented, account)
}
