package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
	"github.com/lockplane/passkeyd/pkg/cryptox"
	"github.com/lockplane/passkeyd/pkg/idx"
)

const (
	DefaultChallengeTTL = 5 * time.Minute

	userHandleSize = 32
	defaultLabel   = "Passkey"
)

// CeremonyService drives the two passkey ceremonies end to end: it mints and
// consumes challenges, delegates cryptographic verification to the provider,
// persists credential state, and hands completed ceremonies to the identity
// service for the login-token exchange. Rate limits are evaluated before any
// state is created; audit events are recorded after every decision.
type CeremonyService struct {
	Store    store.Store
	Provider CeremonyProvider
	Parser   ResponseParser
	Identity *IdentityService
	Limiter  *RateLimiter
	Audit    *AuditRecorder
	Logger   *slog.Logger

	ChallengeTTL time.Duration
	IPCeiling    int64
	EmailCeiling int64

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

func (s *CeremonyService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *CeremonyService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return DefaultChallengeTTL
}

// BeginRegistration opens a registration ceremony for the email. The caller
// receives the verifier's creation options and an opaque ceremony id; nothing
// about the account is created until the ceremony finishes.
func (s *CeremonyService) BeginRegistration(ctx context.Context, email, displayName string, meta RequestMeta) (*CeremonyStart, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.checkLimits(ctx, meta, domain.EndpointRegisterStart, email); err != nil {
		return nil, err
	}

	subject := &ceremonyUser{email: email, displayName: displayName}
	opts := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	}

	var handle string
	user, err := s.Identity.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		// Returning account: reuse its handle and exclude every passkey it
		// already holds so the authenticator refuses a duplicate.
		handle = user.WebAuthnHandle
		records, err := s.Store.Credentials().ListUserCredentials(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list credentials: %w", err)
		}
		credentials, err := decodeStoredCredentials(records)
		if err != nil {
			return nil, err
		}
		subject.credentials = credentials
		subject.displayName = user.DisplayName
		if len(credentials) > 0 {
			opts = append(opts, webauthn.WithExclusions(credentialDescriptors(credentials)))
		}
	case errors.Is(err, store.ErrNotFound):
		raw, err := cryptox.GenerateHandle(userHandleSize)
		if err != nil {
			return nil, fmt.Errorf("generate user handle: %w", err)
		}
		handle = base64.RawURLEncoding.EncodeToString(raw)
	default:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if subject.handle, err = decodeHandle(handle); err != nil {
		return nil, err
	}

	creation, session, err := s.Provider.BeginRegistration(subject, opts...)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	start, err := s.persistChallenge(ctx, domain.ChallengeKindRegistration, email, handle, creation, session)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:     domain.AuditRegistrationStarted,
		Email:    email,
		ClientIP: meta.ClientIP,
		Origin:   meta.Origin,
	})
	return start, nil
}

// FinishRegistration consumes the ceremony, verifies the attestation, and on
// success creates the account (if new), stores the credential, and issues a
// single-use login token. The challenge is gone after this call no matter the
// outcome.
func (s *CeremonyService) FinishRegistration(ctx context.Context, ceremonyID string, response json.RawMessage, label string, meta RequestMeta) (*RegistrationResult, error) {
	if err := s.checkLimits(ctx, meta, domain.EndpointRegisterFinish, ""); err != nil {
		return nil, err
	}

	challenge, session, err := s.consumeChallenge(ctx, ceremonyID, domain.ChallengeKindRegistration, meta)
	if err != nil {
		return nil, err
	}

	parsed, err := s.Parser.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		s.failRegistration(challenge, meta, err)
		return nil, domain.ErrVerificationFailed
	}

	handle, err := decodeHandle(challenge.PendingHandle)
	if err != nil {
		return nil, err
	}
	subject := &ceremonyUser{handle: handle, email: challenge.Email}

	credential, err := s.Provider.CreateCredential(subject, session, parsed)
	if err != nil {
		s.failRegistration(challenge, meta, err)
		return nil, domain.ErrVerificationFailed
	}
	verified := classifyCredential(*credential)

	user, err := s.Identity.ResolveOrCreateUser(ctx, challenge.Email, "", challenge.PendingHandle)
	if err != nil {
		return nil, err
	}

	record, err := s.storeCredential(ctx, user.ID, label, verified)
	if err != nil {
		return nil, err
	}

	token, err := s.Identity.IssueLoginToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:         domain.AuditRegistrationCompleted,
		UserID:       user.ID,
		CredentialID: record.ID,
		Email:        user.Email,
		ClientIP:     meta.ClientIP,
		Origin:       meta.Origin,
	})
	return &RegistrationResult{
		Passkey:    passkeyInfo(record),
		Email:      user.Email,
		LoginToken: token,
	}, nil
}

// BeginAuthentication opens an authentication ceremony. With an email the
// options carry an allow-list of that account's passkeys; without one the
// ceremony is discoverable and the authenticator picks the credential.
func (s *CeremonyService) BeginAuthentication(ctx context.Context, email string, meta RequestMeta) (*CeremonyStart, error) {
	if email != "" {
		var err error
		if email, err = normalizeEmail(email); err != nil {
			return nil, err
		}
	}
	if err := s.checkLimits(ctx, meta, domain.EndpointLoginStart, email); err != nil {
		return nil, err
	}

	var (
		assertion *protocol.CredentialAssertion
		session   *webauthn.SessionData
	)
	if email != "" {
		subject, err := s.loadSubject(ctx, email, meta)
		if err != nil {
			return nil, err
		}
		assertion, session, err = s.Provider.BeginLogin(subject)
		if err != nil {
			return nil, fmt.Errorf("begin login: %w", err)
		}
	} else {
		var err error
		assertion, session, err = s.Provider.BeginDiscoverableLogin()
		if err != nil {
			return nil, fmt.Errorf("begin discoverable login: %w", err)
		}
	}

	start, err := s.persistChallenge(ctx, domain.ChallengeKindAuthentication, email, "", assertion, session)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:     domain.AuditAuthenticationStarted,
		Email:    email,
		ClientIP: meta.ClientIP,
		Origin:   meta.Origin,
	})
	return start, nil
}

// FinishAuthentication consumes the ceremony and verifies the assertion. The
// credential is resolved from the response itself, so discoverable and
// allow-list ceremonies converge here. A counter regression reported by the
// verifier fails the ceremony and leaves the stored counter untouched.
func (s *CeremonyService) FinishAuthentication(ctx context.Context, ceremonyID string, response json.RawMessage, meta RequestMeta) (*AuthenticationResult, error) {
	if err := s.checkLimits(ctx, meta, domain.EndpointLoginFinish, ""); err != nil {
		return nil, err
	}

	challenge, session, err := s.consumeChallenge(ctx, ceremonyID, domain.ChallengeKindAuthentication, meta)
	if err != nil {
		return nil, err
	}

	parsed, err := s.Parser.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		s.failAuthentication(domain.User{Email: challenge.Email}, "", meta, domain.CodeVerificationFailed)
		return nil, domain.ErrVerificationFailed
	}

	credentialID := encodeCredentialID(parsed.RawID)
	record, err := s.Store.Credentials().GetCredentialByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.failAuthentication(domain.User{Email: challenge.Email}, credentialID, meta, domain.CodeCredentialNotFound)
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", record.UserID, err)
	}
	records, err := s.Store.Credentials().ListUserCredentials(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	credentials, err := decodeStoredCredentials(records)
	if err != nil {
		return nil, err
	}
	handle, err := decodeHandle(user.WebAuthnHandle)
	if err != nil {
		return nil, err
	}
	subject := &ceremonyUser{
		handle:      handle,
		email:       user.Email,
		displayName: user.DisplayName,
		credentials: credentials,
	}

	var validated *webauthn.Credential
	if len(session.UserID) == 0 {
		// Discoverable ceremony: the authenticator names the account via the
		// user handle, which must match the credential's owner.
		_, validated, err = s.Provider.ValidatePasskeyLogin(
			func(_, userHandle []byte) (webauthn.User, error) {
				if !handleMatches(userHandle, handle) {
					return nil, errors.New("user handle does not match credential owner")
				}
				return subject, nil
			}, session, parsed)
	} else {
		validated, err = s.Provider.ValidateLogin(subject, session, parsed)
	}
	if err != nil {
		s.failAuthentication(user, credentialID, meta, domain.CodeVerificationFailed)
		return nil, domain.ErrVerificationFailed
	}

	if validated.Authenticator.CloneWarning {
		s.Audit.Record(domain.AuditEvent{
			Kind:         domain.AuditCounterMismatch,
			UserID:       user.ID,
			CredentialID: credentialID,
			Email:        user.Email,
			ClientIP:     meta.ClientIP,
			Origin:       meta.Origin,
			ErrorCode:    string(domain.CodeVerificationFailed),
			Metadata: map[string]string{
				"stored_counter":   strconv.FormatUint(uint64(record.SignCount), 10),
				"received_counter": strconv.FormatUint(uint64(validated.Authenticator.SignCount), 10),
			},
		})
		s.failAuthentication(user, credentialID, meta, domain.CodeVerificationFailed)
		return nil, domain.ErrVerificationFailed
	}

	credentialJSON, err := json.Marshal(validated)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	if err := s.Store.Credentials().UpdateCredentialSignCount(ctx, credentialID,
		validated.Authenticator.SignCount, string(credentialJSON), s.now()); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}

	token, err := s.Identity.IssueLoginToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(domain.AuditEvent{
		Kind:         domain.AuditAuthenticationCompleted,
		UserID:       user.ID,
		CredentialID: credentialID,
		Email:        user.Email,
		ClientIP:     meta.ClientIP,
		Origin:       meta.Origin,
	})
	return &AuthenticationResult{Email: user.Email, LoginToken: token}, nil
}

// loadSubject resolves an account and its passkeys for an allow-list login.
// Unknown accounts and accounts without passkeys report the same error so the
// endpoint cannot be used to probe for registered emails.
func (s *CeremonyService) loadSubject(ctx context.Context, email string, meta RequestMeta) (*ceremonyUser, error) {
	user, err := s.Identity.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.failAuthentication(domain.User{Email: email}, "", meta, domain.CodeCredentialNotFound)
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	records, err := s.Store.Credentials().ListUserCredentials(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	if len(records) == 0 {
		s.failAuthentication(user, "", meta, domain.CodeCredentialNotFound)
		return nil, domain.ErrCredentialNotFound
	}
	credentials, err := decodeStoredCredentials(records)
	if err != nil {
		return nil, err
	}
	handle, err := decodeHandle(user.WebAuthnHandle)
	if err != nil {
		return nil, err
	}
	return &ceremonyUser{
		handle:      handle,
		email:       user.Email,
		displayName: user.DisplayName,
		credentials: credentials,
	}, nil
}

// persistChallenge stores ceremony state and packages the verifier options
// for the caller.
func (s *CeremonyService) persistChallenge(ctx context.Context, kind domain.ChallengeKind, email, handle string, options any, session *webauthn.SessionData) (*CeremonyStart, error) {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}

	now := s.now()
	challenge := domain.Challenge{
		ID:            idx.New().String(),
		Kind:          kind,
		Email:         email,
		PendingHandle: handle,
		SessionJSON:   string(sessionJSON),
		ExpiresAt:     now.Add(s.challengeTTL()),
		CreatedAt:     now,
	}
	if err := s.Store.Challenges().CreateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("persist challenge: %w", err)
	}
	return &CeremonyStart{
		CeremonyID: challenge.ID,
		Options:    optionsJSON,
		ExpiresAt:  challenge.ExpiresAt,
	}, nil
}

// consumeChallenge retires the ceremony and decodes its session state. A
// wrong, reused, or cross-kind id is a mismatch; a known-but-stale id is an
// expiry, which is also audited.
func (s *CeremonyService) consumeChallenge(ctx context.Context, ceremonyID string, kind domain.ChallengeKind, meta RequestMeta) (domain.Challenge, webauthn.SessionData, error) {
	var session webauthn.SessionData
	challenge, err := s.Store.Challenges().ConsumeChallenge(ctx, ceremonyID, kind, s.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrChallengeExpired):
			s.Audit.Record(domain.AuditEvent{
				Kind:      domain.AuditChallengeExpired,
				Email:     challenge.Email,
				ClientIP:  meta.ClientIP,
				Origin:    meta.Origin,
				ErrorCode: string(domain.CodeChallengeExpired),
				Metadata:  map[string]string{"ceremony_id": ceremonyID, "kind": string(kind)},
			})
			return domain.Challenge{}, session, domain.ErrChallengeExpired
		case errors.Is(err, store.ErrNotFound):
			return domain.Challenge{}, session, domain.ErrChallengeMismatch
		default:
			return domain.Challenge{}, session, fmt.Errorf("consume challenge: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(challenge.SessionJSON), &session); err != nil {
		return domain.Challenge{}, session, fmt.Errorf("decode session: %w", err)
	}
	return challenge, session, nil
}

func (s *CeremonyService) storeCredential(ctx context.Context, userID, label string, verified VerifiedRegistration) (domain.Credential, error) {
	credentialJSON, err := json.Marshal(verified.Credential)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("encode credential: %w", err)
	}
	if label = strings.TrimSpace(label); label == "" {
		label = defaultLabel
	}

	now := s.now()
	record := domain.Credential{
		ID:             encodeCredentialID(verified.Credential.ID),
		UserID:         userID,
		Label:          label,
		SignCount:      verified.Credential.Authenticator.SignCount,
		DeviceType:     verified.DeviceType,
		BackedUp:       verified.BackedUp,
		Transports:     transportStrings(verified.Credential.Transport),
		CredentialJSON: string(credentialJSON),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.Credentials().CreateCredential(ctx, record); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Credential{}, &domain.Error{
				Code:    domain.CodeInvalidInput,
				Message: "passkey already registered",
			}
		}
		return domain.Credential{}, fmt.Errorf("persist credential: %w", err)
	}
	return record, nil
}

// checkLimits evaluates the IP window and, when an email is in hand, the
// email window. Both count the attempt before comparing, so a blocked caller
// keeps pushing its own window out.
func (s *CeremonyService) checkLimits(ctx context.Context, meta RequestMeta, endpoint, email string) error {
	identifiers := []struct {
		value   string
		kind    domain.IdentifierKind
		ceiling int64
	}{
		{meta.ClientIP, domain.IdentifierIP, s.IPCeiling},
		{email, domain.IdentifierEmail, s.EmailCeiling},
	}
	for _, id := range identifiers {
		err := s.Limiter.Check(ctx, id.value, id.kind, endpoint, id.ceiling)
		if errors.Is(err, domain.ErrRateLimited) {
			s.Audit.Record(domain.AuditEvent{
				Kind:      domain.AuditRateLimitExceeded,
				Email:     email,
				ClientIP:  meta.ClientIP,
				Origin:    meta.Origin,
				ErrorCode: string(domain.CodeRateLimited),
				Metadata: map[string]string{
					"endpoint":        endpoint,
					"identifier_kind": string(id.kind),
				},
			})
			return domain.ErrRateLimited
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CeremonyService) failRegistration(challenge domain.Challenge, meta RequestMeta, cause error) {
	s.Logger.Debug("registration verification failed", slog.Any("error", cause))
	s.Audit.Record(domain.AuditEvent{
		Kind:      domain.AuditRegistrationFailed,
		Email:     challenge.Email,
		ClientIP:  meta.ClientIP,
		Origin:    meta.Origin,
		ErrorCode: string(domain.CodeVerificationFailed),
	})
}

func (s *CeremonyService) failAuthentication(user domain.User, credentialID string, meta RequestMeta, code domain.ErrorCode) {
	s.Audit.Record(domain.AuditEvent{
		Kind:         domain.AuditAuthenticationFailed,
		UserID:       user.ID,
		CredentialID: credentialID,
		Email:        user.Email,
		ClientIP:     meta.ClientIP,
		Origin:       meta.Origin,
		ErrorCode:    string(code),
	})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || len(email) > 254 {
		return "", &domain.Error{
			Code:    domain.CodeInvalidInput,
			Message: "a valid email address is required",
		}
	}
	return email, nil
}

func credentialDescriptors(credentials []webauthn.Credential) []protocol.CredentialDescriptor {
	descriptors := make([]protocol.CredentialDescriptor, 0, len(credentials))
	for _, c := range credentials {
		descriptors = append(descriptors, c.Descriptor())
	}
	return descriptors
}

func transportStrings(transports []protocol.AuthenticatorTransport) []string {
	if len(transports) == 0 {
		return nil
	}
	out := make([]string, 0, len(transports))
	for _, t := range transports {
		out = append(out, string(t))
	}
	return out
}
