package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
	"github.com/lockplane/passkeyd/pkg/cryptox"
	"github.com/lockplane/passkeyd/pkg/idx"
	"github.com/lockplane/passkeyd/pkg/jwtx"
)

const DefaultLoginTokenTTL = 2 * time.Minute

// IdentityService owns account resolution and the login-token handoff. A
// completed ceremony yields a short-lived single-use token; redeeming it
// exchanges the token for a signed session. Tokens are stored only as
// fingerprints, so a leaked database row cannot be replayed.
type IdentityService struct {
	Store         store.Store
	Signer        *jwtx.Signer
	LoginTokenTTL time.Duration

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

func (s *IdentityService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *IdentityService) tokenTTL() time.Duration {
	if s.LoginTokenTTL > 0 {
		return s.LoginTokenTTL
	}
	return DefaultLoginTokenTTL
}

// FindUserByEmail looks up an account. Returns store.ErrNotFound when no
// account exists for the address.
func (s *IdentityService) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.Store.Users().GetUserByEmail(ctx, email)
}

// ResolveOrCreateUser returns the account for the email, creating one with
// the supplied authenticator handle if none exists. Concurrent creations for
// the same address converge on the first row written.
func (s *IdentityService) ResolveOrCreateUser(ctx context.Context, email, displayName, handle string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now()
	user = domain.User{
		ID:             idx.New().String(),
		Email:          email,
		DisplayName:    displayName,
		WebAuthnHandle: handle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost the race, adopt the winner's row.
			return s.Store.Users().GetUserByEmail(ctx, email)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// IssueLoginToken mints a fresh single-use token for the account and persists
// its fingerprint. The plaintext is returned exactly once.
func (s *IdentityService) IssueLoginToken(ctx context.Context, userID string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate login token: %w", err)
	}

	now := s.now()
	record := domain.LoginToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.tokenTTL()),
		CreatedAt: now,
	}
	if err := s.Store.LoginTokens().CreateLoginToken(ctx, record); err != nil {
		return "", fmt.Errorf("persist login token: %w", err)
	}
	return token, nil
}

// RedeemLoginToken consumes a login token and returns a signed session. A
// token that is unknown, expired, or already used yields ErrUnauthorized
// without distinguishing which.
func (s *IdentityService) RedeemLoginToken(ctx context.Context, token string) (domain.Session, error) {
	var session domain.Session
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.LoginTokens().ConsumeLoginToken(ctx, cryptox.FingerprintToken(token), s.now())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrUnauthorized
			}
			return fmt.Errorf("consume login token: %w", err)
		}

		user, err := tx.Users().GetUserByID(ctx, record.UserID)
		if err != nil {
			return fmt.Errorf("load user %s: %w", record.UserID, err)
		}

		accessToken, _, err := s.Signer.Sign(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("sign session token: %w", err)
		}

		session = domain.Session{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int64(s.Signer.TTL().Seconds()),
			Email:       user.Email,
		}
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return session, nil
}
