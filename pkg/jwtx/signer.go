package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues EdDSA-signed session tokens. Keys are ephemeral: generated at
// startup and never persisted, so a restart invalidates outstanding sessions.
type Signer struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
	ttl    time.Duration
}

// NewEphemeralSigner generates a fresh Ed25519 keypair.
func NewEphemeralSigner(issuer string, ttl time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Signer{priv: priv, pub: pub, issuer: issuer, ttl: ttl}, nil
}

// Sign mints a session token for the given subject. Returns the compact JWT
// and its expiry.
func (s *Signer) Sign(subject, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.ttl)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// Verifier returns a verifier for tokens signed by this signer.
func (s *Signer) Verifier() *Verifier {
	return &Verifier{pub: s.pub, issuer: s.issuer}
}

// TTL reports the configured session lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }
