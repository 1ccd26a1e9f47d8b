// Package jwtx signs and verifies the short-lived EdDSA session tokens handed
// out when a login token is redeemed.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a session token stays valid unless configured
// otherwise.
const DefaultSessionTTL = time.Hour

// Claims are the claims embedded in a session token.
type Claims struct {
	Email string `json:"email,omitempty"`

	jwt.RegisteredClaims
}
