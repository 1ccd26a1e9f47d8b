package domain

import "time"

// LoginToken is a redeemable one-time token minted at a successful ceremony
// finish. Only the SHA-256 fingerprint of the opaque value is stored.
type LoginToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Session is what redeeming a login token yields. ExpiresIn is in seconds,
// following the OAuth2 token response convention.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
	Email       string `json:"email"`
}
