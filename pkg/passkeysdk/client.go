package passkeysdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the passkeyd relying-party service.
// It provides access to unauthenticated ceremony operations and can create
// authenticated Sessions for passkey management.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Origin is sent as the Origin header on every request. The service
	// rejects ceremony requests whose Origin is present but not in its
	// allowlist, so browser-like callers should set this to a configured
	// relying-party origin. Leave empty for server-side callers.
	Origin string
}

// NewSDKClient creates a new relying-party service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession wraps a redeemed session token in an authenticated Session.
// This is useful when the token was obtained elsewhere (e.g., stored from a
// previous redemption) rather than through RedeemLoginToken.
func (c *SDKClient) NewSession(tok *SessionToken) *Session {
	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	expiresAt = expiresAt.Add(-30 * time.Second) // 30 second buffer

	return &Session{
		client:      c,
		accessToken: tok.AccessToken,
		email:       tok.Email,
		expiresAt:   expiresAt,
	}
}
