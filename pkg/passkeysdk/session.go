package passkeysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSessionExpired is returned when an authenticated call is attempted on a
// session whose bearer token has expired. Complete a new ceremony and redeem
// the login token to obtain a fresh session.
var ErrSessionExpired = errors.New("session expired")

// Session provides authenticated passkey management for one account. Sessions
// are bearer-token based and do not refresh; they live as long as the token
// the service minted at redemption.
type Session struct {
	client      *SDKClient
	accessToken string
	email       string
	expiresAt   time.Time
}

// Email returns the account email this session was minted for.
func (s *Session) Email() string { return s.email }

// AccessToken returns the raw bearer token, for callers that persist it.
func (s *Session) AccessToken() string { return s.accessToken }

// ExpiresAt returns when the session stops being usable.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Expired reports whether the session token is past its lifetime.
func (s *Session) Expired() bool {
	return time.Now().After(s.expiresAt)
}

// doAuthRequest performs an authenticated HTTP request using the session's
// bearer token.
func (s *Session) doAuthRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	if s.client.Origin != "" {
		req.Header.Set("Origin", s.client.Origin)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// postAuthJSON marshals payload and sends it as application/json with the
// session's bearer token.
func (s *Session) postAuthJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	return s.doAuthRequest(ctx, method, path, bytes.NewReader(raw), headers)
}
