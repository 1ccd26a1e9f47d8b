package passkeyd_test

import (
	"net/http"
	"testing"

	"github.com/lockplane/passkeyd/pkg/passkeysdk"
	"github.com/stretchr/testify/require"
)

// TestPasskeyManagementRequiresToken verifies that management endpoints
// reject missing and invalid bearer tokens.
func TestPasskeyManagementRequiresToken(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	client := passkeysdk.NewSDKClient(baseURL)

	// No Authorization header at all.
	resp, err := http.Get(baseURL + "/v1/passkeys")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A syntactically valid session carrying a garbage token.
	session := client.NewSession(&passkeysdk.SessionToken{
		AccessToken: "not-a-real-token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	})

	_, err = session.ListPasskeys(t.Context())
	assertAPIError(t, err, passkeysdk.ErrorCodeUnauthorized, http.StatusUnauthorized,
		"garbage bearer token should be rejected")
}

// TestSessionRedeemUnknownToken verifies that redeeming a token the service
// never minted fails closed.
func TestSessionRedeemUnknownToken(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	client := passkeysdk.NewSDKClient(baseURL)

	_, err := client.RedeemLoginToken(t.Context(), "tok_never_minted")
	assertAPIError(t, err, passkeysdk.ErrorCodeUnauthorized, http.StatusUnauthorized,
		"unknown login token should be unauthorized")
}

// TestOriginEnforcement verifies that ceremony endpoints honor the
// relying-party origin allowlist.
func TestOriginEnforcement(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	// An allowlisted origin passes.
	allowed := passkeysdk.NewSDKClient(baseURL)
	allowed.Origin = allowedOrigin

	_, err := allowed.StartRegistration(t.Context(), testEmail, "")
	require.NoError(t, err, "allowlisted origin should pass")

	// A foreign origin is refused before any ceremony work happens.
	foreign := passkeysdk.NewSDKClient(baseURL)
	foreign.Origin = foreignOrigin

	_, err = foreign.StartRegistration(t.Context(), testEmail, "")
	assertAPIError(t, err, passkeysdk.ErrorCodeInvalidInput, http.StatusForbidden,
		"foreign origin should be refused")
}

// TestMalformedBodyRejected verifies JSON body validation on ceremony
// endpoints.
func TestMalformedBodyRejected(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	resp, err := http.Post(baseURL+"/v1/register/start", "application/json",
		nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
