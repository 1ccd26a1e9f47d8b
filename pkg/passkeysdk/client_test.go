package passkeysdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartRegistrationDecodesEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/register/start", r.URL.Path)
		require.Equal(t, "https://app.example.com", r.Header.Get("Origin"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "user@example.com", req["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"ceremonyId": "cer_123",
				"ceremonyOptions": {"publicKey": {"challenge": "abc"}},
				"expiresAt": "2026-01-01T00:00:00Z"
			}
		}`))
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)
	client.Origin = "https://app.example.com"

	start, err := client.StartRegistration(t.Context(), "user@example.com", "User")
	require.NoError(t, err)
	require.Equal(t, "cer_123", start.CeremonyID)
	require.JSONEq(t, `{"publicKey": {"challenge": "abc"}}`, string(start.Options))
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"success": false, "error": {"code": "CHALLENGE_EXPIRED", "message": "ceremony has expired"}}`))
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)

	_, err := client.FinishLogin(t.Context(), "cer_123", json.RawMessage(`{}`))
	require.Error(t, err)

	require.Equal(t, ErrorCodeChallengeExpired, ErrorCode(err))

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusGone, apiErr.StatusCode)
	require.Equal(t, "ceremony has expired", apiErr.Message)
}

func TestNonEnvelopeErrorFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)

	_, err := client.StartLogin(t.Context(), "")
	require.Error(t, err)
	require.Equal(t, ErrorCodeUnknown, ErrorCode(err))
}

func TestSessionSendsBearerToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok_abc", r.Header.Get("Authorization"))
		require.Equal(t, "/v1/passkeys", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": {"passkeys": [{"id": "cred_1", "label": "Laptop"}]}}`))
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)
	session := client.NewSession(&SessionToken{
		AccessToken: "tok_abc",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Email:       "user@example.com",
	})
	require.Equal(t, "user@example.com", session.Email())
	require.False(t, session.Expired())

	passkeys, err := session.ListPasskeys(t.Context())
	require.NoError(t, err)
	require.Len(t, passkeys, 1)
	require.Equal(t, "Laptop", passkeys[0].Label)
}

func TestExpiredSessionRefusesRequests(t *testing.T) {
	t.Parallel()

	client := NewSDKClient("http://unreachable.invalid")
	session := client.NewSession(&SessionToken{AccessToken: "tok_abc", ExpiresIn: 0})

	session.expiresAt = time.Now().Add(-time.Minute)

	_, err := session.ListPasskeys(t.Context())
	require.ErrorIs(t, err, ErrSessionExpired)
}
