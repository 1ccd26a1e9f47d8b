package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockplane/passkeyd/pkg/jwtx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"hello": "world"})
	})
}

func TestEnvelopeShapes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusOK, map[string]string{"k": "v"})

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.Nil(t, env.Error)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "INVALID_INPUT", "bad request")

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "INVALID_INPUT", env.Error.Code)
	require.Equal(t, "bad request", env.Error.Message)
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:4242"
	require.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.9")
	require.Equal(t, "198.51.100.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.9")
	require.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	h := Chain(okHandler(), RateLimitByIP(RateLimitConfig{
		RequestsPerWindow: 2, Window: time.Minute, Burst: 2,
	}))

	do := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/v1/login/start", nil)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("203.0.113.7"))
	require.Equal(t, http.StatusOK, do("203.0.113.7"))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/login/start", nil)
	r.RemoteAddr = "203.0.113.7:1234"
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different IP has its own bucket.
	require.Equal(t, http.StatusOK, do("198.51.100.9"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := Chain(okHandler(), CORS([]string{"https://app.example.com"}))

	// Allowed origin is echoed with credentials.
	r := httptest.NewRequest(http.MethodPost, "/v1/login/start", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	// Unknown origin gets no CORS headers at all.
	r = httptest.NewRequest(http.MethodPost, "/v1/login/start", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight short-circuits with 204.
	r = httptest.NewRequest(http.MethodOptions, "/v1/login/start", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewEphemeralSigner("test", time.Hour)
	require.NoError(t, err)

	var seenUserID string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
		WriteSuccess(w, http.StatusOK, nil)
	}), AuthnMiddleware(signer.Verifier()))

	// No token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/passkeys", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	// Garbage token.
	r := httptest.NewRequest(http.MethodGet, "/v1/passkeys", nil)
	r.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token reaches the handler with identity in context.
	token, _, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/v1/passkeys", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", seenUserID)
}
