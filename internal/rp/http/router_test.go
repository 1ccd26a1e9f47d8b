package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/require"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/internal/rp/store/drivers/sqlite"
	"github.com/lockplane/passkeyd/pkg/httpx"
	"github.com/lockplane/passkeyd/pkg/jwtx"
)

const testOrigin = "http://localhost:8080"

func newTestRouter(t *testing.T) (*Router, *jwtx.Signer) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	provider, err := webauthn.New(&webauthn.Config{
		RPID:          "localhost",
		RPDisplayName: "passkeyd test",
		RPOrigins:     []string{testOrigin},
	})
	require.NoError(t, err)

	signer, err := jwtx.NewEphemeralSigner("test", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	audit := service.NewAuditRecorder(st, logger)

	identity := &service.IdentityService{Store: st, Signer: signer}
	router := NewRouter(signer.Verifier(), []string{testOrigin}, "test", st, logger)
	router.CeremonyService = &service.CeremonyService{
		Store:        st,
		Provider:     provider,
		Parser:       service.StdParser{},
		Identity:     identity,
		Limiter:      &service.RateLimiter{Store: st, Window: time.Minute},
		Audit:        audit,
		Logger:       logger,
		ChallengeTTL: 5 * time.Minute,
		IPCeiling:    100,
		EmailCeiling: 100,
	}
	router.PasskeyService = &service.PasskeyService{Store: st, Audit: audit}
	router.IdentityService = identity
	router.ApplyRoutes()

	return router, signer
}

func doJSON(t *testing.T, router *Router, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()

	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.RemoteAddr = "203.0.113.7:4242"
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	var env httpx.Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRegisterStart(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/register/start",
		`{"email":"dana@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, data["ceremonyId"])
	require.NotNil(t, data["ceremonyOptions"])
}

func TestRegisterStartInvalidEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/register/start",
		`{"email":"nope"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/register/start", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestRegisterFinishGarbageResponse(t *testing.T) {
	router, _ := newTestRouter(t)

	_, start := doJSON(t, router, http.MethodPost, "/v1/register/start",
		`{"email":"dana@example.com"}`, nil)
	ceremonyID := start.Data.(map[string]any)["ceremonyId"].(string)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/register/finish",
		`{"ceremonyId":"`+ceremonyID+`","response":{"bogus":true}}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VERIFICATION_FAILED", env.Error.Code)

	// The ceremony was consumed, so a retry reports a mismatch.
	rec, env = doJSON(t, router, http.MethodPost, "/v1/register/finish",
		`{"ceremonyId":"`+ceremonyID+`","response":{"bogus":true}}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CHALLENGE_MISMATCH", env.Error.Code)
}

func TestLoginStartUnknownEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/login/start",
		`{"email":"nobody@example.com"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "CREDENTIAL_NOT_FOUND", env.Error.Code)
}

func TestLoginStartDiscoverable(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/login/start", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestPasskeysRequireAuth(t *testing.T) {
	router, signer := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/v1/passkeys", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)

	token, _, err := signer.Sign("user-1", "dana@example.com")
	require.NoError(t, err)

	rec, env = doJSON(t, router, http.MethodGet, "/v1/passkeys", "",
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestSessionRedeemUnknownToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/v1/session/redeem",
		`{"loginToken":"never-issued"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestOriginEnforcement(t *testing.T) {
	router, _ := newTestRouter(t)

	// Preflight from an allowed origin.
	r := httptest.NewRequest(http.MethodOptions, "/v1/register/start", nil)
	r.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	// A browser request from a foreign origin is rejected outright.
	rec2, env := doJSON(t, router, http.MethodPost, "/v1/register/start",
		`{"email":"dana@example.com"}`, map[string]string{"Origin": "https://evil.example.com"})
	require.Equal(t, http.StatusForbidden, rec2.Code)
	require.Equal(t, "INVALID_INPUT", env.Error.Code)
	require.Empty(t, rec2.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
