package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/internal/rp/store"
	"github.com/lockplane/passkeyd/pkg/httpx"
	"github.com/lockplane/passkeyd/pkg/jwtx"
	"github.com/lockplane/passkeyd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier       *jwtx.Verifier
	allowedOrigins []string
	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger

	store           store.Store
	CeremonyService *service.CeremonyService
	PasskeyService  *service.PasskeyService
	IdentityService *service.IdentityService
}

func NewRouter(
	verifier *jwtx.Verifier,
	allowedOrigins []string,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		verifier:       verifier,
		allowedOrigins: allowedOrigins,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		logger:         logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(r.allowedOrigins),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerCeremonies()
	r.registerPasskeys()
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerCeremonies() {
	registerHandler := &RegisterHandler{Ceremonies: r.CeremonyService}
	loginHandler := &LoginHandler{Ceremonies: r.CeremonyService}

	// Ceremony endpoints are unauthenticated by nature, so they get the
	// strict per-IP edge limit in addition to the durable limiter inside the
	// service.
	r.Mux.Handle("POST /v1/register/start",
		httpx.Chain(http.HandlerFunc(registerHandler.HandleStart),
			r.requireAllowedOrigin(),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/register/finish",
		httpx.Chain(http.HandlerFunc(registerHandler.HandleFinish),
			r.requireAllowedOrigin(),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/start",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleStart),
			r.requireAllowedOrigin(),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/finish",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleFinish),
			r.requireAllowedOrigin(),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasskeys() {
	h := &PasskeysHandler{Passkeys: r.PasskeyService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /v1/passkeys", secured(h.HandleList))
	r.Mux.Handle("PATCH /v1/passkeys/{id}", secured(h.HandleRename))
	r.Mux.Handle("DELETE /v1/passkeys/{id}", secured(h.HandleRemove))
}

func (r *Router) registerSession() {
	h := &SessionHandler{Identity: r.IdentityService}

	// Strict limit: redemption attempts are login attempts.
	r.Mux.Handle("POST /v1/session/redeem",
		httpx.Chain(http.HandlerFunc(h.HandleRedeem),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may
	// poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// requireAllowedOrigin rejects browser requests whose Origin header is not a
// configured relying-party origin. Requests without an Origin header (curl,
// server-to-server) pass through; the verifier still binds the ceremony to
// the client-data origin.
func (r *Router) requireAllowedOrigin() httpx.Middleware {
	allowed := make(map[string]struct{}, len(r.allowedOrigins))
	for _, origin := range r.allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if origin := req.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; !ok {
					httpx.WriteError(w, http.StatusForbidden, "INVALID_INPUT", "origin not allowed")
					return
				}
			}
			next.ServeHTTP(w, req)
		})
	}
}
