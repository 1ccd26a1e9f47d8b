package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	httpapi "github.com/lockplane/passkeyd/internal/rp/http"
	"github.com/lockplane/passkeyd/internal/rp/service"
	"github.com/lockplane/passkeyd/internal/rp/store"
	"github.com/lockplane/passkeyd/internal/rp/store/drivers/sqlite"
	"github.com/lockplane/passkeyd/pkg/jwtx"
	"github.com/lockplane/passkeyd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the relying-party service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer *jwtx.Signer

	// Services
	ceremonyService     *service.CeremonyService
	passkeyService      *service.PasskeyService
	identityService     *service.IdentityService
	auditRecorder       *service.AuditRecorder
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passkeyd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, err := jwtx.NewEphemeralSigner(cfg.Issuer, cfg.SessionTTL)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize session signer: %w", err)
	}
	app.signer = signer

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.auditRecorder.Start()
	app.housekeepingService.Start()

	app.logger.Info("relying party starting",
		"port", app.cfg.Port,
		"rp_id", app.cfg.RPID,
		"version", BuildVersion,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down relying party...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the background workers, draining any queued audit events
	app.housekeepingService.Stop()
	app.auditRecorder.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("relying party stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	provider, err := webauthn.New(&webauthn.Config{
		RPID:          app.cfg.RPID,
		RPDisplayName: app.cfg.RPDisplayName,
		RPOrigins:     app.cfg.RPOrigins,
		Timeouts: webauthn.TimeoutsConfig{
			Registration: webauthn.TimeoutConfig{Enforce: true, Timeout: app.cfg.ChallengeTTL},
			Login:        webauthn.TimeoutConfig{Enforce: true, Timeout: app.cfg.ChallengeTTL},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize webauthn: %w", err)
	}

	app.auditRecorder = service.NewAuditRecorder(app.db, app.logger)

	app.identityService = &service.IdentityService{
		Store:         app.db,
		Signer:        app.signer,
		LoginTokenTTL: app.cfg.LoginTokenTTL,
	}

	app.ceremonyService = &service.CeremonyService{
		Store:    app.db,
		Provider: provider,
		Parser:   service.StdParser{},
		Identity: app.identityService,
		Limiter: &service.RateLimiter{
			Store:  app.db,
			Window: app.cfg.RateWindow,
		},
		Audit:        app.auditRecorder,
		Logger:       app.logger,
		ChallengeTTL: app.cfg.ChallengeTTL,
		IPCeiling:    app.cfg.IPCeiling,
		EmailCeiling: app.cfg.EmailCeiling,
	}

	app.passkeyService = &service.PasskeyService{
		Store: app.db,
		Audit: app.auditRecorder,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer.Verifier(),
		app.cfg.RPOrigins,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.CeremonyService = app.ceremonyService
	router.PasskeyService = app.passkeyService
	router.IdentityService = app.identityService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
