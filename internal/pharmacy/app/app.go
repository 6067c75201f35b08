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

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	httpapi "github.com/farmadigital/pharmacy/internal/pharmacy/http"
	"github.com/farmadigital/pharmacy/internal/pharmacy/payment"
	"github.com/farmadigital/pharmacy/internal/pharmacy/service"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store/drivers/sqlite"
	"github.com/farmadigital/pharmacy/pkg/cryptox"
	"github.com/farmadigital/pharmacy/pkg/jwtx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the pharmacy service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer *jwtx.Signer
	cipher *cryptox.CardCipher

	// Services
	tokenService    *service.TokenService
	loginService    *service.LoginService
	cardService     *service.CardService
	purchaseService *service.PurchaseService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "pharmacy-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, err := initSigningKey(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.signer = signer

	cipher, err := initCardCipher(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize card cipher: %w", err)
	}
	app.cipher = cipher

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("pharmacy service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down pharmacy service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("pharmacy service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
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

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:   app.signer,
		Verifier: jwtx.NewVerifier(app.signer.Public(), app.cfg.Issuer),
		Policy:   domain.DefaultAccessPolicy(),
		Issuer:   app.cfg.Issuer,
		TTL:      jwtx.DefaultAccessTokenTTL,
	}

	app.loginService = &service.LoginService{
		Store:      app.db,
		Tokens:     app.tokenService,
		TOTPIssuer: app.cfg.Issuer,
	}
	app.cardService = &service.CardService{
		Store:  app.db,
		Cipher: app.cipher,
	}
	app.purchaseService = &service.PurchaseService{
		Store:   app.db,
		Cipher:  app.cipher,
		Gateway: &payment.Simulator{},
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.LoginService = app.loginService
	router.CardService = app.cardService
	router.PurchaseService = app.purchaseService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
