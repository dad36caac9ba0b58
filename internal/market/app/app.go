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

	httpapi "github.com/cpf-camaras/market/internal/market/http"
	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/mail"
	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/internal/market/store/drivers/postgres"
	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlite"
	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/cpf-camaras/market/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the marketplace identity service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	notifier   mail.Notifier

	tokenService        *service.TokenService
	userService         *service.UserService
	chamberService      *service.ChamberService
	resetService        *service.ResetService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "market-identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.keyManager = keyManager

	app.initServices()

	if err := app.bootstrapAdmin(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("market identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			app.housekeepingService.Stop()
			_ = app.db.Close()
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
	app.logger.Info("shutting down market identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.router.WaitPending()
	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("market identity service stopped")
	return nil
}

// initDatabase opens the store named by DATABASE_URL and applies migrations
func (app *Application) initDatabase() error {
	driver, dsn, err := parseDatabaseURL(app.cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var db store.Store
	switch driver {
	case "postgres":
		db, err = postgres.NewStore(dsn)
	default:
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", driver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.notifier = mail.NewSMTPNotifier(mail.SMTPConfig{
		Host:   app.cfg.SMTP.Host,
		Port:   app.cfg.SMTP.Port,
		User:   app.cfg.SMTP.User,
		Pass:   app.cfg.SMTP.Pass,
		From:   app.cfg.SMTP.From,
		TLS:    app.cfg.SMTP.TLS,
		AppURL: app.cfg.SMTP.AppURL,
	})
	if !app.notifier.Configured() {
		app.logger.Warn("smtp not configured; password reset codes cannot be emailed")
	}

	app.userService = &service.UserService{
		Store:       app.db,
		SuperAdmins: app.cfg.SuperAdmins(),
	}
	app.chamberService = &service.ChamberService{Store: app.db}
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Users:      app.userService,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
	}
	app.resetService = &service.ResetService{
		Store: app.db,
		Resolver: identity.NewResolver(identity.Config{
			NameMinRatio:    app.cfg.Reset.NameRatio,
			CompanyMinRatio: app.cfg.Reset.CompanyRatio,
			PhoneMinDigits:  app.cfg.Reset.PhoneMinDigits,
			Debug:           app.cfg.Reset.Debug,
		}),
		Notifier:    app.notifier,
		TTL:         app.cfg.Reset.TTL,
		MinInterval: app.cfg.Reset.MinInterval,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.Reset.AuditRetention,
	)
}

// bootstrapAdmin creates the first admin from config when no admin exists.
func (app *Application) bootstrapAdmin() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = slogx.WithContext(ctx, app.logger)

	created, err := app.userService.EnsureBootstrapAdmin(ctx, service.BootstrapAdmin{
		Email:    app.cfg.BootstrapAdmin.Email,
		Password: app.cfg.BootstrapAdmin.Password,
		Name:     app.cfg.BootstrapAdmin.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !created {
		exists, err := app.userService.AnyAdminExists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			app.logger.Warn("no admin account exists; set CPF_BOOTSTRAP_ADMIN_EMAIL and CPF_BOOTSTRAP_ADMIN_PASSWORD")
		}
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.ChamberService = app.chamberService
	router.ResetService = app.resetService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
