// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "print-bridge/docs"
	"print-bridge/internal/agent"
	"print-bridge/internal/config"
	"print-bridge/internal/database"
	"print-bridge/internal/handler"
	"print-bridge/internal/imaging"
	"print-bridge/internal/preferences"
	"print-bridge/internal/printing"
	"print-bridge/internal/receipt"
	"print-bridge/internal/repository"
	"print-bridge/internal/routes"
	"print-bridge/internal/service"
	"print-bridge/internal/utils"
)

// Application represents the bridge process
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	eventBus    *handler.EventBus
	preferences *preferences.Store
	agentClient *agent.Client
	journal     repository.PrintJobRepository

	session  *service.PrinterSession
	receipts *service.ReceiptService
}

// @title Print Bridge API
// @version 1.0
// @description Receipt rendering and printing through the local print agent.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication loads configuration and wires every component
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "print-bridge")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.App)

	app := &Application{
		config:   cfg,
		logger:   logger,
		eventBus: handler.NewEventBus(logger),
	}

	if err := app.initializeJournal(); err != nil {
		return nil, fmt.Errorf("failed to initialize print journal: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeJournal opens postgres when enabled and falls back to memory
func (app *Application) initializeJournal() error {
	limit := app.config.Database.JournalLimit

	if !app.config.Database.Enabled {
		journal, err := repository.NewMemoryJournal(limit, app.logger)
		if err != nil {
			return err
		}
		app.journal = journal
		app.logger.Info("Print journal kept in memory", zap.Int("limit", limit))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	if app.config.Database.MigrateOnStart {
		if err := database.NewMigrator(db, app.logger).Up(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	app.journal = repository.NewPrintJobRepository(db, limit, app.logger)
	app.logger.Info("Print journal stored in postgres", zap.Int("limit", limit))
	return nil
}

func (app *Application) initializeServices() error {
	store, err := preferences.NewStore(app.config.Preferences.Path, preferences.Preferences{
		AutoConnect:   false,
		AgentEndpoint: app.config.GetAgentURL(),
	}, app.logger)
	if err != nil {
		return err
	}
	app.preferences = store

	endpoint := store.Get().AgentEndpoint
	if endpoint == "" {
		endpoint = app.config.GetAgentURL()
	}
	app.agentClient = agent.NewClient(endpoint, app.logger,
		agent.WithDialTimeout(app.config.Agent.DialTimeout),
		agent.WithRequestTimeout(app.config.Agent.RequestTimeout),
	)

	converter := imaging.NewConverter(nil, app.config.Imaging.FetchTimeout, app.config.Imaging.MaxBytes, app.logger)
	logos, err := imaging.NewCache(app.config.Imaging.CacheSize, converter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create logo cache: %w", err)
	}

	renderer := receipt.NewRenderer(logos, app.logger)
	printer := printing.NewService(app.agentClient, renderer, app.journal, app.logger)

	app.session = service.NewPrinterSession(app.agentClient, store, app.eventBus, app.config.Agent.IgnoreUnknown, app.logger)
	app.receipts = service.NewReceiptService(renderer, printer, app.config.Printer, app.eventBus, app.logger)

	app.logger.Info("Services initialized successfully", zap.String("agent_url", endpoint))
	return nil
}

func (app *Application) initializeServer() {
	var db handler.HealthChecker
	if app.database != nil {
		db = app.database
	}

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.session,
		app.receipts,
		app.journal,
		db,
		app.eventBus,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// Start serves HTTP, performs the start-up auto-connect and blocks until a
// shutdown signal arrives
func (app *Application) Start() error {
	go app.eventBus.Start()

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(app.config.Server.TLS.CertFile, app.config.Server.TLS.KeyFile)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	go func() {
		if err := app.session.Start(context.Background()); err != nil {
			app.logger.Warn("Print agent not reachable at start-up", zap.Error(err))
		}
	}()

	app.waitForShutdown()
	return nil
}

func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "print-bridge")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.agentClient.Close(); err != nil {
		app.logger.Error("Agent client close error", zap.Error(err))
	}
	app.eventBus.Stop()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := app.logger.Sync(); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
