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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/discovery"
	"rfid-bridge/internal/discovery/usb"
	"rfid-bridge/internal/handler"
	"rfid-bridge/internal/protocol"
	"rfid-bridge/internal/routes"
	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// startupResolveTimeout bounds the first attempt to find the reader
const startupResolveTimeout = 15 * time.Second

// Application represents the main application
type Application struct {
	config        *config.Config
	logger        *zap.Logger
	serviceLogger *utils.ServiceLogger
	server        *http.Server

	// Device access
	bridges  *usb.BridgeDatabase
	resolver *discovery.Resolver

	// Services
	eventBus           *handler.EventBus
	transactionService *service.TransactionService
	discoveryService   *service.DiscoveryService
	wsHandler          *handler.WebSocketHandler

	cancel context.CancelFunc
}

// @title RFID Bridge API
// @version 1.0.0
// @description Command/response transactions with an RFID reader attached through a CP2102 USB to UART bridge

// @contact.name RFID Bridge API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCommand builds the server command line
func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rfid-bridge",
		Short: "Serve RFID reader transactions over HTTP and WebSocket",
		Long: `rfid-bridge finds the RFID reader behind its USB to UART bridge, keeps the
serial link open and exposes command/response transactions over a REST API.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApplication(configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Start()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RFID_BRIDGE_CONFIG"), "config file (default searches ., ./config and /etc/rfid-bridge)")
	return cmd
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "rfid-bridge")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config:        cfg,
		logger:        logger,
		serviceLogger: serviceLogger,
	}

	if err := app.initializeDevice(); err != nil {
		return nil, fmt.Errorf("failed to initialize device access: %w", err)
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeDevice builds the resolver that finds and opens the reader
func (app *Application) initializeDevice() error {
	linkConfig, err := app.config.Device.LinkConfig()
	if err != nil {
		return err
	}

	opener, err := protocol.OpenerFor(app.config.Device.Driver)
	if err != nil {
		return err
	}

	app.bridges = usb.NewBridgeDatabase()
	app.resolver = discovery.NewResolver(
		discovery.NewPortEnumerator(app.bridges, app.logger),
		opener,
		discovery.ResolverOptions{
			Config:        linkConfig,
			RequireUnique: app.config.Device.RequireUnique,
		},
		app.logger,
	)

	app.logger.Info("Device access initialized",
		zap.String("name_filter", app.config.Device.NameFilter),
		zap.String("driver", app.config.Device.Driver),
		zap.Int("baud_rate", linkConfig.BaudRate),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	app.eventBus = handler.NewEventBus(app.logger)

	app.transactionService = service.NewTransactionService(
		app.resolver,
		app.eventBus,
		service.TransactionOptions{
			NameFilter:     app.config.Device.NameFilter,
			ReadBufferSize: app.config.Device.ReadBufferSize,
			AppendCRC:      app.config.Device.Frame.AppendCRC,
		},
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(
		app.resolver,
		usb.NewScanner(app.bridges, app.logger),
		app.config.Device.NameFilter,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	app.wsHandler = handler.NewWebSocketHandler(
		app.transactionService,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.transactionService,
		app.discoveryService,
		app.eventBus,
		app.wsHandler,
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

// startBackgroundServices starts the event pipeline and the first reader lookup
func (app *Application) startBackgroundServices(ctx context.Context) {
	go app.eventBus.Start(ctx)
	go app.wsHandler.Run(ctx)
	go app.connectReader(ctx)

	app.logger.Info("Background services started")
}

// connectReader makes the initial attempt to open the reader.
// Failure leaves the service running but not ready; POST /api/v1/link/reconnect retries.
func (app *Application) connectReader(ctx context.Context) {
	resolveCtx, cancel := context.WithTimeout(ctx, startupResolveTimeout)
	defer cancel()

	if err := app.transactionService.Reconnect(resolveCtx); err != nil {
		app.logger.Warn("Reader not available at startup", zap.Error(err))
		return
	}

	info := app.transactionService.LinkInfo()
	if info.Device != nil {
		app.logger.Info("Reader connected",
			zap.String("port", info.Device.ID),
			zap.String("display_name", info.Device.DisplayName),
		)
	}
}

// Start starts the application
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.startBackgroundServices(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
			zap.String("environment", app.config.App.Environment),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(app.config.Server.TLS.CertFile, app.config.Server.TLS.KeyFile)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	return app.waitForShutdown(serverErrors)
}

// waitForShutdown blocks until a signal arrives or the server fails
func (app *Application) waitForShutdown(serverErrors <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.shutdown("server error")
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		app.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		app.shutdown(sig.String())
		return nil
	}
}

// shutdown stops the server first so no transaction starts after the link is closed
func (app *Application) shutdown(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := app.transactionService.Close(); err != nil {
		app.logger.Error("Failed to close reader link", zap.Error(err))
	}

	if app.cancel != nil {
		app.cancel()
	}

	app.serviceLogger.LogServiceStop(reason)
	utils.CloseLogger(app.logger)
}
