package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NickRomanek/SasWatch-sub002/internal/api"
	"github.com/NickRomanek/SasWatch-sub002/internal/config"
	"github.com/NickRomanek/SasWatch-sub002/internal/db"
	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
	"github.com/NickRomanek/SasWatch-sub002/internal/store"
	"github.com/NickRomanek/SasWatch-sub002/internal/sync"
	"github.com/NickRomanek/SasWatch-sub002/internal/sync/coordinator"
	"github.com/NickRomanek/SasWatch-sub002/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sign-in sync server",
	Long: `Start the sign-in sync server.

The server requires a configuration file (--config) that specifies:
- Database connection parameters
- Directory service base URL and credentials
- Sync engine defaults (freshness, backfill window, page bounds)

Secrets may be supplied via SASWATCH_DB_PASSWORD and
SASWATCH_DIRECTORY_TOKEN instead of the config file.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath := viper.GetString("config")
	cfg, err := config.NewLoader().Load(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"directory", cfg.Directory.BaseURL,
		"address", cfg.Server.Address)

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	provider, err := telemetry.NewProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewSyncMetrics(provider.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	signInStore, err := store.NewDBSignInStore(pool)
	if err != nil {
		return fmt.Errorf("failed to create sign-in store: %w", err)
	}
	client := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.GetToken(), cfg.Directory.Timeout.Std())
	tracker := status.NewTracker(status.WithRetention(cfg.Sync.StatusRetention.Std()))

	manager := sync.NewManager(client, signInStore, tracker,
		sync.WithDefaults(sync.Defaults{
			BackfillWindow: cfg.Sync.BackfillWindow.Std(),
			MaxPages:       cfg.Sync.MaxPages,
			PageSize:       cfg.Sync.PageSize,
		}),
		sync.WithFreshness(cfg.Sync.Freshness.Std()),
		sync.WithSyncMetrics(metrics),
	)

	// Background lifecycle: status sweeper and sync coordinator run until
	// shutdown.
	backgroundCtx, backgroundCancel := context.WithCancel(ctx)
	defer backgroundCancel()

	go tracker.RunSweeper(backgroundCtx, status.DefaultSweepInterval)

	syncCoordinator := coordinator.New(manager, signInStore,
		coordinator.WithInterval(cfg.Sync.Interval.Std()),
	)
	go func() {
		if err := syncCoordinator.Start(backgroundCtx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	router := api.NewServer(manager, tracker, signInStore,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			api.LoggingMiddleware,
		),
		api.WithMetricsHandler(provider.Handler()),
		api.WithReadinessCheck(pool.Ping),
		api.WithSyncDeadline(cfg.Sync.Deadline.Std()),
	)

	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: serverReadTimeout,
		IdleTimeout: serverIdleTimeout,
		// No WriteTimeout: attended sync requests may legitimately hold
		// the connection up to the configured sync deadline.
	}

	go func() {
		slog.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	if err := syncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}
	backgroundCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
