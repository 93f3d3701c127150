/*
main.go - Application entry point

PURPOSE:
  Starts the pharmacy stock ledger server. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (.env, environment, defaults)
  3. Build the logger
  4. Open the snapshot store and restore the ledger
  5. Start the expiry watcher
  6. Configure the HTTP router and start the server

COMMAND-LINE FLAGS (override the environment):
  -env     Env file to load (default: .env if present)
  -port    HTTP server port (HTTP_PORT)
  -store   file | sqlite | memory (STORE_DRIVER)
  -data    Document or database path (STORE_PATH)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the expiry watcher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database connection
  5. Exit

  If the listener fails, steps 1 and 4 still run before the fatal exit.

EXAMPLES:
  # JSON document in ./data.json
  ./server

  # SQLite database
  ./server -store=sqlite -data=./data/ledger.db

  # Nothing persisted
  ./server -store=memory -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - ledger/ledger.go: Open
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/warp/pharma-stock/api"
	"github.com/warp/pharma-stock/config"
	"github.com/warp/pharma-stock/ledger"
	"github.com/warp/pharma-stock/ledger/store"
	"github.com/warp/pharma-stock/logger"
	"github.com/warp/pharma-stock/store/file"
	"github.com/warp/pharma-stock/store/sqlite"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		zlog.Fatal().Err(err).Msg("server exited")
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string) error {
	// Flags
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	envFile := flags.String("env", "", "env file to load")
	port := flags.Int("port", 0, "HTTP server port (overrides HTTP_PORT)")
	driver := flags.String("store", "", "snapshot store: file, sqlite or memory (overrides STORE_DRIVER)")
	dataPath := flags.String("data", "", "document or database path (overrides STORE_PATH)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
		cfg.Store.Path = ""
	}
	if *dataPath != "" {
		cfg.Store.Path = *dataPath
	}
	cfg.Store.Path = cfg.Store.ResolvedPath()

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize store
	snapshots, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	ctx := context.Background()
	l := ledger.Open(ctx, snapshots, ledger.WithLogger(log.Component("ledger")))
	log.Info().
		Str("driver", cfg.Store.Driver).
		Str("path", cfg.Store.Path).
		Int("warehouses", len(l.Warehouses())).
		Int("batches", len(l.Batches(ledger.BatchFilter{}))).
		Msg("ledger ready")

	// Expiry watcher
	watcher := api.NewExpiryWatcher(l, cfg.Expiry.AlertDays, cfg.Expiry.AlertCron, log.Zerolog())
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start expiry watcher: %w", err)
	}
	defer watcher.Stop()

	// Initialize handler and router
	handler := api.NewHandler(l,
		api.WithLogger(log.Component("api")),
		api.WithWatcher(watcher),
		api.WithStoreName(cfg.Store.Driver),
		api.WithExpiryDays(cfg.Expiry.AlertDays),
	)
	router := api.NewRouter(handler, cfg.HTTP.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("shutting down")
	watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

// openStore builds the snapshot store for cfg. The returned func releases it.
func openStore(cfg config.StoreConfig) (ledger.SnapshotStore, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	default:
		return file.New(cfg.Path), func() {}, nil
	}
}
