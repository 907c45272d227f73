/*
main.go - Application entry point

PURPOSE:
  Starts the cleaning operations API server. Loads configuration, picks
  the document store, wires authentication and serves until interrupted.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flags
  2. Build the zap logger
  3. Open the document store (memory, sqlite or postgres; SQL stores
     migrate on open)
  4. Pick the revocation list (Redis when REDIS_ADDR is set, else memory
     with a background sweeper)
  5. Create the API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port, overrides PORT
  -db      SQLite database path, overrides SQLITE_PATH
           Use ":memory:" for a throwaway database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper or close the Redis client, close the store
  4. Exit

EXAMPLES:
  JWT_SECRET=dev ./server -db="./data/ops.db"
  JWT_SECRET=dev STORE_DRIVER=memory ENABLE_SEED=true ./server -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - cmd/token: Issue a token for local testing
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
	"syscall"
	"time"

	"github.com/alexisbanda/operations-management-system/api"
	"github.com/alexisbanda/operations-management-system/auth"
	"github.com/alexisbanda/operations-management-system/config"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/alexisbanda/operations-management-system/logger"
	"github.com/alexisbanda/operations-management-system/store/postgres"
	"github.com/alexisbanda/operations-management-system/store/sqlite"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SQLITE_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("store ready", zap.String("driver", string(cfg.Store.Driver)))

	revoker, closeRevoker, err := openRevoker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRevoker()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, revoker)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Store:           store,
		Verifier:        verifier,
		Terminator:      revoker,
		Logger:          log,
		Location:        cfg.Server.Location,
		MaxSeriesLength: cfg.MaxSeriesLength,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		EnableSeed:  cfg.Server.EnableSeed,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("timezone", cfg.Server.Location.String()),
			zap.Bool("seed_enabled", cfg.Server.EnableSeed))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return docstore.NewMemory(), nil
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openRevoker shares terminations through Redis when configured so that
// every instance rejects a terminated session. The in-memory list is
// pruned in the background instead.
func openRevoker(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.Revoker, func(), error) {
	if cfg.Redis.Addr == "" {
		revoker := auth.NewMemoryRevoker()
		sweeper := auth.NewSweeper(revoker, cfg.Auth.TokenTTL, log)
		sweeper.Start()
		return revoker, sweeper.Stop, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return auth.NewRedisRevoker(client, cfg.Auth.TokenTTL), func() { client.Close() }, nil
}
