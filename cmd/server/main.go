/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the teller engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env if present, parse command-line flags
  2. Initialize the SQLite store
  3. Create the API handler with its dependencies
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION:
  Flags, with environment fallbacks (a local .env is read first):
  -port         HTTP server port        (PORT, default 8080)
  -db           SQLite database path    (DB_PATH, default teller.db;
                use ":memory:" for an in-memory database)
  -session-ttl  Session lifetime        (SESSION_TTL, default 15m)
  -admin-token  Admin API token         (ADMIN_TOKEN, empty disables
                the admin auth check)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bancocpm/teller-engine/api"
	"github.com/bancocpm/teller-engine/store/sqlite"
)

func main() {
	// Best-effort: a missing .env means defaults or real env.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "teller.db"), "SQLite database path")
	sessionTTL := flag.Duration("session-ttl", envDuration("SESSION_TTL", api.DefaultSessionTTL), "terminal session lifetime")
	adminToken := flag.String("admin-token", os.Getenv("ADMIN_TOKEN"), "admin API token (empty disables the check)")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	handler.Sessions = api.NewSessionStore(*sessionTTL)
	handler.AdminToken = *adminToken

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", *port), zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
