/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the potion shop engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Configure structured logging
  3. Initialize SQLite store
  4. Bootstrap the shop (idempotent seeding)
  5. Configure HTTP router
  6. Start server with graceful shutdown

ENVIRONMENT:
  SHOP_PORT           HTTP server port (default: 8080)
  SHOP_DB_PATH        SQLite database path (default: shop.db)
                      Use ":memory:" for in-memory database
  SHOP_LOG_LEVEL      zerolog level: debug, info, warn (default: info)
  SHOP_CORS_ORIGINS   Comma-separated allowed origins
  SHOP_TICK_FALLBACK  Run the fallback analytics scheduler (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the tick scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  SHOP_DB_PATH=./data/shop.db ./server

  # Run with in-memory database
  SHOP_DB_PATH=":memory:" ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/warp/shop-engine/api"
	"github.com/warp/shop-engine/store/sqlite"
)

// Config is the server configuration, read from SHOP_* env vars.
type Config struct {
	Port         int      `default:"8080"`
	DBPath       string   `default:"shop.db" split_words:"true"`
	LogLevel     string   `default:"info" split_words:"true"`
	CORSOrigins  []string `default:"http://localhost:5173,http://localhost:8080" envconfig:"CORS_ORIGINS"`
	TickFallback bool     `default:"true" split_words:"true"`
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("shop", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler and seed the shop
	handler := api.NewHandler(store, log)
	if err := handler.Service.Bootstrap(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap shop")
	}

	// Fallback analytics ticks, for deployments without a game clock
	scheduler := api.NewTickScheduler(store, log)
	scheduler.Enabled = cfg.TickFallback
	scheduler.Start()
	defer scheduler.Stop()

	// Create router and server
	router := api.NewRouter(handler, cfg.CORSOrigins)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
