/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cashback ledger server: configuration,
  storage, ledger engine, chat router, HTTP surface, graceful shutdown.

STARTUP SEQUENCE:
  1. Parse flags, load config (YAML file + env overrides)
  2. Initialize SQLite store
  3. Construct ledger engine and chat command router
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional YAML config file path
  -db      SQLite database path (overrides config; ":memory:" works)
  -port    HTTP server port (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with a config file
  ./server -config=./cashback.yaml

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Recognized settings and env overrides
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/homequeen/cashback-ledger/api"
	"github.com/homequeen/cashback-ledger/bot"
	"github.com/homequeen/cashback-ledger/config"
	"github.com/homequeen/cashback-ledger/ledger"
	"github.com/homequeen/cashback-ledger/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file path")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if cfg.AdminID == 0 {
		log.Warn().Msg("ADMIN_IDENTITY not set; admin commands are disabled")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Engine, chat surface, HTTP surface
	engine := ledger.NewEngine(store, ledger.EngineConfig{
		AdminID:        ledger.ClientID(cfg.AdminID),
		CashbackRate:   cfg.CashbackRateDecimal(),
		MaxRedeemRatio: cfg.MaxRedeemRatioDecimal(),
	}, log)
	router := bot.NewRouter(engine, log)
	handler := api.NewHandler(engine, router, store, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("db", cfg.DBPath).
			Float64("cashback_rate", cfg.CashbackRate).
			Float64("max_redeem_ratio", cfg.MaxRedeemRatio).
			Msg("cashback ledger started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
