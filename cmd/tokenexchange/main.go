package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/efreitasn/tokenexchange/internal/config"
	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/engine"
	"github.com/efreitasn/tokenexchange/internal/feed"
	"github.com/efreitasn/tokenexchange/internal/handler"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/efreitasn/tokenexchange/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before the environment is read")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	assets, err := config.LoadAssets(cfg.AssetsFile)
	if err != nil {
		logger.Error("failed to load assets", slog.String("error", err.Error()))
		os.Exit(1)
	}
	catalog := domain.NewAssetCatalog(assets...)

	// Instantiate stores.
	ledger := store.NewLedger()
	whitelist := store.NewWhitelist(domain.AccountID(cfg.AdminAccount))
	tradeStore := store.NewTradeStore()
	webhookStore := store.NewWebhookStore()

	var journal *store.Journal
	if cfg.JournalPath != "" {
		journal, err = store.OpenJournal(cfg.JournalPath, nil)
		if err != nil {
			logger.Error("failed to open journal", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer journal.Close()
		logger.Info("journal opened",
			slog.String("path", cfg.JournalPath),
			slog.Uint64("last_seq", journal.LastSeq()),
		)
	}

	// Engine.
	matcher := engine.NewMatcher(ledger, whitelist)

	// Services (webhook first, the publisher dispatches through it).
	hub := feed.NewHub[service.Event]()
	webhookSvc := service.NewWebhookService(webhookStore, ledger, whitelist, cfg.WebhookTimeout, logger)
	publisher := service.NewPublisher(journal, hub, webhookSvc, logger)
	exchangeSvc := service.NewExchangeService(matcher, catalog, whitelist, tradeStore, publisher, logger)
	accountSvc := service.NewAccountService(ledger, whitelist, catalog, logger)
	marketSvc := service.NewMarketService(matcher, catalog, tradeStore, cfg.VWAPWindow)

	// Router.
	router := handler.NewRouter(exchangeSvc, accountSvc, marketSvc, webhookSvc, publisher, hub, handler.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.Int("assets", len(assets)),
			slog.String("admin", cfg.AdminAccount),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop accepting requests, then let deferred closes
	// flush the journal.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped", slog.Uint64("stream_drops", hub.Dropped()))
}

// newLogger builds the JSON logger at the configured level, writing to a
// rotating file when LOG_FILE is set.
func newLogger(cfg *config.Config) *slog.Logger {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename: cfg.LogFile,
			MaxSize:  cfg.LogMaxSizeMB,
			Compress: true,
		}
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
