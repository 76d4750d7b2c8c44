package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/psmarinho/paperarena/internal/config"
	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/engine"
	"github.com/psmarinho/paperarena/internal/handler"
	"github.com/psmarinho/paperarena/internal/service"
	"github.com/psmarinho/paperarena/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
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
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Domain.
	registry, err := domain.NewRegistry(domain.DefaultCatalog())
	if err != nil {
		logger.Error("failed to build instrument registry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Webhook chain (notifier is wired into the simulator).
	webhookStore := store.NewWebhookStore()
	webhookSvc := service.NewWebhookService(webhookStore, cfg.WebhookTimeout)

	// Engine.
	sim, err := engine.New(engine.Params{
		Registry:          registry,
		InitialBalance:    cfg.InitialBalance,
		ClearingFeePerLot: cfg.ClearingFeePerLot,
		CommissionRate:    cfg.CommissionRate,
		CandleWindow:      cfg.CandleWindow,
		VolatilityScale:   cfg.VolatilityScale,
		TickInterval:      cfg.TickInterval,
		CyclesPerBar:      cfg.CyclesPerBar(),
		Notifier:          webhookSvc,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to build simulator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Services.
	tradeSvc := service.NewTradeService(sim, registry, cfg.LotStep)
	marketSvc := service.NewMarketService(sim, registry)

	// Router.
	router := handler.NewRouter(tradeSvc, marketSvc, webhookSvc, cfg.StreamInterval, logger)

	// Start the simulation goroutine with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sim.Start(ctx)

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
		logger.Info("server starting", slog.String("addr", addr))
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

	// Graceful shutdown: stop HTTP server, cancel context (stops the simulator).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
