// Package main is the entry point for the WhatsApp dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/cache"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/config"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/dispatch"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/health"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/query"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/whatsapp"
	"github.com/ihiteshgupta/whatsapp-dashboard/pkg/api"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath = flag.String("config", "config.yaml", "Path to config file")
	envPath    = flag.String("env", ".env", "Path to .env file")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	// A missing .env is fine
	_ = godotenv.Load(*envPath)

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override log level from flag if provided
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)

	logger.Info("WhatsApp dashboard starting",
		"config", *configPath,
		"http_addr", cfg.HTTPAddr,
		"store_driver", cfg.StoreDriver,
		"log_level", cfg.LogLevel,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("WhatsApp dashboard failed", "error", err)
		os.Exit(1)
	}

	logger.Info("WhatsApp dashboard stopped")
}

func setupLogging(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	return logger
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	// Optional sent-message cache
	var sentCache cache.MessageCache
	if cfg.RedisAddr != "" {
		rc, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return err
		}
		defer rc.Close()
		sentCache = rc
	}

	// Initialize WhatsApp launcher
	launcher, err := whatsapp.NewLauncher(ctx, &whatsapp.Config{
		StorePath:      cfg.SessionPath,
		ConnectTimeout: cfg.ConnectTimeout,
		PrintQR:        cfg.PrintQR,
		QROut:          os.Stderr,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create WhatsApp launcher: %w", err)
	}
	defer launcher.Close()

	// Initialize state machine, health monitor and bridge
	sm := state.NewMachine()
	hm := health.NewMonitor(cfg, sm)
	hm.Start()
	defer hm.Stop()

	coordinator := bridge.NewBridge(cfg, st, launcher, sm, hm)
	defer coordinator.Stop()

	dispatcher := dispatch.NewDispatcher(st, coordinator).WithHooks(dispatch.Hooks{
		OnSent: func(ctx context.Context, rec *store.MessageRecord) {
			hm.RecordMessageSent()
			if sentCache == nil {
				return
			}
			if err := sentCache.StoreSent(ctx, rec.ID, rec.Phone, time.Now()); err != nil {
				logger.Warn("failed to cache sent message", "id", rec.ID, "error", err)
			}
		},
		OnFailed: func(ctx context.Context, rec *store.MessageRecord) {
			hm.RecordMessageFailed()
		},
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(coordinator, dispatcher, query.NewSurface(st), hm)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start WhatsApp client: %w", err)
	}

	logger.Info("Dashboard initialized",
		"session_path", cfg.SessionPath,
		"state", sm.MustState(),
	)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	return nil
}
