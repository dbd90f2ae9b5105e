package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/openpulse/pulse/internal/adapters/duckdb"
	"github.com/openpulse/pulse/internal/adapters/email"
	"github.com/openpulse/pulse/internal/adapters/providers"
	appconfig "github.com/openpulse/pulse/internal/config"
	"github.com/openpulse/pulse/internal/core/services"
	"github.com/openpulse/pulse/internal/metrics"
	"github.com/openpulse/pulse/pkg/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting pulse server")

	if err := run(logger); err != nil {
		logger.Error("server startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg := appconfig.Load(logger)

	repo, err := duckdb.NewRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}
	defer repo.Close()

	if err := os.MkdirAll(cfg.StaticDir, 0o755); err != nil {
		return fmt.Errorf("failed to create static dir: %w", err)
	}

	recorder := metrics.NewRecorder()

	contentProvider, imageProvider, err := providers.Build(cfg.Providers)
	if err != nil {
		return fmt.Errorf("failed to build providers from config: %w", err)
	}

	var sender services.EmailSender
	emailSender := email.NewSender(logger, email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
	})
	if emailSender.Enabled() {
		sender = emailSender
		logger.Info("email delivery enabled", "to", cfg.SMTP.To)
	}

	// Core services
	notifier := services.NewNotifier(logger, recorder, cfg.MaxNotifications, cfg.NotificationTTLSec)
	pool := services.NewTaskPool(logger, services.PoolConfig{
		MaxConcurrent: cfg.MaxConcurrentTasks,
	})
	executor := services.NewExecutor(logger, recorder, repo, contentProvider, imageProvider, sender, services.ExecutorConfig{
		StaticDir:     cfg.StaticDir,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	watcher := services.NewWatcher(logger, notifier)
	scheduler := services.NewScheduler(logger, repo, executor, watcher, notifier, pool, cfg.SchedulerTick)

	apiServer := server.NewServer(logger, notifier, executor, watcher, pool, repo, recorder, server.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		WatchPollInterval: cfg.WatchPollInterval,
		WatchMaxWait:      cfg.WatchMaxWait,
		StaticDir:         cfg.StaticDir,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Background task pool
	g.Go(func() error {
		return pool.Run(gCtx)
	})

	// 2. Schedule loop
	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	// 3. API server
	g.Go(func() error {
		logger.Info("starting api server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	// 4. Graceful shutdown for the API server
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
