package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/comprehend-desk/comprehend-host/internal/config"
	"github.com/comprehend-desk/comprehend-host/internal/environ"
	"github.com/comprehend-desk/comprehend-host/internal/files"
	"github.com/comprehend-desk/comprehend-host/internal/hub"
	"github.com/comprehend-desk/comprehend-host/internal/job"
	"github.com/comprehend-desk/comprehend-host/internal/logger"
	"github.com/comprehend-desk/comprehend-host/internal/server"
	"github.com/comprehend-desk/comprehend-host/internal/session"
	"github.com/comprehend-desk/comprehend-host/pkg/executor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the settings file")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	store, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := store.Config()

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Comprehend Host")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "Extractor: %s", cfg.Extractor.BinaryPath)
	log.Info(ctx, "Project root: %s", cfg.Paths.ProjectRoot)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialize dependencies
	h := hub.New()
	env := environ.New(cfg.Paths.ProjectRoot, store)
	jobs := job.New(executor.New(), env, h, store, log)
	sessions := session.New(env, h, store, log)
	fs := files.New(h, store, log)

	srv := server.New(ctx, h, jobs, sessions, fs, store, log)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	log.Info(ctx, "Listening on %s", cfg.Server.Addr)
	log.Info(ctx, "Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Server error: %v", err)
	}

	// Graceful shutdown: cleanup failures are logged, never fatal.
	log.Info(ctx, "Shutting down gracefully...")
	fs.Unwatch()
	if err := jobs.Kill(); err != nil && !errors.Is(err, job.ErrNoJob) {
		log.Warn(ctx, "Kill job: %v", err)
	}
	sessions.CloseAll(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "HTTP shutdown: %v", err)
	}
	cancel()

	log.Info(ctx, "Comprehend Host stopped")
}
