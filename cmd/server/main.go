// Package main provides the redline HTTP API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamilpajak/redline/internal/api"
	"github.com/kamilpajak/redline/internal/app"
	"github.com/kamilpajak/redline/internal/config"
	"github.com/kamilpajak/redline/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config file (default: redline.yaml)")
		addr       = flag.String("addr", "", "Listen address (overrides server.addr)")
		logFormat  = flag.String("log-format", "json", "Log format (json, text)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	logger := logging.Init(*logFormat, logging.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		fatal("failed to initialize", err)
	}

	server := api.NewServer(api.Config{
		Pipeline:       a.Pipeline,
		Store:          a.Store,
		Reports:        a.Reports,
		Formats:        a.Formats,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	// Analyses with an LLM can take minutes; writes get a generous timeout.
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"templates", a.Catalog.Len(),
			"llm", a.Oracle != nil,
			"storage", cfg.Storage.Backend,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fatal("server shutdown failed", err)
	}

	logger.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
