package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"procinfo/collector"
	"procinfo/config"
	"procinfo/query"
	"procinfo/server"
)

// Build info
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := buildLogger(cfg)
	logger.Info(fmt.Sprintf("procinfo %s (%s) built on %s", version, commit, date))
	logger.Info(fmt.Sprintf("Listen: %s", cfg.ListenAddr))
	logger.Info(fmt.Sprintf("Settle: %v (max %v)", cfg.DefaultSettle, cfg.MaxSettle))

	collector.DetectCapabilities(logger)

	if cfg.SchemaPath != "" {
		if err := server.WriteSchema(cfg.SchemaPath); err != nil {
			logger.Warn("schema not written", "error", err)
		} else {
			logger.Info("schema written", "path", cfg.SchemaPath)
		}
	}

	engine := query.NewEngine(collector.NewHostProviderFactory(logger), cfg.DefaultSettle, cfg.MaxSettle, logger)
	srv, err := server.New(cfg, engine, logger, version)
	if err != nil {
		logger.Error("server initialization failed", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Info("Shutting down...", "signal", sig.String())
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
