package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JamesPrial/bookstore-api/internal/storage"
	"github.com/JamesPrial/bookstore-api/internal/transport"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/logging"
)

func main() {
	// Parse command-line flags
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.Initialize(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()
	logger := logging.GetGlobalLogger("main")

	// Register the built-in adapters
	registry := storage.NewRegistry()
	if err := storage.RegisterDefaults(registry, cfg); err != nil {
		logger.Error("Failed to register adapters", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer registry.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Resolve the configured backend eagerly so a bad DSN fails at startup,
	// not on the first request
	backend, err := registry.FromConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend",
			slog.String("backend", cfg.DatabaseType),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Storage backend ready", slog.String("backend", backend.Name()))

	server := transport.NewServer(cfg, func(ctx context.Context) (storage.Backend, error) {
		return registry.FromConfig(ctx, cfg)
	})

	if err := server.Start(ctx); err != nil {
		logger.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
