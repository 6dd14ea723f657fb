package main

import (
	"fmt"
	"io"
	"os"

	"github.com/noo-bita/propinv/internal/backend"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/dashboard"
	"github.com/noo-bita/propinv/internal/storage"
	"github.com/noo-bita/propinv/internal/storage/bolt"
	"github.com/noo-bita/propinv/internal/storage/redis"
	"github.com/rs/zerolog"
)

// setupLogger configures zerolog from the logging section. Output goes to w
// so the one-shot commands can keep stdout for their own rendering.
func setupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "bolt", "":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// newDashboard wires the backend client and snapshot store into a
// dashboard service. The returned store must be closed by the caller.
func newDashboard(cfg *config.Config, logger zerolog.Logger) (*dashboard.Service, storage.Store, error) {
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	client := backend.New(cfg.Backend, logger)
	service := dashboard.NewService(client, store, nil, dashboard.Config{
		Placeholder: cfg.Dashboard.PlaceholderData,
		DateFields:  cfg.Dashboard.DateFields,
		Location:    loc,
		CacheSize:   cfg.Dashboard.CacheSize,
		CacheTTL:    config.ParseDuration(cfg.Dashboard.CacheTTL, dashboard.DefaultCacheTTL),
	}, logger)

	return service, store, nil
}

// loadCommandConfig loads configuration for the one-shot commands, which
// log to stderr.
func loadCommandConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging, os.Stderr), nil
}
