package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/noo-bita/propinv/internal/api"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/dashboard"
	"github.com/noo-bita/propinv/internal/metrics"
	"github.com/noo-bita/propinv/internal/systemd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long:  `Start the dashboard API, the background refresher and the metrics endpoint.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting propinv")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get systemd listeners")
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	service, store, err := newDashboard(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("backend", cfg.Backend.BaseURL).
		Bool("placeholder_data", cfg.Dashboard.PlaceholderData).
		Msg("Dashboard service initialized")

	refresher := dashboard.NewRefresher(service, nil,
		config.ParseDuration(cfg.Dashboard.RefreshInterval, dashboard.DefaultRefreshInterval),
		config.ParseDuration(cfg.Dashboard.SnapshotRetention, dashboard.DefaultSnapshotRetention),
		logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	refresher.Start(ctx)

	apiServer := api.NewServer(api.Config{
		ListenAddr:     net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.APIPort)),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RefreshLimit:   cfg.Server.RefreshLimit,
	}, service, logger)
	if sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}
	if err := apiServer.Start(); err != nil {
		refresher.Stop()
		return fmt.Errorf("failed to start API server: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 || sdListeners.Metrics != nil {
		metricsServer = metrics.NewServer(net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.MetricsPort)), logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	logger.Info().Msg("propinv started successfully")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan

		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, refreshing dashboard data...")
			refresher.RunOnce(ctx)
			continue
		}

		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	refresher.Stop()

	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("propinv stopped")
	return nil
}
