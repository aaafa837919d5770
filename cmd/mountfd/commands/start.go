package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/mountfd/internal/logger"
	"github.com/marmos91/mountfd/pkg/config"
	"github.com/marmos91/mountfd/pkg/controlplane/api"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/fstype"
	"github.com/marmos91/mountfd/pkg/fstype/memfs"
	"github.com/marmos91/mountfd/pkg/metrics"
	metricsprom "github.com/marmos91/mountfd/pkg/metrics/prometheus"
	"github.com/marmos91/mountfd/pkg/mountapi"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mountfd daemon",
	Long: `Start the mountfd daemon with the specified configuration.

The daemon registers the built-in filesystem drivers, opens the descriptor
table, and serves the control plane REST API. It runs in the foreground
until interrupted; use a process supervisor for background operation.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/mountfd/config.yaml.

Examples:
  # Start with default config location
  mountfd start

  # Start with custom config file
  mountfd start --config /etc/mountfd/config.yaml

  # Start with environment variable overrides
  MOUNTFD_LOGGING_LEVEL=DEBUG mountfd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("mountfd - Mount configuration context daemon")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Initialize metrics FIRST (before creating the subsystem components
	// that register collectors against the global registry)
	var ctxMetrics metrics.ContextMetrics
	var logMetrics metrics.LogMetrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		ctxMetrics = metricsprom.NewContextMetrics()
		logMetrics = metricsprom.NewLogMetrics()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Register the built-in filesystem drivers
	registry := fstype.NewRegistry()
	if err := registry.Register(memfs.New()); err != nil {
		return fmt.Errorf("failed to register memfs driver: %w", err)
	}
	logger.Info("Filesystem drivers registered", "drivers", registry.Names())

	// Descriptor table bounds the number of simultaneously open contexts
	table := fsfd.NewTable(cfg.Context.MaxDescriptors)
	defer table.CloseAll()
	logger.Info("Descriptor table initialized", "max_descriptors", cfg.Context.MaxDescriptors)

	// Wire the subsystem entry points
	mountAPI, err := mountapi.New(mountapi.Options{
		Types:         registry,
		Table:         table,
		Resolver:      mountapi.NewRegistryResolver(registry),
		Instances:     registry,
		Metrics:       ctxMetrics,
		LogMetrics:    logMetrics,
		LogCapacity:   cfg.Context.LogCapacity,
		MaxBinarySize: int(cfg.Context.MaxBinarySize),
		Logger:        logger.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mount API: %w", err)
	}
	logger.Info("Mount context subsystem initialized",
		"log_capacity", cfg.Context.LogCapacity,
		"max_binary_size", cfg.Context.MaxBinarySize)

	// Create the control plane API server
	apiServer, err := api.NewServer(cfg.ControlPlane, registry, table, mountAPI)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	logger.Info("Control plane API configured", "port", cfg.ControlPlane.Port)

	// Start servers in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Hot-reload logging settings when the config file changes
	go func() {
		err := config.Watch(ctx, GetConfigFile(), func(newCfg *config.Config) {
			logger.SetLevel(newCfg.Logging.Level)
			logger.SetFormat(newCfg.Logging.Format)
		})
		if err != nil {
			logger.Warn("Config watcher unavailable", "error", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		done := make(chan error, 1)
		go func() { done <- <-serverDone }()

		select {
		case err := <-done:
			if err != nil {
				logger.Error("Server shutdown error", "error", err)
				return err
			}
		case <-shutdownCtx.Done():
			logger.Error("Graceful shutdown timed out", "timeout", cfg.ShutdownTimeout)
			return fmt.Errorf("shutdown timed out after %s", cfg.ShutdownTimeout)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
