package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/heartbeat"
	"github.com/jpalmerr/heartbeat/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the heartbeat server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the heartbeat server",
	Long: `Start the heartbeat server.

The server will:
  - Load configuration from the given YAML file (or use the defaults)
  - Restore persisted statuses from the configured storage
  - Accept reports on /update/{app} and answer /check/{app}

A snapshot that exists but cannot be read stops startup, so it is never
overwritten. The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  heartbeat serve
  heartbeat serve -c /etc/heartbeat/config.yaml
  heartbeat serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (defaults apply when omitted)")
	serveCmd.Flags().IntP("port", "p", 0, "override the configured port")
}

// loadConfig reads the config file named by the --config flag, or returns
// the defaults when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, level)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("config loaded",
		"port", cfg.Port,
		"storage", cfg.Storage.Describe(),
		"default_status", cfg.Defaults.Status,
		"default_expiry", cfg.Defaults.Expiry.String(),
	)

	backend, err := config.BuildBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect storage: %w", err)
	}

	hb, err := heartbeat.New(
		heartbeat.WithPort(cfg.Port),
		heartbeat.WithLogger(logger),
		heartbeat.WithBackend(backend),
		heartbeat.WithDefaultStatus(cfg.Defaults.Status),
		heartbeat.WithDefaultExpiry(cfg.Defaults.Expiry.Duration()),
		heartbeat.WithTitle(cfg.Title),
	)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat: %w", err)
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- hb.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
