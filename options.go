package heartbeat

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/heartbeat/internal/store"
)

// hbConfig holds mutable state during Heartbeat construction.
type hbConfig struct {
	title           string
	port            int
	logger          *slog.Logger
	backend         store.Backend
	defaultStatus   string
	defaultExpiry   time.Duration
	registry        *prometheus.Registry
	reportCallbacks []func(Report)
}

// Option is a function that configures a [Heartbeat] instance during construction.
//
// Options return an error if validation fails.
type Option func(*hbConfig) error

// WithPort sets the HTTP port. Defaults to 5000.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *hbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Heartbeat instance.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithBackend sets where statuses are persisted. Backends are usually built
// from configuration with config.BuildBackend.
//
// Returns an error if the backend is nil.
func WithBackend(b store.Backend) Option {
	return func(cfg *hbConfig) error {
		if b == nil {
			return errors.New("backend cannot be nil")
		}
		cfg.backend = b
		return nil
	}
}

// WithDefaultStatus sets the status recorded for a first report that
// supplies none. Defaults to "online".
//
// Returns an error if the status is blank.
func WithDefaultStatus(s string) Option {
	return func(cfg *hbConfig) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("default status cannot be blank")
		}
		cfg.defaultStatus = s
		return nil
	}
}

// WithDefaultExpiry sets the expiry recorded for a first report that
// supplies none. Defaults to 5 minutes.
//
// Returns an error if the duration is negative.
func WithDefaultExpiry(d time.Duration) Option {
	return func(cfg *hbConfig) error {
		if d < 0 {
			return errors.New("default expiry cannot be negative")
		}
		cfg.defaultExpiry = d
		return nil
	}
}

// WithRegistry sets the Prometheus registry that heartbeat metrics are
// registered with and that /metrics serves.
//
// Returns an error if the registry is nil.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *hbConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithReportCallback registers a function called for every accepted report.
//
// Callbacks run sequentially on a single goroutine, in registration order,
// after the report has been persisted. They must not block: a callback
// goroutine more than 100 reports behind misses later reports. Panics are
// recovered and logged.
//
// Nil callbacks are silently ignored.
func WithReportCallback(cb func(Report)) Option {
	return func(cfg *hbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.reportCallbacks = append(cfg.reportCallbacks, cb)
		return nil
	}
}

// WithTitle sets the status page title shown at /dashboard.
// If not specified, defaults to "Heartbeat".
func WithTitle(title string) Option {
	return func(cfg *hbConfig) error {
		cfg.title = title
		return nil
	}
}
