package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jpalmerr/heartbeat/dashboard"
	"github.com/jpalmerr/heartbeat/internal/server"
	"github.com/jpalmerr/heartbeat/internal/service"
	"github.com/jpalmerr/heartbeat/internal/status"
	"github.com/jpalmerr/heartbeat/internal/store"
)

const defaultPort = 5000

// Heartbeat is the server-side orchestrator: it loads the persisted statuses,
// serves the report and check endpoints, and releases the storage backend on
// shutdown.
//
// The typical lifecycle is:
//
//	hb, err := heartbeat.New(heartbeat.WithPort(5000))
//	if err != nil {
//	    slog.Error("failed to create heartbeat", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	hb.Start(ctx) // blocks until context cancelled
type Heartbeat struct {
	title           string
	port            int
	logger          *slog.Logger
	backend         store.Backend
	defaultStatus   string
	defaultExpiry   time.Duration
	registry        *prometheus.Registry
	reportCallbacks []func(Report)
	started         atomic.Bool
}

// New creates a new [Heartbeat] instance with the given options.
//
// Defaults:
//   - Port: 5000
//   - Backend: a JSON file named heartbeat_data_store.json in the working directory
//   - Default status: "online"
//   - Default expiry: 5 minutes
//   - Registry: a fresh registry with Go and process collectors
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Heartbeat, error) {
	cfg := &hbConfig{
		port:          defaultPort,
		defaultStatus: status.DefaultStatus,
		defaultExpiry: status.DefaultExpiry,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.backend
	if backend == nil {
		backend = store.NewFileBackend(store.DefaultSnapshotFile)
	}

	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Heartbeat{
		title:           cfg.title,
		port:            cfg.port,
		logger:          logger,
		backend:         backend,
		defaultStatus:   cfg.defaultStatus,
		defaultExpiry:   cfg.defaultExpiry,
		registry:        registry,
		reportCallbacks: cfg.reportCallbacks,
	}, nil
}

// Start loads persisted statuses and serves HTTP until ctx is cancelled.
//
// Start is a blocking call. A snapshot that exists but cannot be decoded is
// returned as an error wrapping [ErrCorruptSnapshot] and nothing is served,
// so a damaged file is never silently overwritten. The backend is closed
// when Start returns.
//
// Start may be called only once per Heartbeat.
//
// Returns nil on graceful shutdown.
func (hb *Heartbeat) Start(ctx context.Context) error {
	if !hb.started.CompareAndSwap(false, true) {
		return errors.New("heartbeat already started")
	}

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	st, err := store.NewPersistentStore(ctx, hb.backend, hb.logger)
	if err != nil {
		return fmt.Errorf("failed to load statuses: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			hb.logger.Warn("failed to close storage backend", "error", err)
		}
	}()

	metrics := service.NewMetrics(hb.registry)
	service.RegisterApplicationsGauge(hb.registry, func() int {
		return len(st.ListApplications())
	})

	svc := service.New(st,
		service.WithLogger(hb.logger),
		service.WithDefaults(hb.defaultStatus, hb.defaultExpiry),
		service.WithMetrics(metrics),
	)

	// forward accepted reports to callbacks from a single goroutine
	var wg sync.WaitGroup
	var updates <-chan status.AppStatus
	if len(hb.reportCallbacks) > 0 {
		updates = svc.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range updates {
				report := toReport(s)
				for _, cb := range hb.reportCallbacks {
					invokeCallbackSafe(cb, report, hb.logger)
				}
			}
		}()
	}

	cleanup := func() {
		if updates != nil {
			svc.Unsubscribe(updates) // closes the channel
			wg.Wait()
		}
	}

	hb.logger.Info("heartbeat starting",
		"applications", len(st.ListApplications()),
		"default_status", hb.defaultStatus,
		"default_expiry", status.FormatExpiry(hb.defaultExpiry),
	)

	httpServer := server.NewServer(svc, hb.port, hb.registry, dashboard.Assets, hb.title, hb.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	hb.logger.Info("listening",
		"url", fmt.Sprintf("http://localhost:%d", hb.port),
		"dashboard", fmt.Sprintf("http://localhost:%d/dashboard", hb.port),
	)

	<-ctx.Done()
	cleanup()
	hb.logger.Info("heartbeat stopped")
	return nil
}

// Port returns the configured HTTP port.
func (hb *Heartbeat) Port() int {
	return hb.port
}

// Registry returns the Prometheus registry served on /metrics.
func (hb *Heartbeat) Registry() *prometheus.Registry {
	return hb.registry
}

// invokeCallbackSafe calls a report callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Report), report Report, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("report callback panicked",
				"panic", r,
				"app", report.AppName,
			)
		}
	}()
	cb(report)
}
