package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/heartbeat"
	"github.com/jpalmerr/heartbeat/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	hb, err := heartbeat.New(
		heartbeat.WithPort(5000),
		heartbeat.WithBackend(store.NewMemoryBackend()),
		heartbeat.WithLogger(logger),
		heartbeat.WithTitle("Heartbeat Demo"),
		heartbeat.WithReportCallback(func(r heartbeat.Report) {
			if r.Status == heartbeat.Offline {
				logger.Warn("application went offline", "app", r.AppName)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create heartbeat", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		time.Sleep(200 * time.Millisecond)
		runWorkers(ctx, logger)
	}()

	fmt.Println()
	fmt.Println("  Heartbeat Demo")
	fmt.Println()
	fmt.Println("  Status page:  http://localhost:5000/dashboard")
	fmt.Println("  Check an app: curl -i http://localhost:5000/check/billing")
	fmt.Println()
	fmt.Println("  billing reports every 5s, search stops after 30s and expires,")
	fmt.Println("  mailer reports offline after 20s.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := hb.Start(ctx); err != nil {
		slog.Error("heartbeat error", "error", err)
		os.Exit(1)
	}
}

// runWorkers simulates three monitored applications.
func runWorkers(ctx context.Context, logger *slog.Logger) {
	client, err := heartbeat.NewClient(heartbeat.WithClientLogger(logger))
	if err != nil {
		logger.Error("failed to create client", "error", err)
		return
	}

	for _, app := range []string{"billing", "search", "mailer"} {
		if err := client.Initialise(ctx, app, 15*time.Second); err != nil {
			logger.Error("failed to initialise", "app", app, "error", err)
		}
	}

	go func() {
		_ = client.Run(ctx, "billing", 5*time.Second)
	}()

	go func() {
		searchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		_ = client.Run(searchCtx, "search", 5*time.Second, heartbeat.WithStatus("indexing"))
	}()

	go func() {
		select {
		case <-time.After(20 * time.Second):
			client.Update(ctx, "mailer", heartbeat.WithStatus(heartbeat.Offline))
		case <-ctx.Done():
		}
	}()
}
