// Package heartbeat provides a small liveness tracker: applications report
// heartbeats over HTTP, and anyone can ask whether an application is alive.
//
// An application is alive while its latest report is not the reserved
// status "offline" and its expiry period has not elapsed. Reports arriving
// out of order never replace newer ones. Statuses are persisted to a
// pluggable backend (JSON file, Redis, S3-compatible object storage or
// Postgres) and restored on restart.
//
// # Server
//
// Run the server with graceful shutdown:
//
//	hb, _ := heartbeat.New(heartbeat.WithPort(5000))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	hb.Start(ctx) // blocks until context is cancelled
//
// The server exposes:
//
//   - GET /update/{app}: bare heartbeat
//   - POST /update/{app}: heartbeat with optional {"status", "expiry"} JSON
//   - GET /check/{app}: 200 alive, 503 offline or expired, 404 never reported
//   - GET /: names of watched applications
//   - GET /api/status and GET /api/sse: JSON and live event stream
//   - GET /dashboard: status page
//   - GET /metrics: Prometheus metrics
//
// # Client
//
// Applications report with a [Client]:
//
//	c, _ := heartbeat.NewClient(heartbeat.WithServerURL("http://heartbeat:5000"))
//	_ = c.Initialise(ctx, "billing-worker", 2*time.Minute)
//	go c.Run(ctx, "billing-worker", time.Minute)
//
//	// on planned shutdown
//	c.Update(ctx, "billing-worker", heartbeat.WithStatus(heartbeat.Offline))
//
// Reporting never fails the caller: errors are logged and dropped.
//
// # Architecture
//
// The internal packages are not part of the public API:
//
//   - internal/status: the immutable AppStatus value and ISO-8601 helpers
//   - internal/store: last-write-wins status stores and storage backends
//   - internal/service: report and check rules, defaults, metrics
//   - internal/server: HTTP routes, SSE and middleware
//   - dashboard: embedded status page
//   - config: YAML configuration for the heartbeat binary
package heartbeat
