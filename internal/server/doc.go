// Package server provides the HTTP transport for heartbeat.
//
// This package is internal to heartbeat and translates HTTP requests into
// calls on service.Service:
//
//   - GET /: Plain-text list of watched applications
//   - GET|POST /update/{app}: Record a heartbeat (POST may carry status/expiry)
//   - GET /check/{app}: 200 with a description, 404, or 503 with a reason
//   - GET /api/status: JSON snapshot of every application
//   - GET /api/sse: Server-Sent Events stream of accepted reports
//   - GET /dashboard: Embedded status page
//   - GET /metrics: Prometheus metrics
//
// Every response carries an X-Request-ID header, and cross-origin GET and
// POST requests are allowed so browser tools can read the API.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
