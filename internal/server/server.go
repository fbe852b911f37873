package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/heartbeat/internal/service"
	"github.com/jpalmerr/heartbeat/internal/status"
	"github.com/jpalmerr/heartbeat/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Heartbeat"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// maxReportBodySize bounds the JSON body accepted by POST /update/{app}.
	maxReportBodySize = 64 << 10
)

// reportRequest is the optional JSON body of POST /update/{app}.
type reportRequest struct {
	Status *string `json:"status"`
	Expiry *string `json:"expiry"`
}

// statusView is the JSON representation of one application's status.
type statusView struct {
	AppName      string    `json:"app_name"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	ExpiryPeriod string    `json:"expiry_period"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
}

// Server handles HTTP requests for heartbeat reports and checks.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	svc        *service.Service
	port       int
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - svc: Service handling reports and checks
//   - port: TCP port to listen on
//   - gatherer: Source for /metrics (may be nil to disable the route)
//   - assets: Embedded filesystem containing the status page (may be nil)
//   - title: Status page title (defaults to "Heartbeat" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(svc *service.Service, port int, gatherer prometheus.Gatherer, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		svc:      svc,
		port:     port,
		gatherer: gatherer,
		assets:   assets,
		title:    title,
		logger:   logger,
	}
}

// Handler returns the router with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", s.handleList)
	r.Get("/update/{app}", s.handleUpdate)
	r.Post("/update/{app}", s.handleUpdate)
	r.Get("/check/{app}", s.handleCheck)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/sse", s.handleSSE)

	if s.assets != nil {
		r.Get("/dashboard", s.handleDashboard)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the status page.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = io.WriteString(w, rendered); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleList reports which applications are being watched.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Apps being watched: %q", s.svc.List(r.Context()))
}

// handleUpdate records a heartbeat. GET and bodiless POST are bare pings;
// a POST body may supply status and/or an ISO-8601 expiry.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	appName := appParam(r)

	var update service.Update
	if r.Method == http.MethodPost {
		req, err := decodeReport(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		update = service.Update{Status: req.Status, Expiry: req.Expiry}
	}

	err := s.svc.Report(r.Context(), appName, update)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrPersist):
		correlationID := uuid.NewString()
		s.logger.Error("report not persisted",
			"correlation_id", correlationID,
			"app", appName,
			"error", err,
		)
		http.Error(w, fmt.Sprintf("report could not be saved (correlation_id: %s)", correlationID),
			http.StatusInternalServerError)
	default:
		s.logger.Error("report failed", "app", appName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// appParam returns the unescaped {app} path segment. chi matches on the raw
// path when the request carries escaped characters such as %2F.
func appParam(r *http.Request) string {
	name := chi.URLParam(r, "app")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			return unescaped
		}
	}
	return name
}

// decodeReport parses the optional JSON body of a report.
func decodeReport(r *http.Request) (reportRequest, error) {
	var req reportRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBodySize+1))
	if err != nil {
		return req, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxReportBodySize {
		return req, errors.New("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

// handleCheck reports whether an application is alive.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	appName := appParam(r)

	st, err := s.svc.Check(r.Context(), appName)
	if errors.Is(err, service.ErrNotFound) {
		http.Error(w, fmt.Sprintf("no heartbeat has been recorded for %q", appName), http.StatusNotFound)
		return
	}

	var unavailable *service.UnavailableError
	if errors.As(err, &unavailable) {
		http.Error(w, unavailable.Description(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("check failed", "app", appName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, st.Describe())
}

// handleStatus returns all current statuses as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.svc.All(r.Context())
	views := make([]statusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, s.toView(st))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

func (s *Server) toView(st status.AppStatus) statusView {
	return statusView{
		AppName:      st.AppName(),
		Status:       st.Status(),
		Timestamp:    st.Timestamp(),
		ExpiryPeriod: status.FormatExpiry(st.Expiry()),
		ExpiresAt:    st.ExpiresAt(),
		Expired:      s.svc.IsExpired(st),
	}
}

// handleSSE streams accepted reports via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the initial dump so nothing is missed in between
	ch := s.svc.Subscribe()
	defer s.svc.Unsubscribe(ch)

	for _, st := range s.svc.All(r.Context()) {
		data, err := json.Marshal(s.toView(st))
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(s.toView(st))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
