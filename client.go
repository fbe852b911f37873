package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/heartbeat/internal/status"
)

const (
	// DefaultServerURL is where a [Client] reports when no URL is configured.
	DefaultServerURL = "http://localhost:5000"

	defaultRequestTimeout = 10 * time.Second
	maxResponseBodySize   = 1 << 20 // 1MB
)

// connection pooling limits; a client talks to a single server
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Client reports heartbeats to, and checks applications on, a heartbeat server.
//
// Reporting is fire-and-forget: [Client.Update] logs failures instead of
// returning them, so a monitoring outage never breaks the application being
// monitored. [Client.Report], [Client.Initialise] and [Client.Check] return
// errors.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// CheckResult is the outcome of [Client.Check].
type CheckResult struct {
	// Found is false when the server has never received a report for the app.
	Found bool

	// Available is true when the app's latest report is neither offline nor expired.
	Available bool

	// StatusCode is the HTTP status returned by the server.
	StatusCode int

	// Message is the server's description of the app's state.
	Message string
}

// NewClient creates a [Client].
//
// Without options the client reports to [DefaultServerURL] with a 10 second
// per-request timeout and logs to [slog.Default].
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		serverURL: DefaultServerURL,
		timeout:   defaultRequestTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.serverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		timeout:    cfg.timeout,
	}, nil
}

// Update reports a heartbeat for app.
//
// With no options a bare GET /update/{app} is sent, and the server carries
// the previous status and expiry forward. [WithStatus] and [WithExpiry]
// switch to a POST carrying the supplied fields.
//
// Failures are logged at warn level and never returned.
func (c *Client) Update(ctx context.Context, app string, opts ...UpdateOption) {
	if err := c.Report(ctx, app, opts...); err != nil {
		c.logger.Warn("heartbeat update failed", "app", app, "error", err)
	}
}

// Initialise registers app with the given expiry, typically once at startup.
// Unlike [Client.Update], failures are returned.
func (c *Client) Initialise(ctx context.Context, app string, expiry time.Duration) error {
	if expiry < 0 {
		return fmt.Errorf("expiry cannot be negative, got %s", expiry)
	}
	return c.Report(ctx, app, WithExpiry(expiry))
}

// Check asks the server whether app is alive.
//
// A 404 or 503 is not an error: it is reported through [CheckResult].
// Transport failures and unexpected responses return an error.
func (c *Client) Check(ctx context.Context, app string) (CheckResult, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/check/"+url.PathEscape(app), nil)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
	switch resp.StatusCode {
	case http.StatusOK:
		result.Found = true
		result.Available = true
	case http.StatusServiceUnavailable:
		result.Found = true
	case http.StatusNotFound:
		// never reported
	default:
		return result, fmt.Errorf("unexpected response %d: %s", resp.StatusCode, result.Message)
	}
	return result, nil
}

// Run reports a heartbeat for app immediately and then every interval until
// ctx is cancelled. Each report uses opts; see [Client.Update].
//
// Run blocks. It returns nil when ctx is cancelled, or an error if interval
// is not positive.
func (c *Client) Run(ctx context.Context, app string, interval time.Duration, opts ...UpdateOption) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Update(ctx, app, opts...)
	for {
		select {
		case <-ticker.C:
			c.Update(ctx, app, opts...)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close closes all idle connections in the client's connection pool.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// reportBody is the JSON body of POST /update/{app}.
type reportBody struct {
	Status *string `json:"status,omitempty"`
	Expiry *string `json:"expiry,omitempty"`
}

// Report sends a heartbeat like [Client.Update] but returns failures,
// including non-2xx responses, to the caller.
func (c *Client) Report(ctx context.Context, app string, opts ...UpdateOption) error {
	if strings.TrimSpace(app) == "" {
		return errors.New("app name is required")
	}

	path := "/update/" + url.PathEscape(app)

	var (
		resp *http.Response
		body []byte
		err  error
	)
	if len(opts) == 0 {
		resp, body, err = c.do(ctx, http.MethodGet, path, nil)
	} else {
		u := &updateConfig{}
		for _, opt := range opts {
			opt(u)
		}
		rb := reportBody{Status: u.status}
		if u.expiry != nil {
			formatted := status.FormatExpiry(*u.expiry)
			rb.Expiry = &formatted
		}
		payload, merr := json.Marshal(rb)
		if merr != nil {
			return fmt.Errorf("failed to encode report: %w", merr)
		}
		resp, body, err = c.do(ctx, http.MethodPost, path, payload)
	}
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server rejected report with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// do sends one request and reads the (size-limited) body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request %s failed: %w", requestID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return resp, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, body, nil
}
