package heartbeat

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	serverURL  string
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// ClientOption configures a [Client] during construction.
type ClientOption func(*clientConfig) error

// WithServerURL sets the base URL of the heartbeat server,
// e.g. "http://heartbeat.internal:5000".
//
// Returns an error if the URL is not absolute http or https.
func WithServerURL(raw string) ClientOption {
	return func(cfg *clientConfig) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid server url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server url scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("server url must include a host")
		}
		cfg.serverURL = raw
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
//
// Returns an error if the client is nil.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = c
		return nil
	}
}

// WithClientLogger sets the logger that report failures are written to.
//
// Returns an error if the logger is nil.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRequestTimeout bounds each request. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// updateConfig collects the optional fields of one report.
type updateConfig struct {
	status *string
	expiry *time.Duration
}

// UpdateOption supplies an optional field of a report.
type UpdateOption func(*updateConfig)

// WithStatus reports s as the application's status. Reporting [Offline]
// makes checks fail immediately until another status is reported.
func WithStatus(s string) UpdateOption {
	return func(u *updateConfig) {
		u.status = &s
	}
}

// WithExpiry sets how long the report stays valid.
func WithExpiry(d time.Duration) UpdateOption {
	return func(u *updateConfig) {
		u.expiry = &d
	}
}
