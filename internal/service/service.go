package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jpalmerr/heartbeat/internal/status"
	"github.com/jpalmerr/heartbeat/internal/store"
)

// Update carries the optional fields of a report. A nil field is carried
// forward from the application's previous status, or defaulted.
type Update struct {
	// Status is the reported status string.
	Status *string

	// Expiry is an ISO-8601 duration such as "PT5M".
	Expiry *string
}

// Service handles heartbeat reports and status checks.
//
// Service owns no state of its own; all reads and writes go through the
// injected store. It is safe for concurrent use when the store is.
type Service struct {
	store         store.Store
	now           func() time.Time
	defaultStatus string
	defaultExpiry time.Duration
	logger        *slog.Logger
	metrics       *Metrics
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests and simulations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaults sets the status and expiry assigned to applications that
// report for the first time without supplying them.
func WithDefaults(defaultStatus string, defaultExpiry time.Duration) Option {
	return func(s *Service) {
		if defaultStatus != "" {
			s.defaultStatus = defaultStatus
		}
		if defaultExpiry >= 0 {
			s.defaultExpiry = defaultExpiry
		}
	}
}

// WithMetrics records report and check outcomes.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a [Service] over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		now:           time.Now,
		defaultStatus: status.DefaultStatus,
		defaultExpiry: status.DefaultExpiry,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report records a heartbeat for appName.
//
// Omitted fields are carried forward independently from the application's
// previous status, falling back to the configured defaults. The new status
// is timestamped with the current time. Validation failures return a
// [*ValidationError] before any state changes; persistence failures are
// returned from the store unchanged.
func (s *Service) Report(ctx context.Context, appName string, u Update) error {
	if strings.TrimSpace(appName) == "" {
		s.metrics.report(outcomeInvalid)
		return &ValidationError{Field: "app_name", Reason: "must not be empty"}
	}

	var (
		expiry    time.Duration
		hasExpiry bool
	)
	if u.Expiry != nil {
		d, err := status.ParseExpiry(*u.Expiry)
		if err != nil {
			s.metrics.report(outcomeInvalid)
			return &ValidationError{Field: "expiry", Reason: err.Error()}
		}
		expiry, hasExpiry = d, true
	}
	if u.Status != nil && *u.Status == "" {
		s.metrics.report(outcomeInvalid)
		return &ValidationError{Field: "status", Reason: "must not be empty"}
	}

	newStatus := s.defaultStatus
	newExpiry := s.defaultExpiry
	if previous, ok := s.store.GetStatus(appName); ok {
		newStatus = previous.Status()
		newExpiry = previous.Expiry()
	}
	if u.Status != nil {
		newStatus = *u.Status
	}
	if hasExpiry {
		newExpiry = expiry
	}

	st := status.New(appName, newStatus, s.now().UTC(), newExpiry)
	if err := s.store.UpdateStatus(ctx, appName, st); err != nil {
		s.metrics.report(outcomeFailed)
		return err
	}

	s.metrics.report(outcomeAccepted)
	s.logger.Debug("heartbeat recorded",
		"app", appName,
		"status", newStatus,
		"expiry", status.FormatExpiry(newExpiry),
	)
	return nil
}

// Check classifies the current status of appName.
//
// Returns [ErrNotFound] for unknown applications and an [*UnavailableError]
// when the latest status is offline or has expired, in that order of
// precedence. Otherwise the current status is returned with a nil error.
// The status is returned alongside an UnavailableError too.
func (s *Service) Check(_ context.Context, appName string) (status.AppStatus, error) {
	st, ok := s.store.GetStatus(appName)
	if !ok {
		s.metrics.check(outcomeNotFound)
		return status.AppStatus{}, ErrNotFound
	}

	if st.IsOffline() {
		s.metrics.check(string(ReasonOffline))
		return st, &UnavailableError{AppName: appName, Reason: ReasonOffline}
	}
	if st.IsExpired(s.now()) {
		s.metrics.check(string(ReasonExpired))
		return st, &UnavailableError{AppName: appName, Reason: ReasonExpired}
	}

	s.metrics.check(outcomeAvailable)
	return st, nil
}

// List returns the names of all known applications.
func (s *Service) List(_ context.Context) []string {
	return s.store.ListApplications()
}

// All returns every application's current status.
func (s *Service) All(_ context.Context) []status.AppStatus {
	return s.store.All()
}

// IsExpired reports whether st has expired by the service clock.
func (s *Service) IsExpired(st status.AppStatus) bool {
	return st.IsExpired(s.now())
}

// Subscribe exposes the store's feed of accepted statuses.
func (s *Service) Subscribe() <-chan status.AppStatus {
	return s.store.Subscribe()
}

// Unsubscribe ends a subscription created by [Service.Subscribe].
func (s *Service) Unsubscribe(ch <-chan status.AppStatus) {
	s.store.Unsubscribe(ch)
}
