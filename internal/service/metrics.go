package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeAccepted  = "accepted"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
	outcomeAvailable = "available"
	outcomeNotFound  = "not_found"
)

// Metrics holds the Prometheus collectors updated by [Service].
type Metrics struct {
	reports *prometheus.CounterVec
	checks  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heartbeat",
			Name:      "reports_total",
			Help:      "Heartbeat reports received, by outcome.",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heartbeat",
			Name:      "checks_total",
			Help:      "Status checks performed, by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.reports, m.checks)
	}
	return m
}

// RegisterApplicationsGauge exposes the number of known applications,
// computed on each scrape from count.
func RegisterApplicationsGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "heartbeat",
		Name:      "applications",
		Help:      "Number of applications that have reported at least once.",
	}, func() float64 {
		return float64(count())
	}))
}

func (m *Metrics) report(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) check(outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(outcome).Inc()
}
