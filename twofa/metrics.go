package twofa

import (
	"time"

	"github.com/iov-one/dualsign/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts confirmation sessions. A nil *Metrics is valid and counts
// nothing.
type Metrics struct {
	CodesSent          prometheus.Counter
	DeliveryFailures   prometheus.Counter
	InvalidCodes       prometheus.Counter
	Confirmations      prometheus.Counter
	VerificationErrors prometheus.Counter
	SessionDuration    prometheus.Histogram
}

// NewMetrics returns unregistered metrics with given namespace.
func NewMetrics(namespace string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twofa",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		CodesSent:          counter("codes_sent_total", "Confirmation codes delivered."),
		DeliveryFailures:   counter("delivery_failures_total", "Confirmation codes that could not be delivered."),
		InvalidCodes:       counter("invalid_codes_total", "Entered codes rejected as invalid."),
		Confirmations:      counter("confirmations_total", "Requests confirmed."),
		VerificationErrors: counter("verification_errors_total", "Sessions that failed during verification."),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "twofa",
			Name:      "session_duration_seconds",
			Help:      "Time from submitting a request to the end of its confirmation.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// Register registers all metrics.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.CodesSent,
		m.DeliveryFailures,
		m.InvalidCodes,
		m.Confirmations,
		m.VerificationErrors,
		m.SessionDuration,
	} {
		if err := r.Register(c); err != nil {
			return errors.Wrapf(errors.ErrInput, "register metrics: %s", err)
		}
	}
	return nil
}

func (m *Metrics) inc(pick func(*Metrics) prometheus.Counter) {
	if m == nil {
		return
	}
	pick(m).Inc()
}

func (m *Metrics) observe(start time.Time) {
	if m == nil {
		return
	}
	m.SessionDuration.Observe(time.Since(start).Seconds())
}

func codesSent(m *Metrics) prometheus.Counter          { return m.CodesSent }
func deliveryFailures(m *Metrics) prometheus.Counter   { return m.DeliveryFailures }
func invalidCodes(m *Metrics) prometheus.Counter       { return m.InvalidCodes }
func confirmations(m *Metrics) prometheus.Counter      { return m.Confirmations }
func verificationErrors(m *Metrics) prometheus.Counter { return m.VerificationErrors }
