package multisig

import (
	"github.com/iov-one/dualsign/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts request lifecycle events. A nil *Metrics is valid and
// counts nothing.
type Metrics struct {
	Submissions       prometheus.Counter
	Resubmissions     prometheus.Counter
	FailedSubmissions prometheus.Counter
	DeletedRequests   prometheus.Counter
	FailedDeletions   prometheus.Counter
}

// NewMetrics returns unregistered counters with given namespace.
func NewMetrics(namespace string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "multisig",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Submissions:       counter("submissions_total", "Requests successfully added to the contract."),
		Resubmissions:     counter("resubmissions_total", "Submissions repeated after deleting stale requests."),
		FailedSubmissions: counter("failed_submissions_total", "Submissions that failed."),
		DeletedRequests:   counter("deleted_requests_total", "Stale requests deleted."),
		FailedDeletions:   counter("failed_deletions_total", "Stale requests that could not be deleted."),
	}
}

// Register registers all counters.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Submissions,
		m.Resubmissions,
		m.FailedSubmissions,
		m.DeletedRequests,
		m.FailedDeletions,
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

func submissions(m *Metrics) prometheus.Counter       { return m.Submissions }
func resubmissions(m *Metrics) prometheus.Counter     { return m.Resubmissions }
func failedSubmissions(m *Metrics) prometheus.Counter { return m.FailedSubmissions }
func deletedRequests(m *Metrics) prometheus.Counter   { return m.DeletedRequests }
func failedDeletions(m *Metrics) prometheus.Counter   { return m.FailedDeletions }
