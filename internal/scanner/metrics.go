package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes.
const (
	outcomeUnsupported = "unsupported"
	outcomeEmpty       = "empty"
	outcomeFound       = "found"
)

// Metrics are the scanner's prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	scans         *prometheus.CounterVec
	attempts      prometheus.Histogram
	candidates    *prometheus.CounterVec
	persistErrors prometheus.Counter
	storedRecords prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scans: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "duewatch",
				Name:      "scans_total",
				Help:      "Scans run, by outcome.",
			},
			[]string{"outcome"},
		),
		attempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "duewatch",
				Name:      "scan_attempts",
				Help:      "Extraction attempts used per supported scan.",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),
		candidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "duewatch",
				Name:      "candidates_total",
				Help:      "Candidates extracted, by whether the overdue filter kept them.",
			},
			[]string{"kept"},
		),
		persistErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "duewatch",
				Name:      "persist_errors_total",
				Help:      "Scans whose merge could not be persisted.",
			},
		),
		storedRecords: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "duewatch",
				Name:      "assignments_stored",
				Help:      "Assignments in the collection after the last persisted merge.",
			},
		),
	}
}

func (m *Metrics) observeScan(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
	if outcome != outcomeUnsupported {
		m.attempts.Observe(float64(attempts))
	}
}

func (m *Metrics) observeCandidates(found, kept int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues("true").Add(float64(kept))
	m.candidates.WithLabelValues("false").Add(float64(found - kept))
}

func (m *Metrics) observePersist(stored int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.persistErrors.Inc()
		return
	}
	m.storedRecords.Set(float64(stored))
}
