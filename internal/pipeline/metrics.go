package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendPrimary  = "primary"
	backendFallback = "fallback"

	outcomeFound = "found"
	outcomeEmpty = "empty"
	outcomeError = "error"

	statusFound     = "found"
	statusNotFound  = "not_found"
	statusOpenError = "open_error"
)

// Metrics collects per-attempt counters for a Scanner. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	attempts     *prometheus.CounterVec
	skips        *prometheus.CounterVec
	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
}

// NewMetrics registers the scan collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrscan_decode_attempts_total",
				Help: "Decode attempts by backend, candidate and outcome",
			},
			[]string{"backend", "candidate", "outcome"},
		),
		skips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrscan_candidates_skipped_total",
				Help: "Candidates that could not be built",
			},
			[]string{"candidate"},
		),
		scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrscan_scans_total",
				Help: "Completed scans by status",
			},
			[]string{"status"}, // status: found, not_found, open_error
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qrscan_scan_duration_seconds",
				Help:    "Wall time of a scan in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteFile dumps the metrics in the text exposition format to path.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) attempt(backend, candidate, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(backend, candidate, outcome).Inc()
}

func (m *Metrics) skipped(candidate string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(candidate).Inc()
}

func (m *Metrics) observeScan(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(status).Inc()
	m.scanDuration.Observe(d.Seconds())
}
