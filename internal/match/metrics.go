package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the matching pipeline.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	CandidatesScored   prometheus.Counter
	CandidatesFiltered *prometheus.CounterVec
	CacheEvents        *prometheus.CounterVec
	FactorDegraded     *prometheus.CounterVec
}

// NewMetrics creates the matching metrics collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_requests_total",
				Help: "Total match requests by outcome status.",
			},
			[]string{"status"},
		),
		RequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "match_request_duration_seconds",
				Help:    "End-to-end match request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CandidatesScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_candidates_scored_total",
				Help: "Total candidates that reached the scoring stage.",
			},
		),
		CandidatesFiltered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_candidates_filtered_total",
				Help: "Total candidates removed by hard filters, by reason.",
			},
			[]string{"reason"},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_cache_events_total",
				Help: "Match result cache events by type.",
			},
			[]string{"event"},
		),
		FactorDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_factor_degraded_total",
				Help: "Scoring factors dropped from normalization, by factor.",
			},
			[]string{"factor"},
		),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.CandidatesScored,
		m.CandidatesFiltered,
		m.CacheEvents,
		m.FactorDegraded,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
