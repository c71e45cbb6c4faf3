package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance registry.
type Metrics struct {
	// Status writes by outcome: applied, downgrade_rejected, invalid
	StatusUpdates *prometheus.CounterVec

	// Cache lookups by result: hit, miss, error
	CacheLookups *prometheus.CounterVec

	LookupLatency prometheus.Histogram
}

// New registers compliance metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_compliance_status_updates_total",
			Help: "Administrative compliance writes by outcome",
		}, []string{"outcome"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_compliance_cache_lookups_total",
			Help: "Compliance cache lookups by result",
		}, []string{"result"}),

		LookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "escrowd_compliance_lookup_duration_seconds",
			Help:    "Duration of compliance record lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) IncStatusUpdate(outcome string) {
	if m != nil {
		m.StatusUpdates.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}
