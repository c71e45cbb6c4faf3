package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the escrow ledger.
type Metrics struct {
	// Transitions by action: created, released, refunded, flagged, flag_cleared
	Transitions *prometheus.CounterVec

	// Risk verdicts by operation and verdict
	Verdicts *prometheus.CounterVec

	// Rejected mutations by operation and error code
	Rejections *prometheus.CounterVec

	ActiveEscrows prometheus.Gauge
}

// New registers ledger metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_escrow_transitions_total",
			Help: "Successful escrow mutations by action",
		}, []string{"action"}),

		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_risk_verdicts_total",
			Help: "Risk gate verdicts by operation",
		}, []string{"operation", "verdict"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowd_escrow_rejections_total",
			Help: "Rejected escrow mutations by operation and code",
		}, []string{"operation", "code"}),

		ActiveEscrows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "escrowd_escrows_active",
			Help: "Escrows created minus escrows resolved since process start",
		}),
	}
}

func (m *Metrics) IncTransition(action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action).Inc()
	switch action {
	case "created":
		m.ActiveEscrows.Inc()
	case "released", "refunded":
		m.ActiveEscrows.Dec()
	}
}

func (m *Metrics) IncVerdict(operation, verdict string) {
	if m != nil {
		m.Verdicts.WithLabelValues(operation, verdict).Inc()
	}
}

func (m *Metrics) IncRejection(operation, code string) {
	if m != nil {
		m.Rejections.WithLabelValues(operation, code).Inc()
	}
}
