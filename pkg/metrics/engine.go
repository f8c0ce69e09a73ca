package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records order composition and settlement activity.
type EngineMetrics struct {
	ordersComposed      *prometheus.CounterVec
	commissionsRecorded prometheus.Counter
	settlementsPaid     prometheus.Counter
	settledCents        prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	ordersComposed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_composed_total",
		Help: "Orders appended to the ledger, labeled by provenance.",
	}, []string{"provenance"})
	commissionsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commissions_recorded_total",
		Help: "Commission records created at order composition.",
	})
	settlementsPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlements_paid_total",
		Help: "Commission records transitioned to paid.",
	})
	settledCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settled_amount_cents_total",
		Help: "Total vendor earnings settled, in cents.",
	})
	reg.MustRegister(ordersComposed, commissionsRecorded, settlementsPaid, settledCents)
	return &EngineMetrics{
		ordersComposed:      ordersComposed,
		commissionsRecorded: commissionsRecorded,
		settlementsPaid:     settlementsPaid,
		settledCents:        settledCents,
	}
}

// IncOrderComposed increments the composed-order counter for the provenance.
func (m *EngineMetrics) IncOrderComposed(provenance string) {
	if m == nil || m.ordersComposed == nil {
		return
	}
	if provenance == "" {
		provenance = "unknown"
	}
	m.ordersComposed.WithLabelValues(provenance).Inc()
}

// AddCommissionsRecorded counts newly created commission records.
func (m *EngineMetrics) AddCommissionsRecorded(n int) {
	if m == nil || m.commissionsRecorded == nil || n <= 0 {
		return
	}
	m.commissionsRecorded.Add(float64(n))
}

// ObserveSettlement counts a paid transition and its amount.
func (m *EngineMetrics) ObserveSettlement(amountCents int64) {
	if m == nil || m.settlementsPaid == nil {
		return
	}
	m.settlementsPaid.Inc()
	if amountCents > 0 {
		m.settledCents.Add(float64(amountCents))
	}
}
