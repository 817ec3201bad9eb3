package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts outcomes per settlement run.
type SettlementMetrics struct {
	processed prometheus.Counter
	credited  prometheus.Counter
	failed    prometheus.Counter
}

// NewSettlementMetrics registers the settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_items_processed_total",
		Help: "Order items examined by the settlement engine.",
	})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_items_credited_total",
		Help: "Order items credited to vendor wallets.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_items_failed_total",
		Help: "Order items that failed to settle and will be retried.",
	})
	reg.MustRegister(processed, credited, failed)
	return &SettlementMetrics{processed: processed, credited: credited, failed: failed}
}

// Observe adds one run's counts to the counters.
func (m *SettlementMetrics) Observe(processed, credited, failed int) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.Add(float64(processed))
	m.credited.Add(float64(credited))
	m.failed.Add(float64(failed))
}
