package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"disputebot/internal/model"
)

// Metrics bundles the worker's Prometheus collectors on a dedicated
// registry; the dashboard exposes it at /metrics.
type Metrics struct {
	Registry      *prometheus.Registry
	DisputesTotal prometheus.Counter
	SkipsTotal    prometheus.Counter
	ErrorsTotal   prometheus.Counter
	InvoicesTotal prometheus.Counter
	PhaseGauge    *prometheus.GaugeVec
}

// NewMetrics constructs and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	disputes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "disputebot_disputes_filed_total",
		Help: "Disputes successfully filed on the portal.",
	})
	skips := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "disputebot_shipments_skipped_total",
		Help: "Shipment lines skipped because a prior dispute exists.",
	})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "disputebot_row_errors_total",
		Help: "Shipment lines where filing failed.",
	})
	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "disputebot_invoices_processed_total",
		Help: "Invoices fully processed.",
	})
	phase := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disputebot_phase",
		Help: "Current worker phase (1 for the active phase, 0 otherwise).",
	}, []string{"phase"})

	registry.MustRegister(disputes, skips, errs, invoices, phase)

	return &Metrics{
		Registry:      registry,
		DisputesTotal: disputes,
		SkipsTotal:    skips,
		ErrorsTotal:   errs,
		InvoicesTotal: invoices,
		PhaseGauge:    phase,
	}
}

// SetPhase marks status as the single active phase.
func (m *Metrics) SetPhase(status model.RunStatus) {
	if m == nil {
		return
	}
	m.PhaseGauge.Reset()
	m.PhaseGauge.WithLabelValues(string(status)).Set(1)
}

func (m *Metrics) IncDisputes() {
	if m == nil {
		return
	}
	m.DisputesTotal.Inc()
}

func (m *Metrics) AddSkips(n int) {
	if m == nil {
		return
	}
	m.SkipsTotal.Add(float64(n))
}

func (m *Metrics) AddErrors(n int) {
	if m == nil {
		return
	}
	m.ErrorsTotal.Add(float64(n))
}

func (m *Metrics) IncInvoices() {
	if m == nil {
		return
	}
	m.InvoicesTotal.Inc()
}
