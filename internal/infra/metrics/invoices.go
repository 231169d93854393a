package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicesGeneratedTotal,
		invoiceFailuresTotal,
	)
}

var (
	invoicesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_generated_total",
			Help: "Invoices generated (idempotent replays not counted).",
		},
	)

	invoiceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_failures_total",
			Help: "Invoice generation failures by stage (render/store/persist).",
		},
		[]string{"stage"},
	)
)

func IncInvoiceGenerated() { invoicesGeneratedTotal.Inc() }

func IncInvoiceFailure(stage string) {
	invoiceFailuresTotal.WithLabelValues(norm(stage)).Inc()
}
