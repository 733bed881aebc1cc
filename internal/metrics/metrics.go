package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanflow_transitions_total",
		Help: "Loan state transitions by operation and outcome.",
	},
		[]string{"operation", "outcome"},
	)

	SideEffectDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanflow_side_effect_deliveries_total",
		Help: "Side-effect delivery attempts by task kind and outcome.",
	},
		[]string{"kind", "outcome"},
	)

	OutboxDeadTasksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loanflow_outbox_dead_tasks_total",
		Help: "Outbox tasks that exhausted their attempts.",
	})

	FinesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loanflow_fines_written_total",
		Help: "Fine records written by upsert or recompute.",
	})
)

// Outcome reduces an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
