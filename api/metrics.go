// Prometheus metrics for the API surface. Exposed at /metrics.
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OperationsTotal counts engine operations by name and outcome
// ("success" or the error kind).
var OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teller_operations_total",
	Help: "Engine operations by name and outcome.",
}, []string{"op", "outcome"})

// LoginsTotal counts authentication attempts by outcome.
var LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teller_logins_total",
	Help: "Authentication attempts by outcome.",
}, []string{"outcome"})

func observeOp(op string, err error) {
	OperationsTotal.WithLabelValues(op, outcomeLabel(err)).Inc()
}
