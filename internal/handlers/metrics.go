package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transactionOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "shopen",
	Name:      "transaction_operations_total",
	Help:      "Transaction lifecycle operations by outcome.",
}, []string{"op", "outcome"})

func observeTransaction(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	transactionOps.WithLabelValues(op, outcome).Inc()
}
