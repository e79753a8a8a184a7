package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chainVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "contest_review",
	Subsystem: "ledger",
	Name:      "chain_verifications_total",
	Help:      "Hash chain verifications by result.",
}, []string{"result"})
