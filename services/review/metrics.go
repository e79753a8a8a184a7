package review

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contest_review",
		Subsystem: "review",
		Name:      "committed_total",
		Help:      "Committed review transitions by target status and intent.",
	}, []string{"status", "intent"})

	tasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contest_review",
		Subsystem: "review",
		Name:      "tasks_submitted_total",
		Help:      "Submitted tasks by task type.",
	}, []string{"task_type"})
)
