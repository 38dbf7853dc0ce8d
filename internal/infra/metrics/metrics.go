package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inventory_bot"

var (
	Inputs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inputs_total",
		Help:      "Text inputs handled, by dialog state.",
	}, []string{"state"})

	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejections_total",
		Help:      "Inputs rejected by validation, by field.",
	}, []string{"field"})

	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "Store commits, by kind (product|damage) and result.",
	}, []string{"kind", "result"})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_failures_total",
		Help:      "Telegram API send errors.",
	})

	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_panics_total",
		Help:      "Update handlers recovered from panic.",
	})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Dialog sessions held in memory.",
	})
)
