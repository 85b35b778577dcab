package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

var WebhookEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bitebliss",
	Subsystem: "webhook",
	Name:      "events_total",
	Help:      "Count of provider webhook events by type and outcome",
}, []string{"type", "outcome"})
