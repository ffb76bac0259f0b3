// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knotlink_flow_transitions_total",
		Help: "Link flow state transitions",
	}, []string{"from", "to"})

	flowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knotlink_flow_outcomes_total",
		Help: "SDK outcomes reported by browsers",
	}, []string{"kind"})

	flowBusyRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knotlink_flow_busy_rejections_total",
		Help: "Submissions rejected because an attempt was in progress",
	})
)

func observeTransition(from, to State) {
	if from != to {
		flowTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
}
