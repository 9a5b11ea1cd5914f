// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the Prometheus metrics for the
// orchestrator. Metrics are package-level promauto registrations;
// /metrics is served by the default registry.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts chat requests by endpoint and terminal status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindgate_requests_total",
		Help: "Chat requests by endpoint and terminal status.",
	}, []string{"endpoint", "status"})

	// GateOutcomes counts gate executions by gate and action.
	GateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindgate_gate_outcomes_total",
		Help: "Gate executions by gate id and resulting action.",
	}, []string{"gate", "action"})

	// ShieldActions counts shield verdicts by action tier.
	ShieldActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindgate_shield_actions_total",
		Help: "Shield evaluations by resulting action.",
	}, []string{"action"})

	// RegenerationsTotal counts validation-triggered re-generations.
	RegenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindgate_regenerations_total",
		Help: "Response regenerations triggered by the validation loop.",
	})

	// ActiveStreams tracks concurrently open SSE streams.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mindgate_active_streams",
		Help: "Currently open streaming chat connections.",
	})
)
