// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides shared data structures for the orchestrator
// service: chat messages, intent classification results, risk assessments,
// and stream events. The pipeline, shield, and handler packages all build
// on these types; this package must not import any of them.
package datatypes

// =============================================================================
// Messages
// =============================================================================

// Message is a single conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// =============================================================================
// Intent Classification
// =============================================================================

// Primary routes assigned by the intent classifier.
const (
	RouteSay  = "SAY"
	RouteMake = "MAKE"
	RouteFix  = "FIX"
	RouteDo   = "DO"
)

// Stances assigned by the intent classifier.
const (
	StanceLens   = "LENS"
	StanceSword  = "SWORD"
	StanceShield = "SHIELD"
)

// Safety signal tiers, ordered by severity.
const (
	SignalNone   = "none"
	SignalLow    = "low"
	SignalMedium = "medium"
	SignalHigh   = "high"
)

// IntentSummary is the output of the intent classification gate.
//
// # Description
//
// One summary is produced per request and consumed by every downstream
// gate. Consumers must tolerate a nil or partially populated summary;
// DefaultIntentSummary() supplies the documented defaults and the stance
// gate in particular must never fail on a missing summary.
//
// # Fields
//
//   - PrimaryRoute: SAY | MAKE | FIX | DO
//   - Stance: LENS | SWORD | SHIELD
//   - SafetySignal: none | low | medium | high
//   - Urgency: free-form urgency label from the classifier
//   - LiveData: the message needs live external data
//   - ExternalTool: the message needs an external tool call
//   - LearningIntent: the user is asking to learn, not just to be told
type IntentSummary struct {
	PrimaryRoute   string `json:"primary_route"`
	Stance         string `json:"stance"`
	SafetySignal   string `json:"safety_signal"`
	Urgency        string `json:"urgency"`
	LiveData       bool   `json:"live_data"`
	ExternalTool   bool   `json:"external_tool"`
	LearningIntent bool   `json:"learning_intent"`
}

// DefaultIntentSummary returns the summary used when classification is
// absent or malformed: SAY/LENS with no safety signal and no learning
// intent.
func DefaultIntentSummary() *IntentSummary {
	return &IntentSummary{
		PrimaryRoute:   RouteSay,
		Stance:         StanceLens,
		SafetySignal:   SignalNone,
		LearningIntent: false,
	}
}

// Normalize fills zero-valued fields with their documented defaults so
// downstream gates never see an empty route, stance, or signal.
func (s *IntentSummary) Normalize() {
	if s.PrimaryRoute == "" {
		s.PrimaryRoute = RouteSay
	}
	if s.Stance == "" {
		s.Stance = StanceLens
	}
	if s.SafetySignal == "" {
		s.SafetySignal = SignalNone
	}
}

// =============================================================================
// Risk Assessment
// =============================================================================

// RiskAssessment describes the risk profile of a flagged message.
//
// Nullable by contract: every consumer must degrade gracefully when no
// assessment is available, never abort the request.
type RiskAssessment struct {
	Domain          string   `json:"domain"`
	RiskExplanation string   `json:"risk_explanation"`
	Consequences    []string `json:"consequences"`
	Alternatives    []string `json:"alternatives"`
	Question        string   `json:"question"`
}

// =============================================================================
// Redirect
// =============================================================================

// Redirect targets.
const (
	RedirectTargetSwordGate = "swordgate"
)

// SwordGate modes assigned by the redirect classifier.
const (
	SwordModeDesigner = "designer"
	SwordModeRunner   = "runner"
)

// RedirectDescriptor describes a handoff to a downstream engine instead
// of a generated response.
type RedirectDescriptor struct {
	// Target names the downstream engine (currently only "swordgate").
	Target string `json:"target"`

	// Mode is the engine-specific mode ("designer" or "runner").
	Mode string `json:"mode"`

	// Topic is an optional topic extracted from the raw message.
	Topic string `json:"topic,omitempty"`
}
