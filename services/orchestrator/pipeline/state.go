// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the decision pipeline: ordered gates that
// classify, screen, route, and generate, threaded through one mutable
// per-request state, with risk-adaptive delivery at the end.
package pipeline

import (
	"strings"
	"time"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// =============================================================================
// Gate results
// =============================================================================

// GateAction is the control-flow signal a gate hands the orchestrator.
// The orchestrator switches over it exhaustively; an unrecognized action
// is a pipeline bug, not a silent continue.
type GateAction string

const (
	// ActionContinue proceeds to the next gate.
	ActionContinue GateAction = "continue"

	// ActionHalt stops the pipeline; the halting gate's output is the
	// terminal result (blocked or stopped).
	ActionHalt GateAction = "halt"

	// ActionRedirect stops the pipeline before generation and hands the
	// conversation to a downstream engine.
	ActionRedirect GateAction = "redirect"

	// ActionRegenerate is only meaningful inside the validation loop: the
	// preceding generation is re-run.
	ActionRegenerate GateAction = "regenerate"
)

// GateStatus reports whether a gate did its job.
type GateStatus string

const (
	GatePass GateStatus = "pass"
	GateFail GateStatus = "fail"
)

// GateResult is the outcome of one gate execution. Output is
// gate-specific and opaque to the orchestrator; Action is the only
// channel through which a gate affects control flow.
type GateResult struct {
	GateID          string
	Status          GateStatus
	Action          GateAction
	Output          any
	ExecutionTimeMs int64
}

// DTO converts the result into its client-visible form.
func (r *GateResult) DTO() datatypes.GateResultDTO {
	return datatypes.GateResultDTO{
		GateID:          r.GateID,
		Status:          string(r.Status),
		Action:          string(r.Action),
		ExecutionTimeMs: r.ExecutionTimeMs,
	}
}

// =============================================================================
// Stance and generation intermediates
// =============================================================================

// StanceResult is the routing decision of the stance gate.
type StanceResult struct {
	Route          string                        `json:"route"` // "lens" or "sword"
	PrimaryRoute   string                        `json:"primary_route"`
	LearningIntent bool                          `json:"learning_intent"`
	Redirect       *datatypes.RedirectDescriptor `json:"redirect,omitempty"`
}

// GenerationPlan is the capability gate's output: everything the
// response gate needs to call the model.
type GenerationPlan struct {
	SystemPrompt string
	Params       llm.GenerationParams
}

// =============================================================================
// Pipeline state
// =============================================================================

// State is the mutable, single-request pipeline state.
//
// # Ownership
//
// Owned exclusively by one orchestrator invocation; never shared across
// requests, so no locking. Gates append their GateResult and write their
// designated derived fields; nothing else mutates it.
type State struct {
	RequestID      string
	UserID         string
	ConversationID string

	// RawInput is the user message as received; NormalizedInput is the
	// trimmed form every gate works on.
	RawInput        string
	NormalizedInput string

	// History is the conversation loaded at pipeline start, oldest first.
	History []datatypes.Message

	// ShieldBypassed marks a consent replay: the user already acknowledged
	// the warning, so the shield gate passes through.
	ShieldBypassed bool

	// Derived fields, each written by exactly one gate.
	Intent     *datatypes.IntentSummary
	ShieldEval *shield.Evaluation
	AckToken   string
	Stance     *StanceResult
	ToolHints  []string
	Plan       *GenerationPlan

	// Generation is the latest model output; ValidatedOutput is the text
	// delivery settled on after validation.
	Generation      string
	ValidatedOutput string

	// Degraded records a survivable provider failure (fallback text was
	// used); the terminal status becomes "degraded" instead of "success".
	Degraded bool

	// Regenerations counts validation-triggered re-generations.
	Regenerations int

	StartedAt   time.Time
	gateResults []*GateResult
	byGate      map[string]*GateResult
}

// NewState creates the state for one pipeline run.
func NewState(requestID, userID, conversationID, message string) *State {
	return &State{
		RequestID:       requestID,
		UserID:          userID,
		ConversationID:  conversationID,
		RawInput:        message,
		NormalizedInput: normalizeInput(message),
		StartedAt:       time.Now(),
		byGate:          make(map[string]*GateResult),
	}
}

// RecordGateResult appends a gate's result. One entry per gate that ran.
func (s *State) RecordGateResult(result *GateResult) {
	s.gateResults = append(s.gateResults, result)
	s.byGate[result.GateID] = result
}

// GateResults returns results in execution order.
func (s *State) GateResults() []*GateResult {
	return s.gateResults
}

// GateResultDTOs converts all recorded results for the client payload.
func (s *State) GateResultDTOs() []datatypes.GateResultDTO {
	out := make([]datatypes.GateResultDTO, 0, len(s.gateResults))
	for _, r := range s.gateResults {
		out = append(out, r.DTO())
	}
	return out
}

// IntentOrDefault returns the classified intent, or the documented
// defaults when classification is absent. Never returns nil.
func (s *State) IntentOrDefault() *datatypes.IntentSummary {
	if s.Intent == nil {
		return datatypes.DefaultIntentSummary()
	}
	return s.Intent
}

func normalizeInput(message string) string {
	// Surrounding whitespace only; content is otherwise passed through
	// untouched.
	return strings.TrimSpace(message)
}
