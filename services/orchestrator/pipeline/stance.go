// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

const stanceGateID = "stance"

// Routes the stance gate can settle on.
const (
	RouteLens  = "lens"
	RouteSword = "sword"
)

const swordModePrompt = `The user wants structured learning. Classify their message. Respond with ONLY a JSON object, no prose:
{
  "mode": "<designer|runner>",
  "topic": "<short topic phrase, or empty if unclear>"
}

"designer" = the user wants to plan or build a learning path;
"runner" = the user wants to work through existing material or practice.

User message: %s`

// StanceGate routes the request to the lens or sword engine.
//
// # Description
//
// The deterministic decision is a single rule: route is "sword" iff the
// stance is SWORD and learning intent is set. It deliberately ignores
// safety signal, urgency, and tool flags; those belong to other gates.
//
// Redirect classification is an explicit opt-in, not a separate gate.
// With it enabled, a sword route triggers one extra model call to pick
// the engine mode (designer/runner) and an optional topic, and the gate
// returns action=redirect. Without it the gate always continues, for
// callers that cannot carry redirect semantics. Both variants compute
// the identical route.
type StanceGate struct {
	client           llm.LLMClient
	classifyRedirect bool
}

// StanceOption configures a StanceGate.
type StanceOption func(*StanceGate)

// WithRedirectClassification enables the sword-mode classification step
// and redirect actions.
func WithRedirectClassification() StanceOption {
	return func(g *StanceGate) { g.classifyRedirect = true }
}

// NewStanceGate creates the gate. The client is only used when redirect
// classification is enabled.
func NewStanceGate(client llm.LLMClient, opts ...StanceOption) *StanceGate {
	g := &StanceGate{client: client}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID implements Gate.
func (g *StanceGate) ID() string { return stanceGateID }

// Execute implements Gate. Never fails: a missing or partial intent
// summary routes with the defaults, and a failed mode classification
// degrades to continuing on the lens engine.
func (g *StanceGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(stanceGateID, func() (*GateResult, error) {
		intent := state.IntentOrDefault()

		result := &StanceResult{
			Route:          computeRoute(intent),
			PrimaryRoute:   intent.PrimaryRoute,
			LearningIntent: intent.LearningIntent,
		}
		state.Stance = result

		if !g.classifyRedirect || result.Route != RouteSword {
			return &GateResult{Status: GatePass, Action: ActionContinue, Output: result}, nil
		}

		redirect, err := g.classifySwordMode(ctx, state.RawInput)
		if err != nil {
			// The route stands; without a mode there is nothing to hand off,
			// so answer on the lens engine instead of failing the request.
			slog.Warn("sword mode classification failed, continuing on lens",
				"request_id", state.RequestID, "error", err)
			return &GateResult{Status: GateFail, Action: ActionContinue, Output: result}, nil
		}
		result.Redirect = redirect
		return &GateResult{Status: GatePass, Action: ActionRedirect, Output: result}, nil
	})
}

// computeRoute is the entire deterministic stance decision.
func computeRoute(intent *datatypes.IntentSummary) string {
	if intent.Stance == datatypes.StanceSword && intent.LearningIntent {
		return RouteSword
	}
	return RouteLens
}

func (g *StanceGate) classifySwordMode(ctx context.Context, message string) (*datatypes.RedirectDescriptor, error) {
	temp := float32(0.0)
	maxTokens := 128
	raw, err := g.client.Generate(ctx, fmt.Sprintf(swordModePrompt, message), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Mode  string `json:"mode"`
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse sword mode classification: %w", err)
	}
	if parsed.Mode != datatypes.SwordModeDesigner && parsed.Mode != datatypes.SwordModeRunner {
		return nil, fmt.Errorf("unrecognized sword mode %q", parsed.Mode)
	}
	return &datatypes.RedirectDescriptor{
		Target: datatypes.RedirectTargetSwordGate,
		Mode:   parsed.Mode,
		Topic:  parsed.Topic,
	}, nil
}

var _ Gate = (*StanceGate)(nil)
