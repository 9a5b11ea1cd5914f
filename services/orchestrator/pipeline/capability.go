// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"strings"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

const capabilityGateID = "capability"

const basePersona = "You are MindGate, a thoughtful conversational assistant. Be direct, warm, and concrete. Do not moralize."

// CapabilityGate turns the accumulated classifications into a
// generation plan: system prompt and sampling parameters tuned to the
// route and safety posture.
type CapabilityGate struct{}

// NewCapabilityGate creates the gate.
func NewCapabilityGate() *CapabilityGate { return &CapabilityGate{} }

// ID implements Gate.
func (g *CapabilityGate) ID() string { return capabilityGateID }

// Execute implements Gate.
func (g *CapabilityGate) Execute(_ context.Context, state *State) (*GateResult, error) {
	return timeGate(capabilityGateID, func() (*GateResult, error) {
		intent := state.IntentOrDefault()

		var prompt strings.Builder
		prompt.WriteString(basePersona)

		switch intent.PrimaryRoute {
		case datatypes.RouteMake:
			prompt.WriteString(" The user wants something created; produce the artifact itself, not a description of it.")
		case datatypes.RouteFix:
			prompt.WriteString(" The user wants something diagnosed or corrected; identify the problem before proposing the fix.")
		case datatypes.RouteDo:
			prompt.WriteString(" The user wants an action performed; you cannot act outside this conversation, so lay out the exact steps instead.")
		}

		if len(state.ToolHints) > 0 {
			prompt.WriteString(" You have no live data or tool access in this conversation; say so when the answer depends on it rather than guessing.")
		}

		if state.ShieldBypassed || signalAtLeastMedium(intent.SafetySignal) {
			prompt.WriteString(" The topic is consequential: be accurate, note the key risks once without repeating them, and suggest professional input where it genuinely matters.")
		}

		temp := float32(0.7)
		if intent.PrimaryRoute == datatypes.RouteFix {
			temp = 0.3
		}
		maxTokens := 2048

		state.Plan = &GenerationPlan{
			SystemPrompt: prompt.String(),
			Params: llm.GenerationParams{
				Temperature: &temp,
				MaxTokens:   &maxTokens,
			},
		}
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: state.Plan}, nil
	})
}

func signalAtLeastMedium(signal string) bool {
	return signal == datatypes.SignalMedium || signal == datatypes.SignalHigh
}

var _ Gate = (*CapabilityGate)(nil)
