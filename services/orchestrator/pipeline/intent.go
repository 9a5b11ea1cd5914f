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
	"strings"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

const intentGateID = "intent"

const intentPrompt = `Classify the user message below. Respond with ONLY a JSON object, no prose:
{
  "primary_route": "<SAY|MAKE|FIX|DO>",
  "stance": "<LENS|SWORD|SHIELD>",
  "safety_signal": "<none|low|medium|high>",
  "urgency": "<low|medium|high>",
  "live_data": <bool>,
  "external_tool": <bool>,
  "learning_intent": <bool>
}

SAY = answer/explain, MAKE = create content, FIX = debug/correct, DO = perform an action.
LENS = direct answer, SWORD = user wants structured learning, SHIELD = safety-sensitive topic.
safety_signal "medium" = consequential real-world decision (money, health, legal);
"high" = indications of crisis or danger to self/others.

User message: %s`

// IntentGate classifies the message into an IntentSummary.
//
// # Limitations
//
// Classification failures never fail the request: a provider error or
// malformed JSON yields the documented defaults (SAY/LENS, no signal),
// and the gate reports status fail with action continue so the result
// trail shows the degradation.
type IntentGate struct {
	client llm.LLMClient
}

// NewIntentGate creates the gate over the given client.
func NewIntentGate(client llm.LLMClient) *IntentGate {
	return &IntentGate{client: client}
}

// ID implements Gate.
func (g *IntentGate) ID() string { return intentGateID }

// Execute implements Gate.
func (g *IntentGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(intentGateID, func() (*GateResult, error) {
		summary, err := g.classify(ctx, state.NormalizedInput)
		if err != nil {
			slog.Warn("intent classification failed, using defaults",
				"request_id", state.RequestID, "error", err)
			state.Intent = datatypes.DefaultIntentSummary()
			return &GateResult{Status: GateFail, Action: ActionContinue, Output: state.Intent}, nil
		}
		state.Intent = summary
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: summary}, nil
	})
}

func (g *IntentGate) classify(ctx context.Context, message string) (*datatypes.IntentSummary, error) {
	temp := float32(0.0)
	maxTokens := 256
	raw, err := g.client.Generate(ctx, fmt.Sprintf(intentPrompt, message), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}

	var summary datatypes.IntentSummary
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &summary); err != nil {
		return nil, fmt.Errorf("parse intent classification: %w", err)
	}
	summary.Normalize()
	if !validSignal(summary.SafetySignal) {
		// Classifier drift: unknown labels are treated as unflagged rather
		// than guessed at.
		summary.SafetySignal = datatypes.SignalNone
	}
	return &summary, nil
}

func validSignal(signal string) bool {
	switch signal {
	case datatypes.SignalNone, datatypes.SignalLow, datatypes.SignalMedium, datatypes.SignalHigh:
		return true
	}
	return false
}

// extractJSONObject returns the first top-level JSON object in s,
// tolerating markdown fences and surrounding prose.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

var _ Gate = (*IntentGate)(nil)
