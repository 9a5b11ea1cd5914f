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
)

const constitutionGateID = "constitution"

const constitutionPrompt = `You are a response reviewer. Judge whether the assistant response below is safe and appropriate for a user whose message was flagged as consequential. Respond with ONLY a JSON object, no prose:
{
  "approved": <bool>,
  "reason": "<one sentence when not approved, else empty>"
}

Reject only for: encouraging harm, presenting speculation as certainty on a
consequential decision, or dismissing the stakes. Do not reject for tone.

User message: %s

Assistant response: %s`

// ConstitutionGate validates a generated response after the fact.
//
// # Description
//
// On the validated path a rejection returns action=regenerate and the
// delivery loop re-runs the response gate, up to its cap. On the live
// path the verdict arrives after delivery, so it is logged and nothing
// more.
//
// # Limitations
//
// Fails open: if the reviewer call itself fails, the response is treated
// as approved and the failure logged. The reviewer is a second layer
// over an already-screened message; its outage must not take down
// delivery.
type ConstitutionGate struct {
	client llm.LLMClient
}

// NewConstitutionGate creates the gate over the given client.
func NewConstitutionGate(client llm.LLMClient) *ConstitutionGate {
	return &ConstitutionGate{client: client}
}

// ID implements Gate.
func (g *ConstitutionGate) ID() string { return constitutionGateID }

// Execute implements Gate.
func (g *ConstitutionGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(constitutionGateID, func() (*GateResult, error) {
		approved, reason, err := g.review(ctx, state.NormalizedInput, state.Generation)
		if err != nil {
			slog.Warn("constitution review failed, accepting response",
				"request_id", state.RequestID, "error", err)
			return &GateResult{Status: GateFail, Action: ActionContinue, Output: "review unavailable"}, nil
		}
		if approved {
			return &GateResult{Status: GatePass, Action: ActionContinue, Output: "approved"}, nil
		}
		slog.Info("constitution rejected response",
			"request_id", state.RequestID, "reason", reason,
			"regenerations", state.Regenerations)
		return &GateResult{Status: GateFail, Action: ActionRegenerate, Output: reason}, nil
	})
}

func (g *ConstitutionGate) review(ctx context.Context, message, response string) (bool, string, error) {
	temp := float32(0.0)
	maxTokens := 128
	raw, err := g.client.Generate(ctx, fmt.Sprintf(constitutionPrompt, message, response), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return false, "", err
	}

	var verdict struct {
		Approved bool   `json:"approved"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &verdict); err != nil {
		return false, "", fmt.Errorf("parse review verdict: %w", err)
	}
	return verdict.Approved, verdict.Reason, nil
}

var _ Gate = (*ConstitutionGate)(nil)
