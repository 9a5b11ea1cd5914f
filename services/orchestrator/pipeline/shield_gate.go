// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

const shieldGateID = "shield"

// ShieldGate applies the Safety Shield policy inside the pipeline.
//
// # Description
//
// Skips evaluation entirely on a consent replay (ShieldBypassed). A warn
// or crisis verdict halts the pipeline; the orchestrator turns the
// evaluation into the terminal stopped/blocked result. On a warn with a
// staged activation, an ack token is minted here so the client can prove
// consent on the follow-up request.
//
// # Limitations
//
// The shield's own contract fails toward caution; the only error this
// gate surfaces is a crisis-store failure, which is fatal.
type ShieldGate struct {
	svc *shield.Service
}

// NewShieldGate creates the gate over the shield service.
func NewShieldGate(svc *shield.Service) *ShieldGate {
	return &ShieldGate{svc: svc}
}

// ID implements Gate.
func (g *ShieldGate) ID() string { return shieldGateID }

// Execute implements Gate.
func (g *ShieldGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(shieldGateID, func() (*GateResult, error) {
		if state.ShieldBypassed {
			return &GateResult{Status: GatePass, Action: ActionContinue, Output: "bypassed"}, nil
		}

		intent := state.IntentOrDefault()
		eval, err := g.svc.Evaluate(ctx, shield.EvaluateInput{
			UserID:         state.UserID,
			Message:        state.NormalizedInput,
			SafetySignal:   intent.SafetySignal,
			Urgency:        intent.Urgency,
			ConversationID: state.ConversationID,
			Intent:         intent,
		})
		if err != nil {
			return nil, err
		}
		state.ShieldEval = eval

		switch eval.Action {
		case shield.ActionSkip:
			return &GateResult{Status: GatePass, Action: ActionContinue, Output: eval}, nil
		case shield.ActionWarn:
			if eval.ActivationID != "" {
				token, err := g.svc.Acks().Issue(ctx, state.UserID)
				if err != nil {
					// The warning still reaches the user; consent just needs a
					// resend instead of a token redeem.
					slog.Error("ack token issue failed", "request_id", state.RequestID, "error", err)
				} else {
					state.AckToken = token
				}
			}
			return &GateResult{Status: GatePass, Action: ActionHalt, Output: eval}, nil
		case shield.ActionCrisis:
			return &GateResult{Status: GatePass, Action: ActionHalt, Output: eval}, nil
		default:
			return &GateResult{Status: GateFail, Action: ActionHalt, Output: eval}, nil
		}
	})
}

var _ Gate = (*ShieldGate)(nil)
