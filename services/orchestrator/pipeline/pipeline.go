// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/memory"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/observability"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// Prompts accompanying a redirect decision. The client renders them as
// the confirm/cancel choices for the handoff.
const (
	redirectConfirmPrompt = "Yes, set up a learning session"
	redirectCancelPrompt  = "No thanks, just answer here"
)

// Input is one message entering the pipeline.
type Input struct {
	RequestID      string
	UserID         string
	ConversationID string
	Message        string

	// ShieldBypassed marks a consent replay; the shield gate passes
	// through and delivery stays on the validated path.
	ShieldBypassed bool
}

// Result is the terminal outcome of one pipeline run. Handlers translate
// it into the buffered JSON body or the closing SSE events.
type Result struct {
	Status           string
	Response         string
	Stance           string
	Redirect         *datatypes.RedirectDescriptor
	ConfirmPrompt    string
	CancelPrompt     string
	WarningMessage   string
	ActivationID     string
	AckToken         string
	RiskAssessment   *datatypes.RiskAssessment
	SessionID        string
	GateResults      []datatypes.GateResultDTO
	ProcessingTimeMs int64
}

// Pipeline sequences the gates and applies their control-flow signals.
type Pipeline struct {
	intent     *IntentGate
	shield     *ShieldGate
	tools      *ToolsGate
	stance     *StanceGate
	capability *CapabilityGate
	delivery   *Delivery
	history    memory.WorkingMemory
}

// New wires the standard pipeline: intent, shield, tools, stance (with
// redirect classification), capability, then risk-adaptive delivery.
func New(client llm.LLMClient, shieldSvc *shield.Service, workingMemory memory.WorkingMemory) *Pipeline {
	responseGate := NewResponseGate(client)
	return &Pipeline{
		intent:     NewIntentGate(client),
		shield:     NewShieldGate(shieldSvc),
		tools:      NewToolsGate(),
		stance:     NewStanceGate(client, WithRedirectClassification()),
		capability: NewCapabilityGate(),
		delivery:   NewDelivery(responseGate, NewConstitutionGate(client), NewMemoryGate(workingMemory)),
		history:    workingMemory,
	}
}

// Process runs one message through the pipeline, delivering text through
// sink and returning the terminal result.
//
// # Outputs
//
// Errors are 500-class: a gate failed outside its documented fallback.
// Every policy outcome (blocked, stopped, redirect) is a Result, not an
// error.
func (p *Pipeline) Process(ctx context.Context, in Input, sink Sink) (*Result, error) {
	ctx, span := otel.Tracer("mindgate.pipeline").Start(ctx, "pipeline.process")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", in.RequestID))

	state := NewState(in.RequestID, in.UserID, in.ConversationID, in.Message)
	state.ShieldBypassed = in.ShieldBypassed

	// History is loaded fresh per run; replays must see the turns that
	// landed since the original request.
	if in.ConversationID != "" {
		history, err := p.history.GetMessages(ctx, in.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("%w: load history: %v", ErrGateFailed, err)
		}
		state.History = history
	}

	for _, gate := range []Gate{p.intent, p.shield, p.tools, p.stance, p.capability} {
		result, err := gate.Execute(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrGateFailed, gate.ID(), err)
		}
		state.RecordGateResult(result)
		observability.GateOutcomes.WithLabelValues(result.GateID, string(result.Action)).Inc()

		switch result.Action {
		case ActionContinue:
			// next gate
		case ActionHalt:
			if gate.ID() == shieldGateID {
				observability.ShieldActions.WithLabelValues(shieldAction(state.ShieldEval)).Inc()
			}
			return p.haltResult(state), nil
		case ActionRedirect:
			return p.redirectResult(state), nil
		case ActionRegenerate:
			// Only the validation loop may ask for regeneration.
			return nil, fmt.Errorf("%w: %s returned regenerate outside the validation loop", ErrGateFailed, gate.ID())
		default:
			return nil, fmt.Errorf("%w: %s returned unknown action %q", ErrGateFailed, gate.ID(), result.Action)
		}
	}

	if err := p.delivery.Run(ctx, state, sink); err != nil {
		return nil, err
	}

	status := datatypes.StatusSuccess
	if state.Degraded {
		status = datatypes.StatusDegraded
	}
	result := p.baseResult(state, status)
	result.Response = state.ValidatedOutput
	return result, nil
}

// haltResult maps a halting gate onto the terminal stopped/blocked
// result. Only the shield halts today; an unknown halter degrades to a
// bare stopped status.
func (p *Pipeline) haltResult(state *State) *Result {
	eval := state.ShieldEval
	result := p.baseResult(state, statusForShield(eval))
	if eval == nil {
		slog.Warn("pipeline halted without a shield evaluation", "request_id", state.RequestID)
		return result
	}
	switch eval.Action {
	case shield.ActionCrisis:
		result.SessionID = eval.SessionID
	case shield.ActionWarn:
		result.WarningMessage = eval.WarningMessage
		result.ActivationID = eval.ActivationID
		result.AckToken = state.AckToken
		result.RiskAssessment = eval.RiskAssessment
	}
	return result
}

// redirectResult maps a stance redirect onto the pending-confirmation
// result. No assistant text is generated or persisted for this turn.
func (p *Pipeline) redirectResult(state *State) *Result {
	result := p.baseResult(state, datatypes.StatusPendingConfirmation)
	if state.Stance != nil {
		result.Redirect = state.Stance.Redirect
	}
	result.ConfirmPrompt = redirectConfirmPrompt
	result.CancelPrompt = redirectCancelPrompt
	return result
}

func (p *Pipeline) baseResult(state *State, status string) *Result {
	result := &Result{
		Status:           status,
		GateResults:      state.GateResultDTOs(),
		ProcessingTimeMs: time.Since(state.StartedAt).Milliseconds(),
	}
	if state.Stance != nil {
		result.Stance = state.Stance.Route
	}
	return result
}
