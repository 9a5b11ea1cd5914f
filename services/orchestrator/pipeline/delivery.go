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
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/observability"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

const (
	// maxRegenerations caps validation-triggered re-generations. The cap
	// bounds worst-case latency: one initial generation plus at most two
	// more.
	maxRegenerations = 2

	// simulatedChunkRunes is the target chunk size when replaying
	// validated text as a stream.
	simulatedChunkRunes = 24

	// simulatedChunkDelay paces the replay so it reads as a stream rather
	// than one burst.
	simulatedChunkDelay = 15 * time.Millisecond
)

// Sink receives delivery output. The streaming handler backs it with the
// SSE writer; the buffered handler uses a no-op sink and reads the final
// text from the state.
//
// A sink error means the client is gone; delivery stops sending but
// still finishes validation and persistence.
type Sink interface {
	// Thinking signals that generation is underway before any text exists.
	Thinking(ctx context.Context) error

	// Token delivers one chunk of assistant text, in order.
	Token(ctx context.Context, content string) error
}

// NopSink discards delivery output (buffered endpoint).
type NopSink struct{}

func (NopSink) Thinking(context.Context) error      { return nil }
func (NopSink) Token(context.Context, string) error { return nil }

// validationPhase is the state of the generate-validate loop.
type validationPhase int

const (
	phaseGenerated validationPhase = iota
	phaseValidating
	phaseAccepted
	phaseRegenerating
)

// Delivery runs the generation tail of the pipeline with a risk-adaptive
// strategy.
//
// # Description
//
// High risk: generate buffered, validate, regenerate up to the cap, then
// persist and replay the settled text as a simulated stream. Low risk:
// stream live, then validate (log-only; the text is already delivered)
// and persist.
type Delivery struct {
	response     *ResponseGate
	constitution *ConstitutionGate
	memoryGate   *MemoryGate
}

// NewDelivery wires the delivery strategy from its gates.
func NewDelivery(response *ResponseGate, constitution *ConstitutionGate, memoryGate *MemoryGate) *Delivery {
	return &Delivery{response: response, constitution: constitution, memoryGate: memoryGate}
}

// Run executes the strategy for the state's risk tier. On return,
// state.ValidatedOutput holds the delivered text.
func (d *Delivery) Run(ctx context.Context, state *State, sink Sink) error {
	if isHighRisk(state) {
		return d.runValidated(ctx, state, sink)
	}
	return d.runLive(ctx, state, sink)
}

// isHighRisk selects the validate-then-deliver path: flagged messages
// and consent replays (the signal that caused the warning still applies).
func isHighRisk(state *State) bool {
	if state.ShieldBypassed {
		return true
	}
	return signalAtLeastMedium(state.IntentOrDefault().SafetySignal)
}

// runValidated is the high-risk path.
func (d *Delivery) runValidated(ctx context.Context, state *State, sink Sink) error {
	// Keep-alive before any generation; intermediaries drop idle
	// connections well within a slow generation.
	if err := sink.Thinking(ctx); err != nil {
		slog.Warn("client gone before generation", "request_id", state.RequestID, "error", err)
		sink = NopSink{}
	}

	phase := phaseRegenerating // entering the loop generates first
	for phase != phaseAccepted {
		switch phase {
		case phaseRegenerating:
			result, err := d.response.Execute(ctx, state)
			if err != nil {
				return fmt.Errorf("%w: response: %v", ErrGateFailed, err)
			}
			state.RecordGateResult(result)
			observability.GateOutcomes.WithLabelValues(result.GateID, string(result.Action)).Inc()
			phase = phaseGenerated

		case phaseGenerated:
			phase = phaseValidating

		case phaseValidating:
			result, err := d.constitution.Execute(ctx, state)
			if err != nil {
				return fmt.Errorf("%w: constitution: %v", ErrGateFailed, err)
			}
			state.RecordGateResult(result)
			observability.GateOutcomes.WithLabelValues(result.GateID, string(result.Action)).Inc()

			switch result.Action {
			case ActionRegenerate:
				if state.Regenerations >= maxRegenerations {
					// Cap hit: the last generation ships regardless, flagged
					// as degraded.
					slog.Warn("regeneration cap reached, delivering last attempt",
						"request_id", state.RequestID)
					state.Degraded = true
					phase = phaseAccepted
					break
				}
				state.Regenerations++
				observability.RegenerationsTotal.Inc()
				phase = phaseRegenerating
			case ActionContinue:
				phase = phaseAccepted
			case ActionHalt, ActionRedirect:
				return fmt.Errorf("%w: constitution returned unexpected action %q", ErrGateFailed, result.Action)
			default:
				return fmt.Errorf("%w: unknown gate action %q", ErrGateFailed, result.Action)
			}
		}
	}

	state.ValidatedOutput = state.Generation
	if err := d.persist(ctx, state); err != nil {
		return err
	}
	d.simulateStream(ctx, state.ValidatedOutput, sink)
	return nil
}

// runLive is the low-risk path.
func (d *Delivery) runLive(ctx context.Context, state *State, sink Sink) error {
	result, err := d.response.ExecuteStream(ctx, state, func(event llm.StreamEvent) error {
		switch event.Type {
		case llm.StreamEventToken:
			return sink.Token(ctx, event.Content)
		case llm.StreamEventThinking:
			return sink.Thinking(ctx)
		case llm.StreamEventError:
			return fmt.Errorf("backend stream error: %s", event.Error)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: response stream: %v", ErrGateFailed, err)
	}
	state.RecordGateResult(result)
	observability.GateOutcomes.WithLabelValues(result.GateID, string(result.Action)).Inc()
	state.ValidatedOutput = state.Generation

	// Already delivered; the verdict can only be logged.
	verdict, err := d.constitution.Execute(ctx, state)
	if err != nil {
		slog.Warn("post-delivery validation failed", "request_id", state.RequestID, "error", err)
	} else {
		state.RecordGateResult(verdict)
		observability.GateOutcomes.WithLabelValues(verdict.GateID, string(verdict.Action)).Inc()
		if verdict.Action == ActionRegenerate {
			slog.Warn("post-delivery validation rejected a delivered response",
				"request_id", state.RequestID, "reason", verdict.Output)
		}
	}

	return d.persist(ctx, state)
}

func (d *Delivery) persist(ctx context.Context, state *State) error {
	result, err := d.memoryGate.Execute(ctx, state)
	if err != nil {
		return fmt.Errorf("%w: memory: %v", ErrGateFailed, err)
	}
	state.RecordGateResult(result)
	observability.GateOutcomes.WithLabelValues(result.GateID, string(result.Action)).Inc()
	return nil
}

// simulateStream replays settled text as ordered chunks. Sink errors
// stop the replay; the text is already validated and persisted.
func (d *Delivery) simulateStream(ctx context.Context, text string, sink Sink) {
	for _, chunk := range chunkText(text, simulatedChunkRunes) {
		if err := sink.Token(ctx, chunk); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(simulatedChunkDelay):
		}
	}
}

// chunkText splits text into chunks of roughly size runes, breaking on
// word boundaries where one exists.
func chunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	var current strings.Builder
	for _, word := range strings.SplitAfter(text, " ") {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(word) > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// shieldAction is a label helper for metrics on halt results.
func shieldAction(eval *shield.Evaluation) string {
	if eval == nil {
		return "unknown"
	}
	return string(eval.Action)
}

// statusForShield maps a halting shield verdict onto the terminal
// response status.
func statusForShield(eval *shield.Evaluation) string {
	if eval != nil && eval.Action == shield.ActionCrisis {
		return datatypes.StatusBlocked
	}
	return datatypes.StatusStopped
}
