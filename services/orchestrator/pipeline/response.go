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
	"strings"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

const responseGateID = "response"

// fallbackResponse is served when the model is unreachable. The request
// still completes; the terminal status becomes "degraded".
const fallbackResponse = "I'm having trouble generating a response right now. Please try again in a moment."

// ResponseGate produces the assistant text.
//
// # Description
//
// Execute is the buffered variant used on the validated path: one full
// generation into state.Generation. ExecuteStream is the live variant
// used on the low-risk path: tokens go to the callback as they arrive
// and the assembled text lands in state.Generation afterwards.
//
// # Limitations
//
// Buffered generation falls back to a canned message on provider errors
// (the gate's documented fallback). Streaming cannot: once tokens may
// have been delivered there is nothing safe to substitute, so stream
// errors surface to the caller.
type ResponseGate struct {
	client llm.LLMClient
}

// NewResponseGate creates the gate over the given client.
func NewResponseGate(client llm.LLMClient) *ResponseGate {
	return &ResponseGate{client: client}
}

// ID implements Gate.
func (g *ResponseGate) ID() string { return responseGateID }

// Execute implements Gate (buffered generation).
func (g *ResponseGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(responseGateID, func() (*GateResult, error) {
		text, err := g.client.Chat(ctx, g.buildMessages(state), g.params(state))
		if err != nil {
			slog.Error("response generation failed, serving fallback",
				"request_id", state.RequestID, "error", err)
			state.Generation = fallbackResponse
			state.Degraded = true
			return &GateResult{Status: GateFail, Action: ActionContinue, Output: fallbackResponse}, nil
		}
		state.Generation = strings.TrimSpace(text)
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: state.Generation}, nil
	})
}

// ExecuteStream streams the generation through callback and records the
// assembled text on the state.
func (g *ResponseGate) ExecuteStream(ctx context.Context, state *State, callback llm.StreamCallback) (*GateResult, error) {
	return timeGate(responseGateID, func() (*GateResult, error) {
		var assembled strings.Builder
		err := g.client.ChatStream(ctx, g.buildMessages(state), g.params(state), func(event llm.StreamEvent) error {
			if event.Type == llm.StreamEventToken {
				assembled.WriteString(event.Content)
			}
			return callback(event)
		})
		if err != nil {
			return nil, err
		}
		state.Generation = strings.TrimSpace(assembled.String())
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: state.Generation}, nil
	})
}

func (g *ResponseGate) buildMessages(state *State) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(state.History)+2)
	if state.Plan != nil && state.Plan.SystemPrompt != "" {
		messages = append(messages, datatypes.Message{Role: "system", Content: state.Plan.SystemPrompt})
	}
	messages = append(messages, state.History...)
	messages = append(messages, datatypes.Message{Role: "user", Content: state.NormalizedInput})
	return messages
}

func (g *ResponseGate) params(state *State) llm.GenerationParams {
	if state.Plan != nil {
		return state.Plan.Params
	}
	return llm.GenerationParams{}
}

var _ Gate = (*ResponseGate)(nil)
