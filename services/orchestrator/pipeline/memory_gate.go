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

	"github.com/MindGateAI/MindGateCore/services/orchestrator/memory"
)

const memoryGateID = "memory"

// MemoryGate persists the user and assistant turns to working memory.
// Skipped entirely for requests without a conversation; there is nothing
// to attach the turns to.
type MemoryGate struct {
	store memory.WorkingMemory
}

// NewMemoryGate creates the gate over the given store.
func NewMemoryGate(store memory.WorkingMemory) *MemoryGate {
	return &MemoryGate{store: store}
}

// ID implements Gate.
func (g *MemoryGate) ID() string { return memoryGateID }

// Execute implements Gate.
func (g *MemoryGate) Execute(ctx context.Context, state *State) (*GateResult, error) {
	return timeGate(memoryGateID, func() (*GateResult, error) {
		if state.ConversationID == "" {
			return &GateResult{Status: GatePass, Action: ActionContinue, Output: "no conversation"}, nil
		}
		if err := g.store.AddUserMessage(ctx, state.ConversationID, state.NormalizedInput); err != nil {
			return nil, fmt.Errorf("persist user turn: %w", err)
		}
		if err := g.store.AddAssistantMessage(ctx, state.ConversationID, state.ValidatedOutput); err != nil {
			return nil, fmt.Errorf("persist assistant turn: %w", err)
		}
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: "persisted"}, nil
	})
}

var _ Gate = (*MemoryGate)(nil)
