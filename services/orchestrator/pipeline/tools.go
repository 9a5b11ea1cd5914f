// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import "context"

const toolsGateID = "tools"

// ToolsGate annotates the state with the tool capabilities the intent
// asks for. Actual tool execution belongs to downstream engines; this
// gate only records hints the capability gate folds into the generation
// plan, so the model knows what it cannot do live.
type ToolsGate struct{}

// NewToolsGate creates the gate.
func NewToolsGate() *ToolsGate { return &ToolsGate{} }

// ID implements Gate.
func (g *ToolsGate) ID() string { return toolsGateID }

// Execute implements Gate.
func (g *ToolsGate) Execute(_ context.Context, state *State) (*GateResult, error) {
	return timeGate(toolsGateID, func() (*GateResult, error) {
		intent := state.IntentOrDefault()
		var hints []string
		if intent.LiveData {
			hints = append(hints, "live_data")
		}
		if intent.ExternalTool {
			hints = append(hints, "external_tool")
		}
		state.ToolHints = hints
		return &GateResult{Status: GatePass, Action: ActionContinue, Output: hints}, nil
	})
}

var _ Gate = (*ToolsGate)(nil)
