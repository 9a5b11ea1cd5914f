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
	"testing"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

func TestStanceGate_DeterministicRoute(t *testing.T) {
	// The route must depend on stance and learning intent alone; sweep
	// every combination of the fields it must ignore.
	signals := []string{"none", "low", "medium", "high"}
	bools := []bool{false, true}

	for _, stance := range []string{datatypes.StanceLens, datatypes.StanceSword, datatypes.StanceShield} {
		for _, learning := range bools {
			want := RouteLens
			if stance == datatypes.StanceSword && learning {
				want = RouteSword
			}
			for _, signal := range signals {
				for _, liveData := range bools {
					for _, tool := range bools {
						intent := &datatypes.IntentSummary{
							PrimaryRoute:   datatypes.RouteSay,
							Stance:         stance,
							SafetySignal:   signal,
							Urgency:        "high",
							LiveData:       liveData,
							ExternalTool:   tool,
							LearningIntent: learning,
						}
						if got := computeRoute(intent); got != want {
							t.Fatalf("route(%s, learning=%v, signal=%s, live=%v, tool=%v) = %q, want %q",
								stance, learning, signal, liveData, tool, got, want)
						}
					}
				}
			}
		}
	}
}

func TestStanceGate_Modes(t *testing.T) {
	ctx := context.Background()

	swordIntent := &datatypes.IntentSummary{
		PrimaryRoute:   datatypes.RouteSay,
		Stance:         datatypes.StanceSword,
		LearningIntent: true,
	}

	t.Run("without redirect classification always continues", func(t *testing.T) {
		gate := NewStanceGate(&fakeLLM{})
		state := NewState("r1", "u1", "", "teach me Go")
		state.Intent = swordIntent

		result, err := gate.Execute(ctx, state)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Action != ActionContinue {
			t.Errorf("action = %q, want continue", result.Action)
		}
		if state.Stance.Route != RouteSword {
			t.Errorf("route = %q, want sword", state.Stance.Route)
		}
		if state.Stance.Redirect != nil {
			t.Error("redirect must be unset without classification")
		}
	})

	t.Run("with redirect classification redirects on sword", func(t *testing.T) {
		client := &fakeLLM{swordJSON: `{"mode":"designer","topic":"goroutines"}`}
		gate := NewStanceGate(client, WithRedirectClassification())
		state := NewState("r1", "u1", "", "teach me Go")
		state.Intent = swordIntent

		result, err := gate.Execute(ctx, state)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Action != ActionRedirect {
			t.Fatalf("action = %q, want redirect", result.Action)
		}
		redirect := state.Stance.Redirect
		if redirect == nil || redirect.Target != datatypes.RedirectTargetSwordGate {
			t.Fatalf("redirect = %+v, want swordgate target", redirect)
		}
		if redirect.Mode != datatypes.SwordModeDesigner || redirect.Topic != "goroutines" {
			t.Errorf("redirect = %+v, want designer/goroutines", redirect)
		}
		if state.Stance.Route != RouteSword {
			t.Errorf("route = %q, want the same route as the plain variant", state.Stance.Route)
		}
	})

	t.Run("sword stance without learning intent stays on lens in both modes", func(t *testing.T) {
		intent := &datatypes.IntentSummary{
			Stance:         datatypes.StanceSword,
			LearningIntent: false,
		}
		for name, gate := range map[string]*StanceGate{
			"plain":    NewStanceGate(&fakeLLM{}),
			"redirect": NewStanceGate(&fakeLLM{}, WithRedirectClassification()),
		} {
			state := NewState("r1", "u1", "", "tell me about Go")
			state.Intent = intent

			result, err := gate.Execute(ctx, state)
			if err != nil {
				t.Fatalf("%s Execute failed: %v", name, err)
			}
			if state.Stance.Route != RouteLens || result.Action != ActionContinue {
				t.Errorf("%s: route=%q action=%q, want lens/continue", name, state.Stance.Route, result.Action)
			}
		}
	})

	t.Run("missing intent summary routes with defaults", func(t *testing.T) {
		gate := NewStanceGate(&fakeLLM{}, WithRedirectClassification())
		state := NewState("r1", "u1", "", "hello")
		// No intent set at all.

		result, err := gate.Execute(ctx, state)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if state.Stance.Route != RouteLens || result.Action != ActionContinue {
			t.Errorf("route=%q action=%q, want lens/continue on defaults", state.Stance.Route, result.Action)
		}
	})

	t.Run("failed mode classification degrades to lens continue", func(t *testing.T) {
		client := &fakeLLM{generateErr: fmt.Errorf("model offline")}
		gate := NewStanceGate(client, WithRedirectClassification())
		state := NewState("r1", "u1", "", "teach me Go")
		state.Intent = swordIntent

		result, err := gate.Execute(ctx, state)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Action != ActionContinue {
			t.Errorf("action = %q, want continue when classification fails", result.Action)
		}
		if state.Stance.Redirect != nil {
			t.Error("no redirect descriptor should survive a failed classification")
		}
	})
}
