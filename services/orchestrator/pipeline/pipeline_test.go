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
	"sync"
	"testing"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/kv"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/memory"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// =============================================================================
// Test doubles
// =============================================================================

// fakeLLM routes on distinctive prompt fragments so one double serves
// every gate.
type fakeLLM struct {
	mu          sync.Mutex
	intentJSON  string
	swordJSON   string
	chatText    string
	generateErr error
	rejectAll   bool
	chatCalls   int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	if f.generateErr != nil {
		return "", f.generateErr
	}
	switch {
	case strings.Contains(prompt, "Classify the user message below"):
		if f.intentJSON == "" {
			return `{"primary_route":"SAY","stance":"LENS","safety_signal":"none"}`, nil
		}
		return f.intentJSON, nil
	case strings.Contains(prompt, "structured learning"):
		return f.swordJSON, nil
	case strings.Contains(prompt, "response reviewer"):
		if f.rejectAll {
			return `{"approved":false,"reason":"needs more care"}`, nil
		}
		return `{"approved":true,"reason":""}`, nil
	case strings.Contains(prompt, "check-in message"):
		return "A quick check-in before we continue.", nil
	}
	return "", nil
}

func (f *fakeLLM) Chat(context.Context, []datatypes.Message, llm.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	return f.text(), nil
}

func (f *fakeLLM) ChatStream(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams, callback llm.StreamCallback) error {
	f.mu.Lock()
	f.chatCalls++
	f.mu.Unlock()
	for _, word := range strings.SplitAfter(f.text(), " ") {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: word}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) text() string {
	if f.chatText == "" {
		return "Here is a considered answer."
	}
	return f.chatText
}

type fakeAssessor struct{}

func (fakeAssessor) Assess(context.Context, string, string, string) (*datatypes.RiskAssessment, error) {
	return &datatypes.RiskAssessment{Domain: "financial", RiskExplanation: "irreversible transfer"}, nil
}

// collectSink records delivery output and ordering.
type collectSink struct {
	thinking int
	tokens   []string
	order    []string
}

func (c *collectSink) Thinking(context.Context) error {
	c.thinking++
	c.order = append(c.order, "thinking")
	return nil
}

func (c *collectSink) Token(_ context.Context, content string) error {
	c.tokens = append(c.tokens, content)
	c.order = append(c.order, "token")
	return nil
}

func newTestPipeline(client *fakeLLM) (*Pipeline, *memory.InMemoryWorkingMemory) {
	store := kv.NewMemoryStore()
	svc := shield.NewService(client, fakeAssessor{}, shield.NewInMemoryCrisisStore(),
		shield.NewPendingStore(store), shield.NewAckIssuer(store), nil)
	wm := memory.NewInMemoryWorkingMemory()
	return New(client, svc, wm), wm
}

// =============================================================================
// Terminal statuses
// =============================================================================

func TestPipeline_LowRiskStreamsLive(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{chatText: "The answer is forty two."}
	p, wm := newTestPipeline(client)
	sink := &collectSink{}

	result, err := p.Process(ctx, Input{
		RequestID:      "r1",
		UserID:         "u1",
		ConversationID: "conv1",
		Message:        "what is the answer?",
	}, sink)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Status != datatypes.StatusSuccess {
		t.Errorf("status = %q, want success", result.Status)
	}
	if result.Response != "The answer is forty two." {
		t.Errorf("response = %q, want the generated text", result.Response)
	}
	if result.Stance != RouteLens {
		t.Errorf("stance = %q, want lens", result.Stance)
	}
	if got := strings.Join(sink.tokens, ""); got != "The answer is forty two." {
		t.Errorf("streamed text = %q, want the full answer in order", got)
	}

	msgs, _ := wm.GetMessages(ctx, "conv1")
	if len(msgs) != 2 || msgs[1].Role != "assistant" {
		t.Errorf("working memory = %+v, want user and assistant turns", msgs)
	}
}

func TestPipeline_MediumSignalStops(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium","urgency":"medium"}`}
	p, wm := newTestPipeline(client)

	result, err := p.Process(ctx, Input{
		RequestID:      "r1",
		UserID:         "u1",
		ConversationID: "conv1",
		Message:        "should I invest my savings?",
	}, &collectSink{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Status != datatypes.StatusStopped {
		t.Fatalf("status = %q, want stopped", result.Status)
	}
	if result.WarningMessage == "" {
		t.Error("warn result must carry a warning message")
	}
	if result.ActivationID == "" {
		t.Error("warn with a conversation must carry an activation id")
	}
	if result.AckToken == "" {
		t.Error("warn with an activation must carry an ack token")
	}
	if result.Response != "" {
		t.Error("no assistant text may accompany a stopped status")
	}

	msgs, _ := wm.GetMessages(ctx, "conv1")
	if len(msgs) != 0 {
		t.Errorf("working memory has %d turns, want none for a stopped run", len(msgs))
	}
}

func TestPipeline_HighSignalBlocks(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{intentJSON: `{"primary_route":"SAY","stance":"SHIELD","safety_signal":"high"}`}
	p, _ := newTestPipeline(client)

	result, err := p.Process(ctx, Input{
		RequestID: "r1",
		UserID:    "u1",
		Message:   "I can't do this anymore",
	}, &collectSink{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Status != datatypes.StatusBlocked {
		t.Fatalf("status = %q, want blocked", result.Status)
	}
	if result.SessionID == "" {
		t.Error("blocked result must carry the crisis session id")
	}
	if result.ActivationID != "" {
		t.Error("high tier must not stage a pending message")
	}
}

func TestPipeline_SwordRedirectsForConfirmation(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{
		intentJSON: `{"primary_route":"SAY","stance":"SWORD","safety_signal":"none","learning_intent":true}`,
		swordJSON:  `{"mode":"runner","topic":"algebra"}`,
	}
	p, wm := newTestPipeline(client)

	result, err := p.Process(ctx, Input{
		RequestID:      "r1",
		UserID:         "u1",
		ConversationID: "conv1",
		Message:        "help me practice algebra",
	}, &collectSink{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Status != datatypes.StatusPendingConfirmation {
		t.Fatalf("status = %q, want pending_confirmation", result.Status)
	}
	if result.Redirect == nil || result.Redirect.Mode != datatypes.SwordModeRunner {
		t.Fatalf("redirect = %+v, want runner mode", result.Redirect)
	}
	if result.ConfirmPrompt == "" || result.CancelPrompt == "" {
		t.Error("redirect must carry confirm and cancel prompts")
	}
	if result.Response != "" {
		t.Error("no assistant text may accompany a redirect")
	}

	msgs, _ := wm.GetMessages(ctx, "conv1")
	if len(msgs) != 0 {
		t.Errorf("working memory has %d turns, want none for a redirected run", len(msgs))
	}
}

func TestPipeline_ReplayBypassesShield(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium","urgency":"medium"}`,
		chatText:   "Carefully then: here is what to weigh.",
	}
	p, _ := newTestPipeline(client)
	sink := &collectSink{}

	result, err := p.Process(ctx, Input{
		RequestID:      "r2",
		UserID:         "u1",
		ConversationID: "conv1",
		Message:        "should I invest my savings?",
		ShieldBypassed: true,
	}, sink)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Status != datatypes.StatusSuccess {
		t.Fatalf("status = %q, want success on replay", result.Status)
	}
	if result.Response == "" {
		t.Fatal("replay must produce assistant text")
	}
	if sink.thinking == 0 {
		t.Error("validated path must emit a thinking event before tokens")
	}
	if len(sink.order) > 0 && sink.order[0] != "thinking" {
		t.Errorf("first sink event = %q, want thinking before any token", sink.order[0])
	}
	if got := strings.Join(sink.tokens, ""); got != result.Response {
		t.Errorf("simulated stream = %q, want the validated text %q", got, result.Response)
	}
}

// =============================================================================
// Regeneration loop
// =============================================================================

func TestDelivery_RegenerationCap(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{rejectAll: true, chatText: "Attempted answer."}
	delivery := NewDelivery(NewResponseGate(client), NewConstitutionGate(client),
		NewMemoryGate(memory.NewInMemoryWorkingMemory()))

	state := NewState("r1", "u1", "conv1", "should I invest my savings?")
	state.Intent = &datatypes.IntentSummary{
		PrimaryRoute: datatypes.RouteSay,
		Stance:       datatypes.StanceLens,
		SafetySignal: datatypes.SignalMedium,
	}

	if err := delivery.Run(ctx, state, NopSink{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if client.chatCalls != 3 {
		t.Errorf("generations = %d, want exactly 3 (1 initial + 2 regenerations)", client.chatCalls)
	}
	if !state.Degraded {
		t.Error("hitting the cap must mark the run degraded")
	}
	if state.ValidatedOutput != "Attempted answer." {
		t.Errorf("validated output = %q, want the last generation regardless", state.ValidatedOutput)
	}
}

func TestDelivery_AcceptsFirstApproval(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{chatText: "Fine answer."}
	delivery := NewDelivery(NewResponseGate(client), NewConstitutionGate(client),
		NewMemoryGate(memory.NewInMemoryWorkingMemory()))

	state := NewState("r1", "u1", "", "should I invest my savings?")
	state.Intent = &datatypes.IntentSummary{SafetySignal: datatypes.SignalMedium}

	if err := delivery.Run(ctx, state, NopSink{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if client.chatCalls != 1 {
		t.Errorf("generations = %d, want 1 when the first attempt passes", client.chatCalls)
	}
	if state.Degraded {
		t.Error("an approved first attempt is not degraded")
	}
}

// =============================================================================
// Chunking
// =============================================================================

func TestChunkText(t *testing.T) {
	t.Run("chunks reassemble to the original text", func(t *testing.T) {
		text := strings.Repeat("all work and no play makes a dull assistant ", 8)
		chunks := chunkText(text, simulatedChunkRunes)
		if len(chunks) < 2 {
			t.Fatalf("got %d chunks for long text, want several", len(chunks))
		}
		if got := strings.Join(chunks, ""); got != text {
			t.Errorf("reassembled = %q, want original", got)
		}
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		if chunks := chunkText("", simulatedChunkRunes); chunks != nil {
			t.Errorf("got %v, want nil", chunks)
		}
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		chunks := chunkText("hi there", simulatedChunkRunes)
		if len(chunks) != 1 || chunks[0] != "hi there" {
			t.Errorf("got %v, want one exact chunk", chunks)
		}
	})
}
