// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/kv"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/memory"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/middleware"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLM routes on distinctive prompt fragments so one double serves
// every gate the handlers exercise.
type mockLLM struct {
	intentJSON string
	chatText   string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	switch {
	case strings.Contains(prompt, "Classify the user message below"):
		if m.intentJSON == "" {
			return `{"primary_route":"SAY","stance":"LENS","safety_signal":"none"}`, nil
		}
		return m.intentJSON, nil
	case strings.Contains(prompt, "structured learning"):
		return `{"mode":"designer","topic":"general"}`, nil
	case strings.Contains(prompt, "response reviewer"):
		return `{"approved":true,"reason":""}`, nil
	case strings.Contains(prompt, "check-in message"):
		return "A quick check-in before we continue.", nil
	}
	return "", nil
}

func (m *mockLLM) Chat(context.Context, []datatypes.Message, llm.GenerationParams) (string, error) {
	return m.text(), nil
}

func (m *mockLLM) ChatStream(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams, callback llm.StreamCallback) error {
	for _, word := range strings.SplitAfter(m.text(), " ") {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: word}); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockLLM) text() string {
	if m.chatText == "" {
		return "Here is a considered answer."
	}
	return m.chatText
}

type mockAssessor struct{}

func (mockAssessor) Assess(context.Context, string, string, string) (*datatypes.RiskAssessment, error) {
	return &datatypes.RiskAssessment{Domain: "financial", RiskExplanation: "irreversible transfer"}, nil
}

// testDeps bundles the wired service graph behind a test router.
type testDeps struct {
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	shield   *shield.Service
}

// newTestDeps wires a full handler stack on in-memory stores. Every
// request authenticates as the fixed local user.
func newTestDeps(client *mockLLM) *testDeps {
	store := kv.NewMemoryStore()
	shieldSvc := shield.NewService(client, mockAssessor{}, shield.NewInMemoryCrisisStore(),
		shield.NewPendingStore(store), shield.NewAckIssuer(store), nil)
	pl := pipeline.New(client, shieldSvc, memory.NewInMemoryWorkingMemory())

	router := gin.New()
	audit := &extensions.NopAuditLogger{}
	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(&extensions.NopAuthProvider{}))
	{
		v1.POST("/chat", HandleChat(pl, shieldSvc, audit))
		v1.POST("/chat/stream", HandleChatStream(pl, shieldSvc))
		v1.POST("/shield/confirm", HandleShieldConfirm(pl, shieldSvc))
		v1.POST("/shield/resolve", HandleShieldResolve(shieldSvc))
	}
	return &testDeps{router: router, pipeline: pl, shield: shieldSvc}
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeChatResponse(t *testing.T, w *httptest.ResponseRecorder) *datatypes.ChatResponse {
	t.Helper()
	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

// =============================================================================
// HandleChat Tests
// =============================================================================

// TestHandleChat_Success verifies a benign message flows through the
// full gate sequence and returns the assistant text.
func TestHandleChat_Success(t *testing.T) {
	deps := newTestDeps(&mockLLM{chatText: "The capital of France is Paris."})

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message:        "What is the capital of France?",
		ConversationID: "conv-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChatResponse(t, w)
	assert.Equal(t, datatypes.StatusSuccess, resp.Status)
	assert.Equal(t, "The capital of France is Paris.", resp.Response)
	assert.Equal(t, "lens", resp.Stance)
	assert.NotEmpty(t, resp.GateResults)
}

// TestHandleChat_InvalidJSON verifies malformed bodies return 400.
func TestHandleChat_InvalidJSON(t *testing.T) {
	deps := newTestDeps(&mockLLM{})

	req, _ := http.NewRequest("POST", "/v1/chat", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	deps.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleChat_MissingMessage verifies validation rejects an empty
// message before the pipeline runs.
func TestHandleChat_MissingMessage(t *testing.T) {
	deps := newTestDeps(&mockLLM{})

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		ConversationID: "conv-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleChat_MediumSignalStops verifies a consequential message
// returns stopped with everything the client needs to confirm.
func TestHandleChat_MediumSignalStops(t *testing.T) {
	deps := newTestDeps(&mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium"}`,
	})

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message:        "Should I move my savings into a single stock?",
		ConversationID: "conv-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChatResponse(t, w)
	assert.Equal(t, datatypes.StatusStopped, resp.Status)
	assert.NotEmpty(t, resp.WarningMessage)
	assert.NotEmpty(t, resp.ActivationID)
	assert.NotEmpty(t, resp.AckToken)
	assert.Empty(t, resp.Response)
}

// TestHandleChat_OpenCrisisBlocks verifies that once a crisis session is
// open, every subsequent request is blocked before the pipeline runs,
// whatever the new message says.
func TestHandleChat_OpenCrisisBlocks(t *testing.T) {
	deps := newTestDeps(&mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"high"}`,
	})

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "I can't see a way through this.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeChatResponse(t, w)
	assert.Equal(t, datatypes.StatusBlocked, first.Status)
	require.NotEmpty(t, first.SessionID)

	// A harmless follow-up is still blocked, with the same session.
	w2 := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "What's the weather like?",
	})
	require.Equal(t, http.StatusOK, w2.Code)
	second := decodeChatResponse(t, w2)
	assert.Equal(t, datatypes.StatusBlocked, second.Status)
	assert.Equal(t, first.SessionID, second.SessionID)
}

// TestHandleChat_SwordRedirect verifies a learning request returns the
// redirect descriptor with confirm/cancel prompts.
func TestHandleChat_SwordRedirect(t *testing.T) {
	deps := newTestDeps(&mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"SWORD","safety_signal":"none","learning_intent":true}`,
	})

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "Teach me how pointers work in C.",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChatResponse(t, w)
	assert.Equal(t, datatypes.StatusPendingConfirmation, resp.Status)
	require.NotNil(t, resp.Redirect)
	assert.Equal(t, "swordgate", resp.Redirect.Target)
	assert.NotEmpty(t, resp.ConfirmPrompt)
	assert.NotEmpty(t, resp.CancelPrompt)
}
