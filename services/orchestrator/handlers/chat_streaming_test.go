// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// TestHandleChatStream_TokensThenDone verifies a benign message streams
// live tokens that reassemble to the full answer, ending with done.
func TestHandleChatStream_TokensThenDone(t *testing.T) {
	deps := newTestDeps(&mockLLM{chatText: "Paris is the capital of France."})

	w := performRequest(deps.router, "POST", "/v1/chat/stream", datatypes.ChatRequest{
		Message:        "What is the capital of France?",
		ConversationID: "conv-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSEEvents(t, w.Body.String())
	require.NotEmpty(t, events)

	var text strings.Builder
	for _, event := range events {
		if event.Type == "token" {
			text.WriteString(event.Content)
		}
	}
	assert.Equal(t, "Paris is the capital of France.", text.String())

	last := events[len(events)-1]
	assert.Equal(t, "done", last.Type)
	assert.Equal(t, "conv-1", last.ConversationID)
}

// TestHandleChatStream_WarnDecision verifies a consequential message
// produces a single decision event instead of tokens.
func TestHandleChatStream_WarnDecision(t *testing.T) {
	deps := newTestDeps(&mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium"}`,
	})

	w := performRequest(deps.router, "POST", "/v1/chat/stream", datatypes.ChatRequest{
		Message:        "Should I drain my retirement account?",
		ConversationID: "conv-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	events := parseSSEEvents(t, w.Body.String())
	require.Len(t, events, 2)

	decision := events[0]
	assert.Equal(t, "decision", decision.Type)
	assert.Equal(t, datatypes.StatusStopped, decision.Status)
	assert.NotEmpty(t, decision.WarningMessage)
	assert.NotEmpty(t, decision.ActivationID)
	assert.NotEmpty(t, decision.AckToken)
	assert.Equal(t, "done", events[1].Type)
}

// TestHandleChatStream_CrisisBlocksBeforePipeline verifies an open
// crisis session short-circuits the stream with a blocked decision.
func TestHandleChatStream_CrisisBlocksBeforePipeline(t *testing.T) {
	client := &mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"high"}`,
	}
	deps := newTestDeps(client)

	first := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "I don't know how to keep going.",
	})
	require.Equal(t, http.StatusOK, first.Code)
	blocked := decodeChatResponse(t, first)
	require.Equal(t, datatypes.StatusBlocked, blocked.Status)

	w := performRequest(deps.router, "POST", "/v1/chat/stream", datatypes.ChatRequest{
		Message:        "Hello again.",
		ConversationID: "conv-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSEEvents(t, w.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "decision", events[0].Type)
	assert.Equal(t, datatypes.StatusBlocked, events[0].Status)
	assert.Equal(t, blocked.SessionID, events[0].SessionID)
	assert.Equal(t, "done", events[1].Type)
}

// TestHandleChatStream_InvalidRequestStaysJSON verifies validation
// failures are rejected as JSON before any SSE bytes go out.
func TestHandleChatStream_InvalidRequestStaysJSON(t *testing.T) {
	deps := newTestDeps(&mockLLM{})

	w := performRequest(deps.router, "POST", "/v1/chat/stream", datatypes.ChatRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
}
