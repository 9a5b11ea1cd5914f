// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// performWarn runs a consequential chat and returns the warn response
// carrying the activation id and ack token.
func performWarn(t *testing.T, deps *testDeps) *datatypes.ChatResponse {
	t.Helper()

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message:        "Should I take out a loan against my house to invest?",
		ConversationID: "conv-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChatResponse(t, w)
	require.Equal(t, datatypes.StatusStopped, resp.Status)
	require.NotEmpty(t, resp.ActivationID)
	require.NotEmpty(t, resp.AckToken)
	return resp
}

// TestHandleShieldConfirm_ReplaysMessage verifies the full consent flow:
// warn, confirm with the ack token, and the staged message replays to a
// normal answer.
func TestHandleShieldConfirm_ReplaysMessage(t *testing.T) {
	client := &mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium"}`,
		chatText:   "Here is a careful walkthrough of the tradeoffs.",
	}
	deps := newTestDeps(client)
	warn := performWarn(t, deps)

	w := performRequest(deps.router, "POST", "/v1/shield/confirm", ShieldConfirmRequest{
		ActivationID: warn.ActivationID,
		AckToken:     warn.AckToken,
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChatResponse(t, w)
	assert.Equal(t, datatypes.StatusSuccess, resp.Status)
	assert.Equal(t, "Here is a careful walkthrough of the tradeoffs.", resp.Response)
}

// TestHandleShieldConfirm_SecondAttemptGone verifies a confirmation
// cannot be replayed: the ack token burns on first use.
func TestHandleShieldConfirm_SecondAttemptGone(t *testing.T) {
	client := &mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium"}`,
	}
	deps := newTestDeps(client)
	warn := performWarn(t, deps)

	first := performRequest(deps.router, "POST", "/v1/shield/confirm", ShieldConfirmRequest{
		ActivationID: warn.ActivationID,
		AckToken:     warn.AckToken,
	})
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(deps.router, "POST", "/v1/shield/confirm", ShieldConfirmRequest{
		ActivationID: warn.ActivationID,
		AckToken:     warn.AckToken,
	})
	assert.Equal(t, http.StatusGone, second.Code)
}

// TestHandleShieldConfirm_UnknownToken verifies an unknown ack token is
// treated as expired, not as a server error.
func TestHandleShieldConfirm_UnknownToken(t *testing.T) {
	client := &mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"medium"}`,
	}
	deps := newTestDeps(client)
	warn := performWarn(t, deps)

	w := performRequest(deps.router, "POST", "/v1/shield/confirm", ShieldConfirmRequest{
		ActivationID: warn.ActivationID,
		AckToken:     "never-issued",
	})
	assert.Equal(t, http.StatusGone, w.Code)
}

// TestHandleShieldConfirm_MissingFields verifies binding validation.
func TestHandleShieldConfirm_MissingFields(t *testing.T) {
	deps := newTestDeps(&mockLLM{})

	w := performRequest(deps.router, "POST", "/v1/shield/confirm", ShieldConfirmRequest{
		AckToken: "tok",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleShieldResolve_UnblocksUser verifies the crisis exit: resolve
// with the session id and the next chat runs normally.
func TestHandleShieldResolve_UnblocksUser(t *testing.T) {
	client := &mockLLM{
		intentJSON: `{"primary_route":"SAY","stance":"LENS","safety_signal":"high"}`,
	}
	deps := newTestDeps(client)

	w := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "Everything feels hopeless.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	blocked := decodeChatResponse(t, w)
	require.Equal(t, datatypes.StatusBlocked, blocked.Status)
	require.NotEmpty(t, blocked.SessionID)

	resolve := performRequest(deps.router, "POST", "/v1/shield/resolve", ShieldResolveRequest{
		SessionID: blocked.SessionID,
	})
	require.Equal(t, http.StatusOK, resolve.Code)
	assert.JSONEq(t, `{"resolved": true}`, resolve.Body.String())

	client.intentJSON = `{"primary_route":"SAY","stance":"LENS","safety_signal":"none"}`
	after := performRequest(deps.router, "POST", "/v1/chat", datatypes.ChatRequest{
		Message: "Thanks. What should I cook tonight?",
	})
	require.Equal(t, http.StatusOK, after.Code)
	assert.Equal(t, datatypes.StatusSuccess, decodeChatResponse(t, after).Status)
}

// TestHandleShieldResolve_UnknownSession verifies an unknown session
// resolves false without an error status.
func TestHandleShieldResolve_UnknownSession(t *testing.T) {
	deps := newTestDeps(&mockLLM{})

	w := performRequest(deps.router, "POST", "/v1/shield/resolve", ShieldResolveRequest{
		SessionID: "no-such-session",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"resolved": false}`, w.Body.String())
}
