// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package shield implements the Safety Shield: a risk-tiered policy
// engine that decides, per message, whether to let the pipeline proceed,
// to interpose an explicit consent step, or to open a crisis session
// that blocks the conversation until resolved.
package shield

import (
	"time"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// =============================================================================
// Actions
// =============================================================================

// Action is the Shield's verdict for one message.
type Action string

const (
	// ActionSkip lets the message through untouched (none/low signals).
	ActionSkip Action = "skip"

	// ActionWarn interposes a warning and, when a conversation is known,
	// stages the message behind an explicit confirmation (medium signal).
	ActionWarn Action = "warn"

	// ActionCrisis opens (or reuses) a crisis session and blocks the
	// conversation (high signal).
	ActionCrisis Action = "crisis"
)

// =============================================================================
// Evaluate input/output
// =============================================================================

// EvaluateInput carries everything Evaluate needs about one message.
// ConversationID and Intent are optional; a zero ConversationID means
// the message cannot be staged for replay.
type EvaluateInput struct {
	UserID         string
	Message        string
	SafetySignal   string
	Urgency        string
	ConversationID string
	Intent         *datatypes.IntentSummary
}

// Evaluation is the Shield's decision for one message.
//
// # Outputs
//
//   - Action: skip, warn, or crisis.
//   - WarningMessage/RiskAssessment/ActivationID: set on warn. ActivationID
//     is empty when the message could not be staged (no conversation, or
//     the backing store was unavailable).
//   - SessionID: set on crisis.
type Evaluation struct {
	Action         Action                    `json:"action"`
	SafetySignal   string                    `json:"safety_signal"`
	RiskAssessment *datatypes.RiskAssessment `json:"risk_assessment,omitempty"`
	WarningMessage string                    `json:"warning_message,omitempty"`
	ActivationID   string                    `json:"activation_id,omitempty"`
	SessionID      string                    `json:"session_id,omitempty"`
}

// CrisisBlock is the result of the pre-pipeline crisis check.
type CrisisBlock struct {
	Blocked   bool   `json:"blocked"`
	SessionID string `json:"session_id,omitempty"`
}

// =============================================================================
// Pending messages
// =============================================================================

// PendingMessage is a user message staged behind an explicit consent
// step. Stored as JSON under "pending:{activationId}" with a 900s TTL
// and consumed exactly once by the confirm flow.
type PendingMessage struct {
	ActivationID   string                   `json:"activation_id"`
	UserID         string                   `json:"user_id"`
	Message        string                   `json:"message"`
	ConversationID string                   `json:"conversation_id"`
	Timestamp      time.Time                `json:"timestamp"`
	Domain         string                   `json:"domain,omitempty"`
	WarningMessage string                   `json:"warning_message,omitempty"`
	Intent         *datatypes.IntentSummary `json:"intent,omitempty"`
}

// ConfirmResult is the outcome of consuming a pending message.
// PendingMessage is nil when the activation was already consumed or
// expired; that is not an error, the caller asks the user to resend.
type ConfirmResult struct {
	Success        bool            `json:"success"`
	PendingMessage *PendingMessage `json:"pending_message,omitempty"`
}

// =============================================================================
// Crisis sessions
// =============================================================================

// CrisisStatus is the lifecycle state of a crisis session.
type CrisisStatus string

const (
	CrisisActive   CrisisStatus = "active"
	CrisisResolved CrisisStatus = "resolved"
)

// CrisisSession is a standing per-user block opened on a high-risk
// signal. At most one active session exists per user; resolution is
// terminal.
type CrisisSession struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	ActivationID string       `json:"activation_id,omitempty"`
	Status       CrisisStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	ResolvedAt   time.Time    `json:"resolved_at,omitempty"`
}
