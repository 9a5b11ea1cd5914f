// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains request and response types for the chat endpoints.
// For shared model types (messages, intent, risk), see models.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single user message.
	// Unbounded message input mitigation.
	MaxMessageContentBytes = 32 * 1024 // 32KB
)

// Terminal statuses of a pipeline run, surfaced verbatim to clients.
const (
	StatusSuccess             = "success"
	StatusDegraded            = "degraded"
	StatusBlocked             = "blocked"
	StatusStopped             = "stopped"
	StatusRedirect            = "redirect"
	StatusPendingConfirmation = "pending_confirmation"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the byte-length cap on message content.
// Byte length, not rune count: the cap exists to bound memory, not text.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Request
// =============================================================================

// ChatRequest is the body of POST /v1/chat and POST /v1/chat/stream.
//
// # Fields
//
//   - RequestID: Optional client-generated UUID v4 for correlation;
//     generated server-side when absent.
//   - Timestamp: Optional Unix ms timestamp; generated when absent.
//   - Message: Required. The user's new input, capped at 32KB.
//   - ConversationID: Optional. Identifies the working-memory thread.
//     Without it the shield cannot stage a pending message (warn still
//     happens, replay does not).
//
// # Validation
//
// Uses go-playground/validator; call Validate after binding.
type ChatRequest struct {
	RequestID      string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp      int64  `json:"timestamp" validate:"gte=0"`
	Message        string `json:"message" validate:"required,maxbytes"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Validate validates the ChatRequest fields.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp if the client omitted
// them, so every request is traceable.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Chat Response
// =============================================================================

// GateResultDTO is the client-visible summary of one gate execution.
type GateResultDTO struct {
	GateID          string `json:"gate_id"`
	Status          string `json:"status"`
	Action          string `json:"action"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

// ChatResponse is the buffered JSON result of POST /v1/chat.
//
// Exactly one of Response, Redirect, or the warn/crisis fields is
// populated, keyed by Status.
type ChatResponse struct {
	ResponseID string `json:"response_id"`
	RequestID  string `json:"request_id"`
	Timestamp  int64  `json:"timestamp"`

	// Status is one of the Status* constants above.
	Status string `json:"status"`

	// Response is the assistant text (success/degraded only).
	Response string `json:"response,omitempty"`

	// Stance is the resolved route ("lens" or "sword").
	Stance string `json:"stance,omitempty"`

	// Redirect carries the handoff descriptor (status=pending_confirmation).
	Redirect *RedirectDescriptor `json:"redirect,omitempty"`

	// ConfirmPrompt and CancelPrompt accompany a redirect.
	ConfirmPrompt string `json:"confirm_prompt,omitempty"`
	CancelPrompt  string `json:"cancel_prompt,omitempty"`

	// WarningMessage, ActivationID, and AckToken accompany status=stopped
	// (shield warn awaiting explicit consent).
	WarningMessage string          `json:"warning_message,omitempty"`
	ActivationID   string          `json:"activation_id,omitempty"`
	AckToken       string          `json:"ack_token,omitempty"`
	RiskAssessment *RiskAssessment `json:"risk_assessment,omitempty"`

	// SessionID accompanies status=blocked (open crisis session).
	SessionID string `json:"session_id,omitempty"`

	GateResults []GateResultDTO `json:"gate_results,omitempty"`

	ProcessingTimeMs int64 `json:"processing_time_ms,omitempty"`
}

// NewChatResponse creates a ChatResponse with generated ID and timestamp.
func NewChatResponse(requestID, status string) *ChatResponse {
	return &ChatResponse{
		ResponseID: uuid.New().String(),
		RequestID:  requestID,
		Timestamp:  time.Now().UnixMilli(),
		Status:     status,
	}
}
