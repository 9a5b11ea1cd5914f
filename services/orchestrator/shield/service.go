// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// maxWarningTokens caps the generated warning. Warnings must read in
// seconds; anything longer gets skimmed past.
const maxWarningTokens = 150

const warningPrompt = `Write a brief, warm, non-judgmental check-in message (2-3 sentences, under 100 words) for a user whose message touches on a consequential decision. Domain: %s. Key risk: %s. Do not lecture. End by asking the user to confirm if they want to continue. Respond with the message text only.`

// =============================================================================
// Service
// =============================================================================

// Service is the Safety Shield evaluator.
//
// # Description
//
// Evaluate applies the tiered policy: none/low passes through, medium
// warns and stages the message for consent, high opens a crisis session.
// The confirm flows consume staged messages and resolve crisis sessions.
//
// # Assumptions
//
// One Service instance per process, injected by reference. All methods
// are safe for concurrent use; per-user serialization lives in the
// stores.
type Service struct {
	client   llm.LLMClient
	assessor RiskAssessor
	crises   CrisisStore
	pending  *PendingStore
	acks     *AckIssuer
	audit    extensions.AuditLogger
}

// NewService wires a Shield from its collaborators. A nil audit logger
// is replaced with the no-op logger.
func NewService(client llm.LLMClient, assessor RiskAssessor, crises CrisisStore, pending *PendingStore, acks *AckIssuer, audit extensions.AuditLogger) *Service {
	if audit == nil {
		audit = &extensions.NopAuditLogger{}
	}
	return &Service{
		client:   client,
		assessor: assessor,
		crises:   crises,
		pending:  pending,
		acks:     acks,
		audit:    audit,
	}
}

// Acks exposes the ack token issuer for the consent handlers.
func (s *Service) Acks() *AckIssuer { return s.acks }

// =============================================================================
// Evaluate
// =============================================================================

// Evaluate applies the safety policy to one message.
//
// # Outputs
//
// Never returns an error for provider failures on the medium tier: the
// policy fails toward caution, returning action=warn with a
// deterministic fallback warning instead. Errors surface only from the
// crisis store, whose failure genuinely cannot be worked around.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	ctx, span := otel.Tracer("mindgate.shield").Start(ctx, "shield.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("shield.safety_signal", in.SafetySignal),
		attribute.String("shield.user_id", in.UserID),
	)

	switch in.SafetySignal {
	case "medium":
		return s.evaluateMedium(ctx, in), nil
	case "high":
		return s.evaluateHigh(ctx, in)
	default:
		// none, low, and anything unrecognized pass through. An unknown
		// label means the classifier drifted; the intent gate normalizes
		// those to "none" upstream.
		return &Evaluation{Action: ActionSkip, SafetySignal: in.SafetySignal}, nil
	}
}

// evaluateMedium runs the warn tier: assess, generate a warning, stage
// the message for consent when a conversation is known.
func (s *Service) evaluateMedium(ctx context.Context, in EvaluateInput) *Evaluation {
	assessment, err := s.assessor.Assess(ctx, in.Message, in.SafetySignal, in.Urgency)
	if err != nil {
		// Fail toward caution: a broken assessor must not suppress the warning.
		slog.Warn("risk assessor failed, using fallback warning",
			"user_id", in.UserID, "error", err)
		assessment = nil
	}

	domain := ""
	if assessment != nil {
		domain = assessment.Domain
	}
	warning := s.generateWarning(ctx, assessment)
	if strings.TrimSpace(warning) == "" {
		warning = FallbackWarning(domain)
	}

	eval := &Evaluation{
		Action:         ActionWarn,
		SafetySignal:   in.SafetySignal,
		RiskAssessment: assessment,
		WarningMessage: warning,
	}

	if in.ConversationID == "" || s.pending == nil {
		// Nothing to replay against; warn without staging.
		return eval
	}

	activationID := uuid.NewString()
	msg := &PendingMessage{
		ActivationID:   activationID,
		UserID:         in.UserID,
		Message:        in.Message,
		ConversationID: in.ConversationID,
		Timestamp:      time.Now().UTC(),
		Domain:         domain,
		WarningMessage: warning,
		Intent:         in.Intent,
	}
	if err := s.pending.Put(ctx, msg); err != nil {
		// KV outage degrades to warn-without-replay, not a failed request.
		slog.Error("failed to stage pending message, warning without activation",
			"user_id", in.UserID, "error", err)
		return eval
	}
	eval.ActivationID = activationID

	_ = s.audit.LogAudit(ctx, extensions.AuditEvent{
		EventType:    "shield.warn",
		Timestamp:    time.Now().UTC(),
		UserID:       in.UserID,
		Action:       "stage_pending_message",
		ResourceType: "activation",
		ResourceID:   activationID,
		Outcome:      "success",
		Metadata:     map[string]any{"domain": domain},
	})
	return eval
}

// evaluateHigh runs the crisis tier. Check-then-create is atomic inside
// the store; pending messages are never staged here.
func (s *Service) evaluateHigh(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	session, created, err := s.crises.Open(ctx, in.UserID, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("open crisis session for %s: %w", in.UserID, err)
	}

	if created {
		slog.Warn("crisis session opened",
			"user_id", in.UserID, "session_id", session.ID)
		_ = s.audit.LogAudit(ctx, extensions.AuditEvent{
			EventType:    "shield.crisis",
			Timestamp:    time.Now().UTC(),
			UserID:       in.UserID,
			Action:       "open_crisis_session",
			ResourceType: "crisis_session",
			ResourceID:   session.ID,
			Outcome:      "success",
		})
	}

	return &Evaluation{
		Action:       ActionCrisis,
		SafetySignal: in.SafetySignal,
		SessionID:    session.ID,
	}, nil
}

// generateWarning asks the model for a short warning. Empty output and
// provider errors both return "", which the caller replaces with the
// deterministic fallback.
func (s *Service) generateWarning(ctx context.Context, assessment *datatypes.RiskAssessment) string {
	if assessment == nil {
		return ""
	}
	temp := float32(0.4)
	maxTokens := maxWarningTokens
	warning, err := s.client.Generate(ctx,
		fmt.Sprintf(warningPrompt, assessment.Domain, assessment.RiskExplanation),
		llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		slog.Warn("warning generation failed, using fallback", "error", err)
		return ""
	}
	return strings.TrimSpace(warning)
}

// =============================================================================
// Crisis check and confirm flows
// =============================================================================

// CheckCrisisBlock reports whether userID has an open crisis session.
// The chat entry points call this before the pipeline runs, so an open
// crisis blocks every new message regardless of its own signal.
func (s *Service) CheckCrisisBlock(ctx context.Context, userID string) (CrisisBlock, error) {
	session, err := s.crises.ActiveForUser(ctx, userID)
	if err != nil {
		return CrisisBlock{}, fmt.Errorf("check crisis block for %s: %w", userID, err)
	}
	if session == nil {
		return CrisisBlock{Blocked: false}, nil
	}
	return CrisisBlock{Blocked: true, SessionID: session.ID}, nil
}

// ConfirmAcceptanceAndGetMessage consumes the staged message for
// activationID. Absence is not an error: Success stays true with a nil
// PendingMessage, meaning "already consumed or expired, ask the user to
// resend". Ownership is the caller's check; handlers compare
// PendingMessage.UserID against the authenticated user and 403 on
// mismatch.
func (s *Service) ConfirmAcceptanceAndGetMessage(ctx context.Context, activationID string) (ConfirmResult, error) {
	msg, found, err := s.pending.Take(ctx, activationID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !found {
		return ConfirmResult{Success: true}, nil
	}
	_ = s.audit.LogAudit(ctx, extensions.AuditEvent{
		EventType:    "shield.confirm",
		Timestamp:    time.Now().UTC(),
		UserID:       msg.UserID,
		Action:       "consume_pending_message",
		ResourceType: "activation",
		ResourceID:   activationID,
		Outcome:      "success",
	})
	return ConfirmResult{Success: true, PendingMessage: msg}, nil
}

// ConfirmSafety resolves the crisis session for userID.
// Returns false, with no side effects, when the session is unknown or
// owned by another user.
func (s *Service) ConfirmSafety(ctx context.Context, userID, sessionID string) (bool, error) {
	err := s.crises.Resolve(ctx, userID, sessionID)
	switch {
	case err == nil:
		_ = s.audit.LogAudit(ctx, extensions.AuditEvent{
			EventType:    "shield.resolve",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "resolve_crisis_session",
			ResourceType: "crisis_session",
			ResourceID:   sessionID,
			Outcome:      "success",
		})
		return true, nil
	case errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, fmt.Errorf("resolve crisis session %s: %w", sessionID, err)
	}
}
