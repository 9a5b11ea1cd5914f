// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// RiskAssessor scores a message that carried a medium safety signal.
//
// A nil assessment with a nil error means the assessor could not form a
// judgment; callers must degrade gracefully, never abort the request.
type RiskAssessor interface {
	Assess(ctx context.Context, message, safetySignal, urgency string) (*datatypes.RiskAssessment, error)
}

// =============================================================================
// LLM-backed assessor
// =============================================================================

const riskAssessmentPrompt = `You are a risk triage assistant. A user message was flagged as potentially consequential. Analyze it and respond with ONLY a JSON object, no prose, in this exact shape:
{
  "domain": "<one of: financial, medical, legal, relationships, career, other>",
  "risk_explanation": "<one or two sentences on what could go wrong>",
  "consequences": ["<concrete consequence>", "..."],
  "alternatives": ["<safer alternative the user could consider>", "..."],
  "question": "<one reflective question to ask the user before proceeding>"
}

Safety signal: %s
Urgency: %s
User message: %s`

// LLMRiskAssessor implements RiskAssessor with a single generation call
// that returns structured JSON.
type LLMRiskAssessor struct {
	client llm.LLMClient
}

// NewLLMRiskAssessor creates an assessor over the given client.
func NewLLMRiskAssessor(client llm.LLMClient) *LLMRiskAssessor {
	return &LLMRiskAssessor{client: client}
}

// Assess implements RiskAssessor.
//
// # Limitations
//
// The model occasionally wraps JSON in markdown fences or adds prose.
// extractJSON strips that; if no valid object remains, Assess returns
// (nil, nil) and the caller falls back to a deterministic warning.
func (a *LLMRiskAssessor) Assess(ctx context.Context, message, safetySignal, urgency string) (*datatypes.RiskAssessment, error) {
	ctx, span := otel.Tracer("mindgate.shield").Start(ctx, "shield.risk_assess")
	defer span.End()
	span.SetAttributes(attribute.String("shield.safety_signal", safetySignal))

	temp := float32(0.1)
	maxTokens := 512
	raw, err := a.client.Generate(ctx, fmt.Sprintf(riskAssessmentPrompt, safetySignal, urgency, message), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: risk assessment generation: %v", ErrProvider, err)
	}

	var assessment datatypes.RiskAssessment
	if err := json.Unmarshal([]byte(extractJSON(raw)), &assessment); err != nil {
		slog.Warn("risk assessor returned unparseable output, degrading",
			"error", err)
		return nil, nil
	}
	if assessment.Domain == "" && assessment.RiskExplanation == "" {
		return nil, nil
	}
	return &assessment, nil
}

// extractJSON returns the first top-level JSON object in s, tolerating
// markdown fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

var _ RiskAssessor = (*LLMRiskAssessor)(nil)
