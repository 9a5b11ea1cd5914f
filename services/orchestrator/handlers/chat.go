// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the orchestrator:
// buffered chat, streaming chat, and the shield consent/resolution
// endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/middleware"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/observability"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

var chatTracer = otel.Tracer("mindgate.orchestrator.handlers")

// HandleChat serves POST /v1/chat: one full pipeline run with a buffered
// JSON result.
//
// # Description
//
// An open crisis session blocks the request before the pipeline runs,
// whatever the new message's own signal. Every policy outcome (stopped,
// blocked, redirect, pending_confirmation) is a 200 with the status in
// the body; only validation failures and internal errors use error
// codes.
func HandleChat(pl *pipeline.Pipeline, shieldSvc *shield.Service, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		info, ok := middleware.AuthInfoFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Open crisis sessions block everything until resolved.
		block, err := shieldSvc.CheckCrisisBlock(ctx, info.UserID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("crisis block check failed", "request_id", req.RequestID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if block.Blocked {
			_ = audit.LogAudit(ctx, extensions.AuditEvent{
				EventType:    "chat.blocked",
				Timestamp:    time.Now().UTC(),
				UserID:       info.UserID,
				Action:       "block_open_crisis",
				ResourceType: "crisis_session",
				ResourceID:   block.SessionID,
				Outcome:      "blocked",
			})
			resp := datatypes.NewChatResponse(req.RequestID, datatypes.StatusBlocked)
			resp.SessionID = block.SessionID
			observability.RequestsTotal.WithLabelValues("chat", resp.Status).Inc()
			c.JSON(http.StatusOK, resp)
			return
		}

		result, err := pl.Process(ctx, pipeline.Input{
			RequestID:      req.RequestID,
			UserID:         info.UserID,
			ConversationID: req.ConversationID,
			Message:        req.Message,
		}, pipeline.NopSink{})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("pipeline run failed", "request_id", req.RequestID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if result.Status == datatypes.StatusPendingConfirmation {
			_ = audit.LogAudit(ctx, extensions.AuditEvent{
				EventType:    "chat.redirect",
				Timestamp:    time.Now().UTC(),
				UserID:       info.UserID,
				Action:       "redirect_swordgate",
				ResourceType: "request",
				ResourceID:   req.RequestID,
				Outcome:      "pending_confirmation",
			})
		}

		observability.RequestsTotal.WithLabelValues("chat", result.Status).Inc()
		c.JSON(http.StatusOK, chatResponseFrom(req.RequestID, result))
	}
}

// chatResponseFrom maps a pipeline result onto the client payload.
func chatResponseFrom(requestID string, result *pipeline.Result) *datatypes.ChatResponse {
	resp := datatypes.NewChatResponse(requestID, result.Status)
	resp.Response = result.Response
	resp.Stance = result.Stance
	resp.Redirect = result.Redirect
	resp.ConfirmPrompt = result.ConfirmPrompt
	resp.CancelPrompt = result.CancelPrompt
	resp.WarningMessage = result.WarningMessage
	resp.ActivationID = result.ActivationID
	resp.AckToken = result.AckToken
	resp.RiskAssessment = result.RiskAssessment
	resp.SessionID = result.SessionID
	resp.GateResults = result.GateResults
	resp.ProcessingTimeMs = result.ProcessingTimeMs
	return resp
}
