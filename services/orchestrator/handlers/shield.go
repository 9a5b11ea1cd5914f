// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/middleware"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/observability"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// ShieldConfirmRequest is the body of POST /v1/shield/confirm.
type ShieldConfirmRequest struct {
	ActivationID string `json:"activation_id" binding:"required,uuid4"`
	AckToken     string `json:"ack_token" binding:"required"`
}

// ShieldResolveRequest is the body of POST /v1/shield/resolve.
type ShieldResolveRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// HandleShieldConfirm serves POST /v1/shield/confirm: the user accepts a
// warning and the staged message replays through the full pipeline.
//
// # Description
//
// The ack token is redeemed first (single use, bound to the warned
// user); then the pending message is consumed atomically. A missing
// message is not an error: the activation expired or was already
// confirmed, and the client asks the user to resend. An ownership
// mismatch on either check is a 403. The replay runs with the shield
// bypassed — consent was the point of the warning — and history loaded
// fresh, so turns that landed since the warning are visible.
func HandleShieldConfirm(pl *pipeline.Pipeline, shieldSvc *shield.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleShieldConfirm")
		defer span.End()

		var req ShieldConfirmRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		info, ok := middleware.AuthInfoFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := shieldSvc.Acks().Redeem(ctx, req.AckToken, info.UserID); err != nil {
			switch {
			case errors.Is(err, shield.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "ack token belongs to another user"})
			case errors.Is(err, shield.ErrExpired):
				c.JSON(http.StatusGone, gin.H{"error": "ack token expired or already used; please resend your message"})
			default:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				slog.Error("ack redeem failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		confirm, err := shieldSvc.ConfirmAcceptanceAndGetMessage(ctx, req.ActivationID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("pending message consume failed", "activation_id", req.ActivationID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if confirm.PendingMessage == nil {
			// Consumed or expired; nothing to replay.
			c.JSON(http.StatusGone, gin.H{
				"error": "this confirmation has expired; please resend your message",
			})
			return
		}
		if confirm.PendingMessage.UserID != info.UserID {
			slog.Warn("pending message ownership mismatch",
				"activation_id", req.ActivationID, "user_id", info.UserID)
			c.JSON(http.StatusForbidden, gin.H{"error": "this confirmation belongs to another user"})
			return
		}

		result, err := pl.Process(ctx, pipeline.Input{
			RequestID:      uuid.New().String(),
			UserID:         info.UserID,
			ConversationID: confirm.PendingMessage.ConversationID,
			Message:        confirm.PendingMessage.Message,
			ShieldBypassed: true,
		}, pipeline.NopSink{})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("replay pipeline run failed", "activation_id", req.ActivationID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		observability.RequestsTotal.WithLabelValues("shield_confirm", result.Status).Inc()
		c.JSON(http.StatusOK, chatResponseFrom(req.ActivationID, result))
	}
}

// HandleShieldResolve serves POST /v1/shield/resolve: the user confirms
// they are safe and their crisis session closes.
//
// A false resolution (unknown session or wrong owner) is reported in
// the body, not as an HTTP error; the distinction would leak which
// session ids exist.
func HandleShieldResolve(shieldSvc *shield.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleShieldResolve")
		defer span.End()

		var req ShieldResolveRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		info, ok := middleware.AuthInfoFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		resolved, err := shieldSvc.ConfirmSafety(ctx, info.UserID, req.SessionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("crisis resolve failed", "session_id", req.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resolved": resolved})
	}
}
