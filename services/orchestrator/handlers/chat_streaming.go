// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/middleware"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/observability"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// heartbeatInterval paces SSE keep-alive comments. Load balancer idle
// timeouts commonly sit at 60s; 15s leaves margin for three misses.
const heartbeatInterval = 15 * time.Second

// sseSink adapts the SSE writer to the pipeline's delivery sink.
type sseSink struct {
	writer SSEWriter
}

func (s *sseSink) Thinking(context.Context) error {
	return s.writer.WriteThinking()
}

func (s *sseSink) Token(_ context.Context, content string) error {
	return s.writer.WriteToken(content)
}

var _ pipeline.Sink = (*sseSink)(nil)

// HandleChatStream serves POST /v1/chat/stream: the same decision tree
// as HandleChat, framed as Server-Sent Events.
//
// # Description
//
// Validation failures are rejected as JSON before any SSE bytes go out.
// After the SSE headers are sent, errors can no longer become a JSON
// body: they are logged, a sanitized "error" event is attempted, and
// the connection closes. A heartbeat goroutine emits comment pings
// during slow generations.
func HandleChatStream(pl *pipeline.Pipeline, shieldSvc *shield.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatStream")
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

		// Everything below this point is inside the stream; no JSON bodies.
		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		observability.ActiveStreams.Inc()
		defer observability.ActiveStreams.Dec()

		block, err := shieldSvc.CheckCrisisBlock(ctx, info.UserID)
		if err != nil {
			streamFail(writer, span, req.RequestID, err)
			return
		}
		if block.Blocked {
			observability.RequestsTotal.WithLabelValues("chat_stream", datatypes.StatusBlocked).Inc()
			_ = writer.WriteDecision(datatypes.StreamEvent{
				Status:    datatypes.StatusBlocked,
				SessionID: block.SessionID,
			})
			_ = writer.WriteDone(req.ConversationID)
			return
		}

		procCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var result *pipeline.Result
		g, gctx := errgroup.WithContext(procCtx)
		g.Go(func() error {
			defer cancel() // stops the heartbeat when the run finishes
			var runErr error
			result, runErr = pl.Process(gctx, pipeline.Input{
				RequestID:      req.RequestID,
				UserID:         info.UserID,
				ConversationID: req.ConversationID,
				Message:        req.Message,
			}, &sseSink{writer: writer})
			return runErr
		})
		g.Go(func() error {
			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := writer.WriteKeepAlive(); err != nil {
						// Client gone; cancel the run.
						return err
					}
				}
			}
		})

		if err := g.Wait(); err != nil {
			streamFail(writer, span, req.RequestID, err)
			return
		}

		observability.RequestsTotal.WithLabelValues("chat_stream", result.Status).Inc()
		switch result.Status {
		case datatypes.StatusSuccess, datatypes.StatusDegraded:
			// Tokens already went out through the sink.
		default:
			_ = writer.WriteDecision(datatypes.StreamEvent{
				Status:         result.Status,
				Redirect:       result.Redirect,
				WarningMessage: result.WarningMessage,
				ActivationID:   result.ActivationID,
				AckToken:       result.AckToken,
				SessionID:      result.SessionID,
			})
		}
		_ = writer.WriteDone(req.ConversationID)
	}
}

// streamFail handles an error after the SSE headers are out: log it,
// attempt one sanitized error event, and let the connection close.
// Internal details never reach the client.
func streamFail(writer SSEWriter, span trace.Span, requestID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error("stream failed", "request_id", requestID, "error", err)
	_ = writer.WriteError("The stream could not be completed. Please try again.")
}
