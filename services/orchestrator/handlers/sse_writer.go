// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SSEWriter writes Server-Sent Events to an HTTP response.
//
// # Description
//
// Abstracts the SSE wire format (event: type\ndata: json\n\n) behind
// typed writes. Every event is assigned an Id (UUID v4), a CreatedAt
// unix-ms timestamp, and a SHA-256 hash chained to the previous event,
// giving the client a verifiable chain of custody over what it was
// shown.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the heartbeat ticker
// and the token stream write from different goroutines.
type SSEWriter interface {
	// WriteEvent writes one event. Id, CreatedAt, Hash, and PrevHash are
	// populated here; callers set only the content fields.
	WriteEvent(event datatypes.StreamEvent) error

	// WriteStatus writes a human-readable progress message.
	WriteStatus(message string) error

	// WriteToken writes one chunk of assistant text.
	WriteToken(content string) error

	// WriteThinking writes the pre-generation keep-alive event.
	WriteThinking() error

	// WriteDecision writes a terminal non-text outcome (blocked, stopped,
	// redirect). The stream closes after a decision.
	WriteDecision(event datatypes.StreamEvent) error

	// WriteError writes a sanitized failure notice. The stream closes
	// after it; internal details never reach the client.
	WriteError(errMsg string) error

	// WriteDone writes the completion event with the conversation id.
	WriteDone(conversationID string) error

	// WriteKeepAlive sends an SSE comment to reset intermediary idle
	// timers. Comments are invisible to clients and skip the hash chain.
	WriteKeepAlive() error
}

// =============================================================================
// Implementation
// =============================================================================

// sseWriter implements SSEWriter over an http.ResponseWriter, flushing
// after every write. Cannot be reused across requests; the hash chain is
// per-stream.
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewSSEWriter wraps w for SSE output. The caller must have set the SSE
// headers (SetSSEHeaders) first. Fails if w cannot flush.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent implements SSEWriter.
func (w *sseWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()
	event.PrevHash = w.prevHash
	event.Hash = computeEventHash(event)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// computeEventHash hashes every content field so the chain covers the
// exact decision and text the client saw. The Hash field itself must be
// empty when called.
func computeEventHash(event datatypes.StreamEvent) string {
	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		event.Id,
		event.Type,
		event.CreatedAt,
		event.PrevHash,
		event.Content,
		event.Message,
		event.Error,
		event.Status,
		event.WarningMessage,
		event.ActivationID,
		event.SessionID,
		event.ConversationID,
	)
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// WriteStatus implements SSEWriter.
func (w *sseWriter) WriteStatus(message string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: "status", Message: message})
}

// WriteToken implements SSEWriter.
func (w *sseWriter) WriteToken(content string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: "token", Content: content})
}

// WriteThinking implements SSEWriter.
func (w *sseWriter) WriteThinking() error {
	return w.WriteEvent(datatypes.StreamEvent{Type: "thinking"})
}

// WriteDecision implements SSEWriter.
func (w *sseWriter) WriteDecision(event datatypes.StreamEvent) error {
	event.Type = "decision"
	return w.WriteEvent(event)
}

// WriteError implements SSEWriter.
func (w *sseWriter) WriteError(errMsg string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: "error", Error: errMsg})
}

// WriteDone implements SSEWriter.
func (w *sseWriter) WriteDone(conversationID string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: "done", ConversationID: conversationID})
}

// WriteKeepAlive implements SSEWriter.
func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetSSEHeaders sets the response headers SSE requires. Must run before
// any body write; X-Accel-Buffering disables nginx buffering.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ SSEWriter = (*sseWriter)(nil)
