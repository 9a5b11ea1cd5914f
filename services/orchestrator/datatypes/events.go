// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// StreamEvent is one Server-Sent Event emitted by the streaming chat
// endpoint.
//
// # Description
//
// Events carry either tokens, status updates, a terminal decision
// (blocked/redirect/stopped), or stream completion. Metadata (Id,
// CreatedAt, Hash, PrevHash) is populated by the SSE writer; the hash
// chain gives the client a verifiable chain of custody over the exact
// bytes it was shown.
//
// # Event Types
//
//   - "status": human-readable progress message
//   - "thinking": keep-alive emitted before generation on the validated path
//   - "token": one chunk of assistant text, in display order
//   - "decision": terminal non-text outcome; Status and the warn/crisis
//     fields describe it
//   - "done": stream completion with the conversation id
//   - "error": sanitized failure notice; the stream closes after it
type StreamEvent struct {
	Id        string `json:"id,omitempty"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at,omitempty"`

	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// Status and the fields below are set on "decision" events only.
	Status         string              `json:"status,omitempty"`
	Redirect       *RedirectDescriptor `json:"redirect,omitempty"`
	WarningMessage string              `json:"warning_message,omitempty"`
	ActivationID   string              `json:"activation_id,omitempty"`
	AckToken       string              `json:"ack_token,omitempty"`
	SessionID      string              `json:"session_id,omitempty"`

	// ConversationID is set on "done" events.
	ConversationID string `json:"conversation_id,omitempty"`

	// Hash chain for integrity verification.
	Hash     string `json:"hash,omitempty"`
	PrevHash string `json:"prev_hash,omitempty"`
}
