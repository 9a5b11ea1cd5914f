// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// AuditEvent represents a security-relevant event for compliance logging.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Shield: "shield.warn", "shield.crisis", "shield.confirm", "shield.resolve"
//   - Chat: "chat.message", "chat.blocked", "chat.redirect"
//   - System: "system.start", "system.stop", "system.error"
//
// # Compliance Fields
//
// For regulatory reporting, always populate UserID, Timestamp, and the
// resource fields.
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "shield.warn",
//	    Timestamp:    time.Now().UTC(),
//	    UserID:       authInfo.UserID,
//	    Action:       "warn",
//	    ResourceType: "activation",
//	    ResourceID:   activationID,
//	    Outcome:      "success",
//	}
type AuditEvent struct {
	// EventType categorizes the event. Format: "category.action".
	EventType string

	// Timestamp is when the event occurred (always UTC).
	// If zero, implementations should set it to time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who triggered the event.
	// Use "system" for automated actions.
	UserID string

	// Action describes what operation was attempted.
	Action string

	// ResourceType is the category of resource involved
	// (e.g., "activation", "crisis_session", "message").
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	ResourceID string

	// Outcome indicates the result: "success", "failure", "blocked", "error".
	Outcome string

	// Metadata holds additional event-specific data.
	Metadata map[string]any
}

// AuditLogger records security-relevant events.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the pipeline emits
// events from many requests at once.
type AuditLogger interface {
	// LogAudit records one event. Implementations should not block the
	// request path; buffer or drop rather than stall.
	LogAudit(ctx context.Context, event AuditEvent) error
}

// NopAuditLogger discards all events. Open source default.
type NopAuditLogger struct{}

// LogAudit discards the event.
func (l *NopAuditLogger) LogAudit(_ context.Context, _ AuditEvent) error {
	return nil
}

var _ AuditLogger = (*NopAuditLogger)(nil)
