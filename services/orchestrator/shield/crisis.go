// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CrisisStore holds crisis sessions and enforces the one-active-per-user
// invariant.
//
// # Thread Safety
//
// Open must serialize check-then-create per user: two concurrent
// high-signal messages from the same user must converge on one session.
type CrisisStore interface {
	// Open returns the user's active session, creating one if none
	// exists. created reports whether this call created it.
	Open(ctx context.Context, userID, activationID string) (session *CrisisSession, created bool, err error)

	// ActiveForUser returns the user's active session, or nil.
	ActiveForUser(ctx context.Context, userID string) (*CrisisSession, error)

	// Resolve marks the session resolved.
	// Returns ErrNotFound for an unknown sessionID and ErrForbidden when
	// the session belongs to a different user; neither has side effects.
	// Resolving an already-resolved session is a no-op.
	Resolve(ctx context.Context, userID, sessionID string) error
}

// InMemoryCrisisStore is the default CrisisStore. Sessions are process
// state; a restart clears open crises, which operators must know.
type InMemoryCrisisStore struct {
	mu       sync.Mutex
	sessions map[string]*CrisisSession // sessionID -> session
	active   map[string]string         // userID -> active sessionID
	now      func() time.Time
}

// NewInMemoryCrisisStore creates an empty store.
func NewInMemoryCrisisStore() *InMemoryCrisisStore {
	return &InMemoryCrisisStore{
		sessions: make(map[string]*CrisisSession),
		active:   make(map[string]string),
		now:      time.Now,
	}
}

// Open implements CrisisStore. The mutex spans the check and the create,
// so concurrent opens for one user return the same session.
func (s *InMemoryCrisisStore) Open(_ context.Context, userID, activationID string) (*CrisisSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[userID]; ok {
		return s.copyOf(s.sessions[id]), false, nil
	}

	session := &CrisisSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivationID: activationID,
		Status:       CrisisActive,
		CreatedAt:    s.now(),
	}
	s.sessions[session.ID] = session
	s.active[userID] = session.ID
	return s.copyOf(session), true, nil
}

// ActiveForUser implements CrisisStore.
func (s *InMemoryCrisisStore) ActiveForUser(_ context.Context, userID string) (*CrisisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.active[userID]
	if !ok {
		return nil, nil
	}
	return s.copyOf(s.sessions[id]), nil
}

// Resolve implements CrisisStore.
func (s *InMemoryCrisisStore) Resolve(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if session.UserID != userID {
		return ErrForbidden
	}
	if session.Status == CrisisResolved {
		return nil
	}
	session.Status = CrisisResolved
	session.ResolvedAt = s.now()
	delete(s.active, userID)
	return nil
}

// Reset drops all sessions. Test isolation only.
func (s *InMemoryCrisisStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*CrisisSession)
	s.active = make(map[string]string)
}

func (s *InMemoryCrisisStore) copyOf(session *CrisisSession) *CrisisSession {
	out := *session
	return &out
}

var _ CrisisStore = (*InMemoryCrisisStore)(nil)
