// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MindGateAI/MindGateCore/services/orchestrator/kv"
)

const (
	ackKeyPrefix = "ack:"

	// AckTTL bounds how long a consent proof stays redeemable. Short on
	// purpose: a token is issued with a warning and redeemed on the very
	// next request.
	AckTTL = 300 * time.Second
)

// AckIssuer mints and redeems ack tokens: opaque, single-use, user-bound
// proofs that a warned action was explicitly confirmed.
type AckIssuer struct {
	store kv.Store
}

// NewAckIssuer creates an issuer over the given KV backend.
func NewAckIssuer(store kv.Store) *AckIssuer {
	return &AckIssuer{store: store}
}

// Issue mints a token bound to userID.
func (a *AckIssuer) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := a.store.Set(ctx, ackKeyPrefix+token, userID, AckTTL); err != nil {
		return "", fmt.Errorf("issue ack token: %w", err)
	}
	return token, nil
}

// Redeem consumes token on behalf of userID.
// Returns ErrExpired when the token is absent (consumed or past TTL)
// and ErrForbidden when it was issued to a different user. A token
// redeemed by the wrong user is burned either way; it cannot be retried.
func (a *AckIssuer) Redeem(ctx context.Context, token, userID string) error {
	owner, found, err := a.store.GetDel(ctx, ackKeyPrefix+token)
	if err != nil {
		return fmt.Errorf("redeem ack token: %w", err)
	}
	if !found {
		return ErrExpired
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}
