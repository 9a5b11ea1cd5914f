// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned by AuthProvider implementations when a
// token is missing, expired, or otherwise invalid.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo describes an authenticated caller.
//
// The UserID is the identity the Shield uses for ownership checks on
// pending messages and crisis sessions. It must be stable across requests
// from the same user.
type AuthInfo struct {
	// UserID is the stable identity of the caller.
	UserID string

	// DisplayName is an optional human-readable name.
	DisplayName string

	// Roles lists the caller's roles (e.g., "admin", "user").
	Roles []string
}

// AuthProvider validates authentication tokens.
//
// # Description
//
// AuthProvider abstracts token validation so the core does not depend on
// a specific identity system. Implementations validate bearer tokens and
// return the caller's identity.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type AuthProvider interface {
	// Validate checks the given token and returns the caller's identity.
	//
	// Returns ErrUnauthorized (possibly wrapped) if the token is invalid.
	// An empty token is valid for NopAuthProvider only.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as a fixed local user.
//
// This is the open source default: the CLI and local deployments work
// without any authentication infrastructure.
type NopAuthProvider struct{}

// Validate always succeeds with the "local-user" identity.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID:      "local-user",
		DisplayName: "Local User",
		Roles:       []string{"admin"},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
