// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import "errors"

// Sentinel errors for the Shield flows. Handlers map these onto HTTP
// status codes; everything else is a 500.
var (
	// ErrForbidden reports an ownership mismatch: the caller is not the
	// user a pending message, ack token, or crisis session belongs to.
	ErrForbidden = errors.New("shield: forbidden")

	// ErrExpired reports that a pending message or ack token is missing
	// at confirm time, either consumed already or past its TTL.
	ErrExpired = errors.New("shield: expired or already consumed")

	// ErrNotFound reports an unknown crisis session.
	ErrNotFound = errors.New("shield: not found")

	// ErrProvider reports a failed call to the risk assessor or the
	// generation model. Evaluate never surfaces this to callers; it
	// fails toward caution instead. Exposed for logging and tests.
	ErrProvider = errors.New("shield: provider call failed")
)
