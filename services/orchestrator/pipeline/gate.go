// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrGateFailed wraps any gate error the pipeline treats as fatal to the
// current request. Handlers map it to a 500.
var ErrGateFailed = errors.New("pipeline: gate failed")

// Gate is one pipeline stage.
//
// # Contract
//
// Execute reads and extends the shared state and returns a GateResult
// whose Action steers the orchestrator. Returning an error is fatal to
// the request unless the gate's own contract defines a fallback (the
// shield and response gates do); gates with fallbacks handle the failure
// internally and never return it.
type Gate interface {
	ID() string
	Execute(ctx context.Context, state *State) (*GateResult, error)
}

// timeGate wraps a gate body with the execution timer every result
// carries.
func timeGate(gateID string, body func() (*GateResult, error)) (*GateResult, error) {
	start := time.Now()
	result, err := body()
	if err != nil {
		return nil, err
	}
	result.GateID = gateID
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}
