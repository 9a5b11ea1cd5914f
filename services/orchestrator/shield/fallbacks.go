// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	_ "embed"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fallback_warnings.yaml
var fallbackWarningsYAML []byte

// fallbackWarnings is the parsed form of fallback_warnings.yaml.
type fallbackWarnings struct {
	Default string            `yaml:"default"`
	Domains map[string]string `yaml:"domains"`
}

var (
	fallbacksOnce sync.Once
	fallbacks     fallbackWarnings
)

// FallbackWarning returns the deterministic warning for a risk domain.
// Unknown or empty domains get the generic warning. Never returns "".
func FallbackWarning(domain string) string {
	fallbacksOnce.Do(loadFallbacks)

	key := strings.ToLower(strings.TrimSpace(domain))
	if msg, ok := fallbacks.Domains[key]; ok {
		return strings.TrimSpace(msg)
	}
	return strings.TrimSpace(fallbacks.Default)
}

func loadFallbacks() {
	if err := yaml.Unmarshal(fallbackWarningsYAML, &fallbacks); err != nil {
		// Embedded file is part of the binary; a parse failure is a build
		// defect. Keep the process alive with a hardcoded warning anyway.
		slog.Error("failed to parse embedded fallback warnings", "error", err)
	}
	if strings.TrimSpace(fallbacks.Default) == "" {
		fallbacks.Default = "Before we continue: this topic can carry real-world " +
			"consequences. Please confirm if you would like to proceed."
	}
}
