// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command mindgate runs the MindGate decision core.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MindGateAI/MindGateCore/pkg/logging"
	"github.com/MindGateAI/MindGateCore/services/orchestrator"
)

func main() {
	root := &cobra.Command{
		Use:   "mindgate",
		Short: "MindGate conversational decision core",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newServeCmd builds the serve command. Flags win over environment
// variables; both fall back to the orchestrator defaults.
func newServeCmd() *cobra.Command {
	var (
		port     int
		backend  string
		dataDir  string
		otelAddr string
		tracing  bool
		logDir   string
		jsonLogs bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(logging.Config{
				Service: "orchestrator",
				LogDir:  logDir,
				JSON:    jsonLogs,
			})
			defer logger.Close()
			slog.SetDefault(logger.Logger)

			svc, err := orchestrator.New(orchestrator.Config{
				Port:          port,
				LLMBackend:    backend,
				DataDir:       dataDir,
				OTelEndpoint:  otelAddr,
				EnableTracing: tracing,
				GinMode:       os.Getenv("GIN_MODE"),
			}, nil)
			if err != nil {
				return fmt.Errorf("initialize orchestrator: %w", err)
			}
			return svc.Run()
		},
	}

	cmd.Flags().IntVar(&port, "port", envInt("MINDGATE_PORT", 0), "HTTP server port")
	cmd.Flags().StringVar(&backend, "llm-backend", os.Getenv("LLM_BACKEND_TYPE"), "LLM backend (openai, ollama)")
	cmd.Flags().StringVar(&dataDir, "data-dir", os.Getenv("MINDGATE_DATA_DIR"), "Badger directory for consent state (empty = in-memory)")
	cmd.Flags().StringVar(&otelAddr, "otel-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP gRPC collector endpoint")
	cmd.Flags().BoolVar(&tracing, "tracing", os.Getenv("MINDGATE_ENABLE_TRACING") == "true", "export spans to the OTLP collector")
	cmd.Flags().StringVar(&logDir, "log-dir", os.Getenv("MINDGATE_LOG_DIR"), "directory for JSON log files (empty = stderr only)")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON on stderr")

	return cmd
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", raw)
		return fallback
	}
	return n
}
