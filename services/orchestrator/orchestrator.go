// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator wires the MindGate decision core into a running
// service: the gin router, the LLM client, the KV store, the Safety
// Shield, the pipeline, and the observability infrastructure.
//
// # Hosted Integration
//
// The orchestrator supports dependency injection via
// extensions.ServiceOptions, letting hosted deployments provide custom
// AuthProvider and AuditLogger implementations. The open source version
// runs with no-op defaults.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 8095}
//	svc, err := orchestrator.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
	"github.com/MindGateAI/MindGateCore/services/llm"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/kv"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/memory"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/routes"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the orchestrator lifecycle contract. Run blocks; call it at
// most once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until it stops.
	Run() error

	// Router exposes the configured gin engine for integration tests.
	// Callers must not modify it.
	Router() *gin.Engine

	// Close releases resources without running the server; Run performs
	// the same cleanup on return.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the orchestrator configuration. Every field has a
// default; a zero Config runs a local single-node service.
type Config struct {
	// Port is the HTTP server port. Default: 8095.
	Port int

	// LLMBackend selects the provider: "openai" or "ollama".
	// Default: "ollama".
	LLMBackend string

	// DataDir is the Badger directory for pending messages and ack
	// tokens. Empty runs on the in-memory store: consent state then
	// does not survive a restart.
	DataDir string

	// OTelEndpoint is the OTLP gRPC collector endpoint.
	// Default: "mindgate-otel-collector:4317".
	OTelEndpoint string

	// EnableTracing controls OTLP export. Default: false (local runs
	// have no collector; spans become no-ops).
	EnableTracing bool

	// GinMode sets the gin framework mode ("debug", "release", "test").
	GinMode string
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8095
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "mindgate-otel-collector:4317"
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service. All fields are read-only after New.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	llmClient     llm.LLMClient
	kvStore       kv.Store
	shieldSvc     *shield.Service
	pipeline      *pipeline.Pipeline
	tracerCleanup func(context.Context)
}

// New builds a ready-to-run orchestrator.
//
// # Description
//
// Applies config defaults, then initializes tracing, the KV store, the
// LLM client, the Shield, the pipeline, and the router, in that order.
// A nil opts uses the no-op extension defaults.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}
	if s.opts.AuthProvider == nil {
		s.opts.AuthProvider = &extensions.NopAuthProvider{}
	}
	if s.opts.AuditLogger == nil {
		s.opts.AuditLogger = &extensions.NopAuditLogger{}
	}

	if s.config.EnableTracing {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if err := s.initKV(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize KV store: %w", err)
	}
	if err := s.initLLMClient(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize LLM client: %w", err)
	}

	workingMemory := memory.NewInMemoryWorkingMemory()
	s.shieldSvc = shield.NewService(
		s.llmClient,
		shield.NewLLMRiskAssessor(s.llmClient),
		shield.NewInMemoryCrisisStore(),
		shield.NewPendingStore(s.kvStore),
		shield.NewAckIssuer(s.kvStore),
		s.opts.AuditLogger,
	)
	s.pipeline = pipeline.New(s.llmClient, s.shieldSvc, workingMemory)

	s.initRouter()
	return s, nil
}

// Run implements Service.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("starting MindGate orchestrator",
		"port", s.config.Port, "llm_backend", s.config.LLMBackend)
	return s.router.Run(addr)
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close implements Service. Safe to call on a partially built service
// and more than once.
func (s *service) Close() {
	if s.kvStore != nil {
		if err := s.kvStore.Close(); err != nil {
			slog.Warn("KV store close error", "error", err)
		}
		s.kvStore = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// =============================================================================
// Private Initialization
// =============================================================================

// initTracer sets up the OTLP gRPC span exporter. Insecure transport is
// deliberate; the collector sits on the internal network.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("mindgate-orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// initKV opens the Badger store, or falls back to the in-memory store
// when no data directory is configured.
func (s *service) initKV() error {
	if s.config.DataDir == "" {
		slog.Info("no data directory configured, using in-memory KV store")
		s.kvStore = kv.NewMemoryStore()
		return nil
	}
	store, err := kv.NewBadgerStore(s.config.DataDir)
	if err != nil {
		return err
	}
	s.kvStore = store
	return nil
}

// initLLMClient creates the configured LLM backend client.
func (s *service) initLLMClient() error {
	var err error
	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("using Ollama LLM backend")
	default:
		slog.Warn("unknown LLM backend, defaulting to ollama", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOllamaClient()
	}
	return err
}

// initRouter builds the gin engine and registers the routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("mindgate-orchestrator"))

	routes.Register(s.router, routes.Deps{
		Pipeline: s.pipeline,
		Shield:   s.shieldSvc,
		Options:  s.opts,
	})
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
