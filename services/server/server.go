// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package server wires the Curon service together: the Badger-backed
// store, the LLM translator, the plan interpreter, and the Gin HTTP
// surface that exposes them.
//
// # Usage
//
//	cfg := server.Config{Port: 12310, LLMBackend: "openai"}
//	svc, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package server

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

	"github.com/curonhq/curon/services/planner"
	"github.com/curonhq/curon/services/server/routes"
	"github.com/curonhq/curon/services/storage"
	"github.com/curonhq/curon/services/translator"
)

// Service defines the contract for the Curon server.
//
// Run() blocks and should only be called once per instance. Router()
// exposes the configured Gin engine for integration tests.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// Config holds server configuration options. All fields have defaults
// applied by New(); a zero Config yields a working in-process server
// with an on-disk store under ./data.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the translator provider.
	// Valid values: "openai", "ollama". Default: "openai"
	LLMBackend string

	// DBPath is the directory for BadgerDB files. Default: "./data"
	DBPath string

	// InMemoryDB opens the store in memory. Used by tests.
	InMemoryDB bool

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "curon-otel-collector:4317". Set DisableTracing to skip
	// tracer setup entirely.
	OTelEndpoint string

	// DisableTracing skips OTLP exporter setup. Spans are still created
	// but never exported.
	DisableTracing bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	GinMode string

	// TranslatorTimeout bounds a single translator call.
	// Default: 60 seconds.
	TranslatorTimeout time.Duration
}

type service struct {
	config        Config
	router        *gin.Engine
	db            *storage.Store
	gc            *storage.GCRunner
	closeDB       func() error
	tracerCleanup func(context.Context)
}

// New creates a Curon Service with the given configuration: it applies
// defaults, initializes tracing, opens the store, builds the
// translator and planner engine, and registers all routes.
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if !s.config.DisableTracing {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if err := s.initStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	trans, err := translator.New(translator.Config{
		Backend: s.config.LLMBackend,
		Timeout: s.config.TranslatorTimeout,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize translator: %w", err)
	}

	engine := planner.New(s.db, trans)
	s.initRouter(engine)

	return s, nil
}

// Run starts the HTTP server and blocks until it stops. Resources are
// released on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting curon server", "port", s.config.Port, "backend", s.config.LLMBackend)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "curon-otel-collector:4317"
	}
	if cfg.TranslatorTimeout == 0 {
		cfg.TranslatorTimeout = 60 * time.Second
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing over an
// insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("curon-server")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initStore opens BadgerDB and starts the value log GC runner.
func (s *service) initStore() error {
	cfg := storage.DefaultConfig()
	cfg.Path = s.config.DBPath
	cfg.Logger = slog.Default()
	if s.config.InMemoryDB {
		cfg = storage.InMemoryConfig()
	}

	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	s.closeDB = db.Close
	s.db = storage.NewStore(db)

	if cfg.GCInterval > 0 {
		gc, err := storage.NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, slog.Default())
		if err != nil {
			return err
		}
		gc.Start()
		s.gc = gc
	}

	slog.Info("Store initialized", "path", cfg.Path, "in_memory", cfg.InMemory)
	return nil
}

func (s *service) initRouter(engine *planner.Engine) {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("curon-server"))

	routes.SetupRoutes(s.router, s.db, engine)
}

// cleanup releases all resources held by the service. Called when
// Run() exits or on initialization failure.
func (s *service) cleanup() {
	if s.gc != nil {
		s.gc.Stop()
	}
	if s.closeDB != nil {
		if err := s.closeDB(); err != nil {
			slog.Warn("store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
