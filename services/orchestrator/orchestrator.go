// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator wires the query gateway together: schema catalog,
// Postgres store, LLM clients, read and write pipelines, HTTP routing,
// tracing, and metrics.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12210, DatabaseURL: dbURL}
//	svc, err := orchestrator.New(context.Background(), cfg)
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

	"github.com/homewiz/querygate/services/llm"
	"github.com/homewiz/querygate/services/nlquery"
	"github.com/homewiz/querygate/services/orchestrator/observability"
	"github.com/homewiz/querygate/services/orchestrator/routes"
	"github.com/homewiz/querygate/services/schema"
	"github.com/homewiz/querygate/services/store"
	"github.com/homewiz/querygate/services/update"
)

const serviceName = "querygate-service"

// Service is the gateway lifecycle contract. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers
	// must not modify it.
	Router() *gin.Engine
}

// Config holds gateway configuration. All fields except DatabaseURL
// have defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "querygate-otel-collector:4317"
	OTelEndpoint string

	// MaxAffectedRows caps how many rows one update may touch.
	// Default: update.DefaultMaxAffectedRows
	MaxAffectedRows int

	// PreviewSampleSize bounds the diagnostic sample returned when the
	// ceiling rejects a write. Default: update.DefaultPreviewSampleSize
	PreviewSampleSize int

	// EnableSummarizer routes result messages through the LLM
	// summarizer; off means deterministic fallback templates only.
	EnableSummarizer bool
}

type service struct {
	config        Config
	router        *gin.Engine
	store         *store.PostgresStore
	tracerCleanup func(context.Context)
}

// New builds a ready-to-run gateway.
//
// It performs the following operations:
//  1. Applies configuration defaults and initializes tracing/metrics.
//  2. Loads the embedded schema catalog.
//  3. Connects the Postgres store and verifies it with a ping.
//  4. Constructs the LLM client and both pipelines.
//  5. Registers the HTTP routes.
func New(ctx context.Context, cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	observability.InitMetrics()

	catalog, err := schema.NewCatalog()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load schema catalog: %w", err)
	}

	if s.config.DatabaseURL == "" {
		s.cleanup()
		return nil, fmt.Errorf("DatabaseURL is required")
	}
	s.store, err = store.NewPostgresStore(ctx, s.config.DatabaseURL)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	llmClient, err := llm.NewOpenAIClient()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	var summarizer *nlquery.Summarizer
	if s.config.EnableSummarizer {
		summarizer = nlquery.NewSummarizer(llmClient)
	}
	verifier := nlquery.NewVerifier(catalog, summarizer)
	queryProc := nlquery.NewProcessor(nlquery.NewLLMGenerator(llmClient, catalog), s.store, verifier)

	executor := update.NewExecutorWithLimits(s.store, catalog, s.config.MaxAffectedRows, s.config.PreviewSampleSize)
	updateProc := update.NewProcessor(update.NewLLMGenerator(llmClient, catalog), executor)

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(s.router, queryProc, updateProc, s.store)

	return s, nil
}

// Run starts the HTTP server and blocks until it stops. Cleanup of the
// tracer and the connection pool is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting query gateway server", "port", s.config.Port)
	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) cleanup() {
	if s.store != nil {
		s.store.Close()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "querygate-otel-collector:4317"
	}
	if cfg.MaxAffectedRows == 0 {
		cfg.MaxAffectedRows = update.DefaultMaxAffectedRows
	}
	if cfg.PreviewSampleSize == 0 {
		cfg.PreviewSampleSize = update.DefaultPreviewSampleSize
	}
	return cfg
}

// initTracer sets up the OTLP trace exporter sending spans to the
// configured collector. Returns the shutdown function.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}
