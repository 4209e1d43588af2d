// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/ClaimSentinel/pkg/logging"
	"github.com/AleutianAI/ClaimSentinel/services/claims/audit"
	"github.com/AleutianAI/ClaimSentinel/services/claims/config"
	"github.com/AleutianAI/ClaimSentinel/services/claims/routes"
	"github.com/AleutianAI/ClaimSentinel/services/claims/services"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/citation"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/contradiction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/patterns"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/redaction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/rules"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/screening"
	"github.com/AleutianAI/ClaimSentinel/services/llm"
	"github.com/AleutianAI/ClaimSentinel/services/retrieval"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "sentinel-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("claims-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient connects to the vector store. Policy clause retrieval
// cannot work without it, so a missing or invalid URL is fatal.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	weaviateURL = strings.Trim(weaviateURL, "\"' ")
	if weaviateURL == "" {
		log.Fatal("FATAL: WEAVIATE_SERVICE_URL is required for policy clause retrieval")
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		log.Fatalf("FATAL: WEAVIATE_SERVICE_URL is invalid: %q", weaviateURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Weaviate client: %v", err)
	}
	return client
}

// newDecisionGenerator selects the generation backend. Air-gapped
// deployments set SENTINEL_DECISION_BACKEND=ollama to keep narratives
// on the host.
func newDecisionGenerator() (llm.DecisionGenerator, error) {
	if os.Getenv("SENTINEL_DECISION_BACKEND") == "ollama" {
		return llm.NewOllamaDecisionClient()
	}
	return llm.NewOpenAIDecisionClient()
}

func main() {
	port := os.Getenv("CLAIMS_SERVICE_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "claims",
		JSON:    true,
		LogDir:  os.Getenv("SENTINEL_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load configuration: %v", err)
	}

	catalog, err := patterns.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load the guardrail pattern catalog: %v", err)
	}

	weaviateClient := newWeaviateClient()

	embedder, err := retrieval.NewOpenAIEmbedder()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the embedder: %v", err)
	}

	generator, err := newDecisionGenerator()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the decision client: %v", err)
	}

	// Lightweight mode keeps the structured log stream as the only audit
	// record. Production deployments persist to Weaviate.
	var auditSink audit.AuditSink
	if os.Getenv("SENTINEL_AUDIT_DISABLED") == "true" {
		slog.Info("Audit persistence disabled, running in lightweight mode")
		auditSink = audit.NewNoopAuditSink()
	} else {
		auditSink = audit.NewWeaviateAuditSink(weaviateClient)
	}

	validation := services.NewClaimValidationService(services.Dependencies{
		Screener:       screening.NewScreener(catalog),
		Redactor:       redaction.NewRedactor(catalog),
		Citations:      citation.NewValidator(),
		Contradictions: contradiction.NewDetector(cfg.ContradictionConfig()),
		RuleEngine:     rules.NewEngine(cfg.RuleConfig()),
		Embedder:       embedder,
		Retriever:      retrieval.NewWeaviateClauseRetriever(weaviateClient),
		Extractor:      retrieval.NewHTTPDocumentExtractor(),
		Generator:      generator,
		AuditSink:      auditSink,
		MaxClauses:     cfg.Retrieval.MaxClauses,
		MaxAttempts:    cfg.Retrieval.MaxAttempts,
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("claims-service"))

	routes.SetupRoutes(router, validation)

	log.Println("Starting the claims service on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
