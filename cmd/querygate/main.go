// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command querygate starts the HomeWiz query gateway HTTP server.
//
// This is the main entry point for the containerized gateway service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - QUERYGATE_PORT: HTTP server port (default: 12210)
//   - DATABASE_URL: Postgres connection string (required)
//   - OPENAI_API_KEY: API key for the SQL generator LLM (required)
//   - OPENAI_MODEL: generator model name (default: gpt-4o)
//   - QUERYGATE_MAX_AFFECTED_ROWS: update safety ceiling (default: 100)
//   - QUERYGATE_ENABLE_SUMMARIZER: LLM result summaries when "true"
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: querygate-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o querygate ./cmd/querygate
//
//	# Run
//	./querygate
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/homewiz/querygate/services/orchestrator"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := orchestrator.Config{
		Port:             getEnvInt("QUERYGATE_PORT", 12210),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OTelEndpoint:     getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "querygate-otel-collector:4317"),
		MaxAffectedRows:  getEnvInt("QUERYGATE_MAX_AFFECTED_ROWS", 0),
		EnableSummarizer: os.Getenv("QUERYGATE_ENABLE_SUMMARIZER") == "true",
	}

	slog.Info("Starting query gateway",
		"port", cfg.Port,
		"max_affected_rows", cfg.MaxAffectedRows,
		"summarizer", cfg.EnableSummarizer,
	)

	svc, err := orchestrator.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
