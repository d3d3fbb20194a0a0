// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the query
// gateway pipeline.
//
// # Description
//
// Metrics cover the outcomes the pipeline exists to produce:
//   - Request counters by endpoint and status
//   - Hallucination rejections (verifier discarded a result set)
//   - Permission denials
//   - Safety-limit rejections (write gated by the preview ceiling)
//   - End-to-end request latency histograms
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "querygate"

const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for the query gateway.
//
// Initialize once at startup via InitMetrics(); registering twice
// panics on duplicate registration.
type PipelineMetrics struct {
	// RequestsTotal counts pipeline requests by endpoint and status.
	// Labels: endpoint (query, batch, update, ...), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// HallucinationRejectionsTotal counts result sets the verifier
	// discarded for integrity violations.
	HallucinationRejectionsTotal prometheus.Counter

	// PermissionDenialsTotal counts requests refused for insufficient
	// permissions. Labels: endpoint
	PermissionDenialsTotal *prometheus.CounterVec

	// SafetyLimitHitsTotal counts writes gated by the preview ceiling.
	SafetyLimitHitsTotal prometheus.Counter

	// RequestDurationSeconds measures end-to-end request latency.
	// Labels: endpoint
	RequestDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// Prometheus registry. Call once at application startup.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total pipeline requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		HallucinationRejectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "hallucination_rejections_total",
				Help:      "Result sets discarded by the verifier for integrity violations",
			},
		),

		PermissionDenialsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "permission_denials_total",
				Help:      "Requests refused for insufficient permissions",
			},
			[]string{"endpoint"},
		),

		SafetyLimitHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "safety_limit_hits_total",
				Help:      "Writes rejected by the preview row ceiling",
			},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end pipeline request latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),
	}
	return DefaultMetrics
}

// ObserveRequest records one completed request. No-op when metrics were
// never initialized, so handler tests need no registry setup.
func ObserveRequest(endpoint string, success bool, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	DefaultMetrics.RequestDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveHallucinationRejection records a verifier integrity discard.
func ObserveHallucinationRejection() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.HallucinationRejectionsTotal.Inc()
}

// ObservePermissionDenial records a permission refusal.
func ObservePermissionDenial(endpoint string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.PermissionDenialsTotal.WithLabelValues(endpoint).Inc()
}

// ObserveSafetyLimitHit records a write gated by the preview ceiling.
func ObserveSafetyLimitHit() {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.SafetyLimitHitsTotal.Inc()
}
