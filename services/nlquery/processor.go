// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlquery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/homewiz/querygate/services/store"
)

// Processor sequences the read pipeline: generate, execute, verify.
// Every path through it ends in a FrontendResponse; no error or panic
// escapes to a caller.
type Processor struct {
	generator Generator
	store     store.Store
	verifier  *Verifier
}

func NewProcessor(generator Generator, st store.Store, verifier *Verifier) *Processor {
	if generator == nil {
		panic("nlquery: NewProcessor called with nil generator")
	}
	if st == nil {
		panic("nlquery: NewProcessor called with nil store")
	}
	if verifier == nil {
		panic("nlquery: NewProcessor called with nil verifier")
	}
	return &Processor{generator: generator, store: st, verifier: verifier}
}

// ProcessQuery runs one natural-language query end to end.
//
// The stages are strictly sequential: a specification must exist before
// execution, and execution must complete before verification. The
// deferred recover is the last-resort boundary; anything that panics
// inside the pipeline becomes a system-error response.
func (p *Processor) ProcessQuery(ctx context.Context, naturalQuery string, user UserContext) (resp FrontendResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Query processing panicked", "panic", r)
			resp = FailureResponse("Query processing failed", fmt.Sprintf("System error: %v", r))
		}
	}()

	spec := p.generator.GenerateSQL(ctx, naturalQuery, user)
	if !spec.Success || spec.SQL == "" {
		return p.generationFailure(spec, naturalQuery, user)
	}

	result := p.store.ExecuteQuery(ctx, spec.SQL)
	if !result.Success {
		return executionFailure(result, spec)
	}

	final := p.verifier.VerifyAndStructure(ctx, result, naturalQuery, spec.SQL, user)
	final.Metadata["sql_generation_time"] = spec.GenerationTime
	final.Metadata["sql_explanation"] = spec.Explanation
	final.Metadata["estimated_rows"] = spec.EstimatedRows
	final.Metadata["tables_used"] = spec.TablesUsed
	final.Metadata["query_type"] = defaultString(spec.QueryType, "SELECT")
	return final
}

// ProcessBatch runs queries strictly sequentially to bound load on the
// data store. One failed member does not stop the rest.
func (p *Processor) ProcessBatch(ctx context.Context, queries []string, user UserContext) []FrontendResponse {
	responses := make([]FrontendResponse, 0, len(queries))
	for _, q := range queries {
		responses = append(responses, p.ProcessQuery(ctx, q, user))
	}
	return responses
}

// generationFailure maps an interpreter failure onto the response
// taxonomy: permission denial, syntax error, or generic.
func (p *Processor) generationFailure(spec QuerySpecification, naturalQuery string, user UserContext) FrontendResponse {
	errText := defaultString(spec.Error, "Unknown error")
	combined := strings.ToLower(errText + " " + spec.Explanation)

	if spec.IsPermissionError || containsAny(combined, permissionKeywords) {
		return p.permissionDenied(naturalQuery, user)
	}
	if strings.Contains(combined, "syntax error") {
		return FailureResponse(
			"Query syntax error. Please try rephrasing your question.",
			fmt.Sprintf("SQL Error: %s", errText))
	}
	return FailureResponse("Failed to understand query", errText)
}

// permissionDenied synthesizes a role-tailored denial naming the
// requested resource category and the caller's actual scope.
func (p *Processor) permissionDenied(naturalQuery string, user UserContext) FrontendResponse {
	category := resourceCategory(naturalQuery)
	scope := scopeForMessage(user)

	var message string
	switch strings.ToLower(user.Role) {
	case "agent", "manager":
		message = fmt.Sprintf(
			"Your role '%s' does not include access to %s. You can query: %s.",
			user.Role, category, strings.Join(scope, ", "))
	default:
		// Prospects and basic users get guidance instead of scope detail.
		message = fmt.Sprintf(
			"You don't have permission to view %s. Please contact our office and our team will be happy to assist you.",
			category)
	}

	resp := FailureResponse(message, "Insufficient permissions")
	resp.Metadata["result_type"] = "permission_denied"
	resp.Metadata["requested_category"] = category
	return resp
}

// resourceCategory infers what kind of data a denied query was after,
// for use in the denial message.
func resourceCategory(naturalQuery string) string {
	q := strings.ToLower(naturalQuery)
	switch {
	case containsAny(q, []string{"tour", "booking", "viewing", "appointment"}):
		return "tour and booking information"
	case containsAny(q, []string{"tenant", "payment", "lease", "resident"}):
		return "tenant and payment records"
	case containsAny(q, []string{"maintenance", "repair"}):
		return "maintenance requests"
	case containsAny(q, []string{"lead", "prospect"}):
		return "lead records"
	case containsAny(q, []string{"revenue", "financial", "money", "income"}):
		return "financial reports"
	default:
		return "that data"
	}
}

// scopeForMessage resolves the tables to name in a denial message
// without needing the catalog: admin denials do not occur in practice.
func scopeForMessage(user UserContext) []string {
	for _, level := range []string{"manager", "agent", "lead"} {
		if user.HasPermission(level) {
			return roleTables[level]
		}
	}
	return roleTables["basic"]
}

// executionFailure distinguishes store syntax errors from generic
// execution errors, carrying the attempted SQL in metadata either way.
func executionFailure(result store.ExecutionResult, spec QuerySpecification) FrontendResponse {
	errText := defaultString(result.Error, "Unknown SQL error")
	meta := map[string]any{
		"sql_query":           spec.SQL,
		"sql_generation_time": spec.GenerationTime,
		"execution_time":      result.Timing.Seconds(),
		"result_type":         "error",
	}

	var resp FrontendResponse
	if strings.Contains(strings.ToLower(errText), "syntax error") {
		resp = FailureResponse(
			"Query syntax error. Please try rephrasing your question.",
			fmt.Sprintf("SQL Error: %s", errText))
	} else {
		resp = FailureResponse(
			"Query execution failed. Please try again.",
			fmt.Sprintf("Execution Error: %s", errText))
	}
	resp.Metadata = meta
	return resp
}

// Suggestions returns canned query suggestions scoped to the caller's
// permissions, filtered by the partial input, capped at 5.
func (p *Processor) Suggestions(partial string, user UserContext) []string {
	var suggestions []string
	switch {
	case user.HasPermission("admin"):
		suggestions = []string{
			"Show me all available rooms",
			"What's the occupancy rate by building?",
			"List all tenants with late payments",
			"Show maintenance requests by priority",
			"Generate revenue report for this month",
		}
	case user.HasPermission("manager"):
		suggestions = []string{
			"Find available rooms under $2000",
			"Show occupancy rates for my buildings",
			"List active tenants",
			"Show pending maintenance requests",
		}
	case user.HasPermission("agent"):
		suggestions = []string{
			"Find rooms in downtown area",
			"Show leads in viewing scheduled status",
			"List available rooms with wifi",
		}
	default:
		suggestions = []string{
			"Find available rooms",
			"Show room prices",
			"Search by location",
		}
	}

	if partial != "" {
		filtered := suggestions[:0:0]
		for _, s := range suggestions {
			if strings.Contains(strings.ToLower(s), strings.ToLower(partial)) {
				filtered = append(filtered, s)
			}
		}
		suggestions = filtered
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}

// ValidationResult is the outcome of a generate-only dry run.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	SQLPreview    string   `json:"sql_preview,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	EstimatedRows int      `json:"estimated_rows,omitempty"`
	TablesUsed    []string `json:"tables_used,omitempty"`
	QueryType     string   `json:"query_type,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// Validate generates a specification without executing it, returning
// the preview or errors plus suggestions to try instead.
func (p *Processor) Validate(ctx context.Context, naturalQuery string, user UserContext) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Query validation panicked", "panic", r)
			result = ValidationResult{
				Valid:       false,
				Errors:      []string{fmt.Sprintf("Validation failed: %v", r)},
				Suggestions: p.Suggestions(naturalQuery, user),
			}
		}
	}()

	spec := p.generator.GenerateSQL(ctx, naturalQuery, user)
	if !spec.Success {
		return ValidationResult{
			Valid:       false,
			Errors:      []string{defaultString(spec.Error, "Unknown error")},
			Suggestions: p.Suggestions(naturalQuery, user),
		}
	}
	return ValidationResult{
		Valid:         true,
		SQLPreview:    spec.SQL,
		Explanation:   spec.Explanation,
		EstimatedRows: spec.EstimatedRows,
		TablesUsed:    spec.TablesUsed,
		QueryType:     defaultString(spec.QueryType, "SELECT"),
	}
}

// Statistics runs role-scoped COUNT probes and merges the counts into a
// single map. Individual probe failures are skipped, not fatal.
func (p *Processor) Statistics(ctx context.Context, user UserContext) map[string]any {
	queries := []string{
		"SELECT COUNT(*) AS total_rooms FROM rooms",
		"SELECT COUNT(*) AS available_rooms FROM rooms WHERE status = 'Available'",
		"SELECT COUNT(*) AS total_buildings FROM buildings",
	}
	if user.HasPermission("manager") || user.HasPermission("admin") {
		queries = append(queries,
			"SELECT COUNT(*) AS total_tenants FROM tenants WHERE status = 'Active'",
			"SELECT COUNT(*) AS total_leads FROM leads WHERE status = 'New'",
		)
	}

	stats := map[string]any{}
	for _, q := range queries {
		result := p.store.ExecuteQuery(ctx, q)
		if !result.Success || len(result.Rows) == 0 {
			continue
		}
		for key, value := range result.Rows[0] {
			stats[key] = value
		}
	}

	return map[string]any{
		"success":    true,
		"statistics": stats,
		"message":    "Retrieved system statistics",
	}
}
