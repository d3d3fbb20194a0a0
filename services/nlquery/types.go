// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package nlquery implements the read side of the verification pipeline:
// natural language in, verified and structured rows out.
//
// The pipeline never trusts the interpreter. Its generated SQL is screened
// before execution, and every returned cell is checked against the schema
// catalog before anything reaches a caller. A response asserting data the
// store did not return is treated as a hallucination and rejected whole.
package nlquery

import "github.com/homewiz/querygate/services/store"

// UserContext carries the caller's role and permission set. Both are
// opaque inputs from the transport layer; this package only consults
// them for table scoping and message wording.
type UserContext struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// DefaultUserContext is applied when the transport provides no context.
func DefaultUserContext() UserContext {
	return UserContext{Role: "user", Permissions: []string{"basic"}}
}

// HasPermission reports whether the permission set contains p.
func (u UserContext) HasPermission(p string) bool {
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// QuerySpecification is the interpreter's structured output for a read.
// Nothing in it is trusted; every downstream stage re-validates.
type QuerySpecification struct {
	Success           bool     `json:"success"`
	SQL               string   `json:"sql"`
	Error             string   `json:"error,omitempty"`
	Explanation       string   `json:"explanation"`
	EstimatedRows     int      `json:"estimated_rows"`
	TablesUsed        []string `json:"tables_used"`
	QueryType         string   `json:"query_type"`
	GenerationTime    float64  `json:"generation_time"`
	IsPermissionError bool     `json:"is_permission_error,omitempty"`
}

// ResultType is the closed set of semantic result categories. It is
// assigned once per query and selects the structuring shape.
type ResultType string

const (
	ResultPropertySearch   ResultType = "property_search"
	ResultTourScheduling   ResultType = "tour_scheduling"
	ResultAnalytics        ResultType = "analytics"
	ResultTenantManagement ResultType = "tenant_management"
	ResultLeadManagement   ResultType = "lead_management"
	ResultMaintenance      ResultType = "maintenance"
	ResultGeneric          ResultType = "generic"
)

// FrontendResponse is the stable six-field contract returned by both the
// read and write pipelines. Callers cannot distinguish the two by shape.
//
// Invariant: Success=false implies Data is empty.
type FrontendResponse struct {
	Success  bool             `json:"success"`
	Data     []map[string]any `json:"data"`
	Message  string           `json:"message"`
	Metadata map[string]any   `json:"metadata"`
	Errors   []string         `json:"errors"`
	Warnings []string         `json:"warnings"`
}

// NewFrontendResponse returns a response with every collection field
// non-nil, so the JSON shape is stable on all paths.
func NewFrontendResponse(success bool, message string) FrontendResponse {
	return FrontendResponse{
		Success:  success,
		Data:     []map[string]any{},
		Message:  message,
		Metadata: map[string]any{},
		Errors:   []string{},
		Warnings: []string{},
	}
}

// FailureResponse builds a failed response carrying the given errors.
func FailureResponse(message string, errors ...string) FrontendResponse {
	resp := NewFrontendResponse(false, message)
	resp.Errors = append(resp.Errors, errors...)
	return resp
}

// ExecutionResult aliases the store result so callers of this package do
// not need to import the store for the common case.
type ExecutionResult = store.ExecutionResult
