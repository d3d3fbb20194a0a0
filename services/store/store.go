// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store is the data-store boundary of the pipeline. It executes
// verified read queries and condition-translated writes against Postgres
// and returns uniform ExecutionResult values; no caller ever sees a
// driver error type or a raw pgx row.
package store

import (
	"context"
	"time"
)

// Condition is one (column, operator, value) filter of a read or write.
// Operator is one of the fixed set accepted by TranslateOperator.
type Condition struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ExecutionResult is the uniform outcome of any store call.
//
// Success=false carries the failure text in Error; Rows is then empty.
// For updates, RowCount is the number of rows actually mutated.
type ExecutionResult struct {
	Success  bool             `json:"success"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Error    string           `json:"error,omitempty"`
	Timing   time.Duration    `json:"timing"`
}

// Failure builds a failed ExecutionResult from an error.
func Failure(err error, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Success: false,
		Rows:    []map[string]any{},
		Error:   err.Error(),
		Timing:  elapsed,
	}
}

// Store is the interface the processors depend on. The production
// implementation is PostgresStore; tests substitute hand mocks.
type Store interface {
	// ExecuteQuery runs a read-only SQL statement produced by the query
	// generator. The statement has already passed the dangerous-keyword
	// screen; the store runs it as-is.
	ExecuteQuery(ctx context.Context, query string) ExecutionResult

	// Select fetches the rows of table matching conditions, up to limit
	// (0 means no limit). Used by the update executor's preview step.
	Select(ctx context.Context, table string, conditions []Condition, limit int) ExecutionResult

	// Update applies assignments to the rows of table matching
	// conditions and returns the mutated rows. RowCount reflects the
	// rows actually affected, not the preview estimate.
	Update(ctx context.Context, table string, assignments map[string]any, conditions []Condition) ExecutionResult
}
