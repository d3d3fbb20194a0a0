// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package update

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/homewiz/querygate/services/schema"
	"github.com/homewiz/querygate/services/store"
)

// Default safety policy. Thresholds, not invariants; both are
// constructor-configurable.
const (
	DefaultMaxAffectedRows   = 100
	DefaultPreviewSampleSize = 10
)

// Result is the outcome of one executed (or gated) update.
type Result struct {
	Success bool
	// Rows holds the post-update rows on success, or the preview sample
	// when the safety gate rejected the update.
	Rows []map[string]any
	// RowCount is rows actually affected; zero on any failure.
	RowCount int
	// PreviewCount is the number of rows matched by the preview probe,
	// carried even when the mutation never ran.
	PreviewCount int
	Error        string
}

// Executor runs write specifications under the preview-then-commit
// protocol.
//
// # Thread Safety
//
// Safe for concurrent use; all state is set at construction. The
// preview and commit are two separate store calls with no transaction
// spanning them: a concurrent writer changing the match set in between
// is an accepted race.
type Executor struct {
	store             store.Store
	catalog           *schema.Catalog
	maxAffectedRows   int
	previewSampleSize int
}

// NewExecutor constructs an executor with the default safety policy.
func NewExecutor(st store.Store, catalog *schema.Catalog) *Executor {
	return NewExecutorWithLimits(st, catalog, DefaultMaxAffectedRows, DefaultPreviewSampleSize)
}

// NewExecutorWithLimits constructs an executor with explicit thresholds.
func NewExecutorWithLimits(st store.Store, catalog *schema.Catalog, maxAffectedRows, previewSampleSize int) *Executor {
	if st == nil {
		panic("update: NewExecutor called with nil store")
	}
	if catalog == nil {
		panic("update: NewExecutor called with nil catalog")
	}
	if maxAffectedRows <= 0 {
		maxAffectedRows = DefaultMaxAffectedRows
	}
	if previewSampleSize <= 0 {
		previewSampleSize = DefaultPreviewSampleSize
	}
	return &Executor{
		store:             st,
		catalog:           catalog,
		maxAffectedRows:   maxAffectedRows,
		previewSampleSize: previewSampleSize,
	}
}

// Execute runs a validated specification.
//
// It performs the following operations:
//  1. Preview: runs the condition set as a pure read and counts matches.
//  2. Safety gate: zero matches or more than the ceiling both terminate
//     without mutating anything; the over-limit case carries a bounded
//     preview sample and the true match count.
//  3. Commit: translates assignments and conditions into one UPDATE.
//     The store's affected count takes precedence over the preview
//     snapshot when both are available.
//
// No error escapes this method; every failure is a Result.
func (e *Executor) Execute(ctx context.Context, spec Specification) Result {
	preview := e.Preview(ctx, spec)
	if !preview.Success {
		return Result{Success: false, Error: fmt.Sprintf("Preview failed: %s", preview.Error)}
	}

	matched := preview.RowCount
	if matched == 0 {
		return Result{Success: false, Error: "No rows match the WHERE conditions"}
	}
	if matched > e.maxAffectedRows {
		sample := preview.Rows
		if len(sample) > e.previewSampleSize {
			sample = sample[:e.previewSampleSize]
		}
		return Result{
			Success:      false,
			Error:        fmt.Sprintf("Safety limit: Update would affect %d rows (max %d)", matched, e.maxAffectedRows),
			Rows:         sample,
			PreviewCount: matched,
		}
	}

	assignments := e.NormalizeAssignments(spec.Table, spec.UpdateData)

	slog.Info("Executing update",
		"table", spec.Table,
		"columns", len(assignments),
		"matched", matched)
	committed := e.store.Update(ctx, spec.Table, assignments, spec.Conditions)
	if !committed.Success {
		return Result{Success: false, Error: fmt.Sprintf("Execution failed: %s", committed.Error), PreviewCount: matched}
	}

	rows := committed.Rows
	affected := committed.RowCount
	if len(rows) == 0 {
		// Store gave no RETURNING rows; fall back to the preview snapshot.
		rows = preview.Rows
		affected = matched
	}
	return Result{
		Success:      true,
		Rows:         rows,
		RowCount:     affected,
		PreviewCount: matched,
	}
}

// Preview runs the specification's condition set as a read, returning
// the rows the update would touch.
func (e *Executor) Preview(ctx context.Context, spec Specification) store.ExecutionResult {
	return e.store.Select(ctx, spec.Table, spec.Conditions, 0)
}

// NormalizeAssignments runs every assignment value through the catalog
// normalizer. Corrections (clamps, boolean canonicalization, enum case
// rewrites) are applied and logged, never fatal.
func (e *Executor) NormalizeAssignments(table string, updateData map[string]any) map[string]any {
	normalized := make(map[string]any, len(updateData))
	for column, value := range updateData {
		ok, corrected := e.catalog.ValidateValue(table, column, value)
		if !ok {
			slog.Warn("Value correction for update assignment",
				"table", table,
				"column", column,
				"from", value,
				"to", corrected)
		}
		normalized[column] = corrected
	}
	return normalized
}
