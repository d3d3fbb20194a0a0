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

	"github.com/homewiz/querygate/services/schema"
	"github.com/homewiz/querygate/services/store"
)

// computedAliases are result column names that are not schema columns
// but are legitimate products of aggregation. A returned column must be
// either a catalog column or one of these; anything else is treated as a
// suspected hallucination.
var computedAliases = map[string]bool{
	"total_rooms": true, "available_rooms": true, "occupied_rooms": true, "vacant_rooms": true,
	"occupancy_rate": true, "revenue": true, "total_revenue": true, "avg_rent": true,
	"total_count": true, "count": true, "sum": true, "avg": true, "min": true, "max": true,
	"metric_name": true, "metric_value": true, "time_period": true, "previous_value": true,
	"change_percentage": true, "percentage": true, "average_value": true,
	"total_operators": true, "total_buildings": true, "total_tenants": true, "total_leads": true,
	"active_tenants": true, "inactive_tenants": true, "pending_tenants": true,
	"new_leads": true, "interested_leads": true, "converted_leads": true,
	"maintenance_rooms": true, "reserved_rooms": true,
	"building_count": true, "room_count": true, "tenant_count": true, "lead_count": true,
	"operator_count": true, "maintenance_count": true,
	"scheduled_tours": true, "completed_tours": true, "category": true,
}

// Verifier checks raw result rows against the schema catalog and shapes
// them into the frontend contract. It is the last line of the
// hallucination guarantee: nothing it cannot account for gets surfaced.
type Verifier struct {
	catalog    *schema.Catalog
	summarizer *Summarizer
}

// NewVerifier constructs the verifier. The summarizer may be nil, in
// which case messages always use the deterministic fallback templates.
func NewVerifier(catalog *schema.Catalog, summarizer *Summarizer) *Verifier {
	if catalog == nil {
		panic("nlquery: NewVerifier called with nil catalog")
	}
	return &Verifier{catalog: catalog, summarizer: summarizer}
}

// VerifyAndStructure validates an execution result and produces the
// final response for the read pipeline.
//
// It performs the following operations:
//  1. Short-circuits upstream execution failures.
//  2. Classifies the result type from the query texts.
//  3. Checks every cell of every row against the catalog or the
//     computed-alias allow-list; any violation discards all data.
//  4. Structures the rows per the result type and generates a message.
func (v *Verifier) VerifyAndStructure(ctx context.Context, raw store.ExecutionResult, originalQuery, sqlQuery string, user UserContext) FrontendResponse {
	if !raw.Success {
		return FailureResponse(
			fmt.Sprintf("Query execution failed: %s", raw.Error),
			defaultString(raw.Error, "Unknown error"))
	}

	resultType := ClassifyResult(originalQuery, sqlQuery)

	if errs := v.checkIntegrity(raw.Rows); len(errs) > 0 {
		resp := FailureResponse("Data verification failed - possible hallucination detected", errs...)
		return resp
	}

	structured := StructureRows(raw.Rows, resultType)
	message := v.message(ctx, structured, originalQuery, resultType)

	resp := NewFrontendResponse(true, message)
	resp.Data = structured
	resp.Metadata = map[string]any{
		"sql_query":      sqlQuery,
		"row_count":      len(raw.Rows),
		"result_type":    string(resultType),
		"execution_time": raw.Timing.Seconds(),
	}
	return resp
}

// checkIntegrity validates every cell of every row. A column must be a
// catalog column whose value passes type validation against at least one
// of its definitions, or a known computed alias. Partial trust is not
// allowed; the caller discards everything when this returns errors.
func (v *Verifier) checkIntegrity(rows []map[string]any) []string {
	var errs []string
	for rowIdx, row := range rows {
		for column, value := range row {
			if computedAliases[column] {
				continue
			}
			defs := v.catalog.ColumnsNamed(column)
			if len(defs) == 0 {
				errs = append(errs, fmt.Sprintf("Row %d: Unknown column '%s' in results", rowIdx+1, column))
				continue
			}
			valid := false
			for _, def := range defs {
				if schema.ValidateCell(value, def) {
					valid = true
					break
				}
			}
			if !valid {
				errs = append(errs, fmt.Sprintf("Row %d: Invalid value '%v' for column '%s'", rowIdx+1, value, column))
			}
		}
	}
	return errs
}

func (v *Verifier) message(ctx context.Context, structured []map[string]any, originalQuery string, resultType ResultType) string {
	if v.summarizer != nil {
		if msg, err := v.summarizer.Summarize(ctx, structured, originalQuery, resultType); err == nil {
			return msg
		}
	}
	return FallbackMessage(structured, originalQuery)
}
