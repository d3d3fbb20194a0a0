// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package update

import (
	"fmt"

	"github.com/homewiz/querygate/services/nlquery"
)

// composeResponse builds the final response for an executed (or gated)
// update. Success and failure share the read path's response contract,
// so callers cannot distinguish read from write by shape.
func composeResponse(result Result, spec Specification) nlquery.FrontendResponse {
	if !result.Success {
		errText := result.Error
		if errText == "" {
			errText = "Unknown error"
		}
		// Failures never expose rows in data; the diagnostic sample a
		// gated update carries travels in metadata instead.
		resp := nlquery.FailureResponse(fmt.Sprintf("Update failed: %s", errText), errText)
		resp.Metadata = map[string]any{
			"table":            spec.Table,
			"attempted_update": spec.UpdateData,
			"where_conditions": spec.ConditionTriples(),
			"preview_count":    result.PreviewCount,
		}
		if len(result.Rows) > 0 {
			resp.Metadata["preview_sample"] = result.Rows
		}
		return resp
	}

	var message string
	switch result.RowCount {
	case 0:
		message = "No records were updated (no matching records found)"
	case 1:
		message = fmt.Sprintf("Successfully updated 1 record in %s", spec.Table)
	default:
		message = fmt.Sprintf("Successfully updated %d records in %s", result.RowCount, spec.Table)
	}
	if spec.Explanation != "" {
		message = fmt.Sprintf("%s. %s", message, spec.Explanation)
	}

	resp := nlquery.NewFrontendResponse(true, message)
	resp.Data = safeRows(result.Rows)
	resp.Metadata = map[string]any{
		"table":            spec.Table,
		"update_data":      spec.UpdateData,
		"where_conditions": spec.ConditionTriples(),
		"row_count":        result.RowCount,
		"operation":        "UPDATE",
		"explanation":      spec.Explanation,
		"generation_time":  spec.GenerationTime,
	}
	return resp
}

// validationErrorResponse wraps a generation or validation failure.
func validationErrorResponse(errText string, spec Specification) nlquery.FrontendResponse {
	resp := nlquery.FailureResponse("Update validation failed", errText)
	if spec.Table != "" {
		resp.Metadata = map[string]any{
			"attempted_spec": map[string]any{
				"table":            spec.Table,
				"update_data":      spec.UpdateData,
				"where_conditions": spec.ConditionTriples(),
			},
		}
	}
	return resp
}

func safeRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}
