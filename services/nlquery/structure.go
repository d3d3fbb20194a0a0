// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlquery

import (
	"fmt"
	"strings"
)

// Keyword sets for result classification. Checked in a fixed order;
// first hit wins, so a query mentioning both tenants and rooms is
// tenant_management.
var (
	analyticsKeywords   = []string{"occupancy", "rate", "revenue", "analytics", "report", "metrics", "statistics", "calculate", "total", "average", "sum"}
	aggregateFunctions  = []string{"count(", "sum(", "avg(", "max(", "min("}
	tenantKeywords      = []string{"tenant", "resident", "lease", "payment", "active tenant", "late payment"}
	tourKeywords        = []string{"tour", "slot", "viewing", "appointment", "schedule"}
	leadKeywords        = []string{"lead", "prospect", "showing", "conversion", "interested"}
	maintenanceKeywords = []string{"maintenance", "repair", "issue", "request"}
	propertyKeywords    = []string{"room", "apartment", "property", "available", "find", "search", "show", "cheapest", "wifi", "bathroom"}
)

// ClassifyResult assigns the ResultType for a query. Classification is
// keyword-driven and intentionally coarse; the fixed check order breaks
// ties. It is a pure function of its inputs.
func ClassifyResult(originalQuery, sqlQuery string) ResultType {
	queryLower := strings.ToLower(originalQuery)
	sqlLower := strings.ToLower(sqlQuery)

	if containsAny(queryLower, analyticsKeywords) || containsAny(sqlLower, aggregateFunctions) {
		return ResultAnalytics
	}
	if containsAny(queryLower, tenantKeywords) {
		return ResultTenantManagement
	}
	if containsAny(queryLower, tourKeywords) {
		return ResultTourScheduling
	}
	if containsAny(queryLower, leadKeywords) {
		return ResultLeadManagement
	}
	if containsAny(queryLower, maintenanceKeywords) {
		return ResultMaintenance
	}
	if containsAny(queryLower, propertyKeywords) {
		return ResultPropertySearch
	}
	return ResultGeneric
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// StructureRows maps raw rows into the fixed frontend shape for the
// result type. Missing source fields degrade to explicit defaults, never
// to omitted keys, so the contract shape is stable regardless of data
// completeness.
func StructureRows(rows []map[string]any, resultType ResultType) []map[string]any {
	structured := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var out map[string]any
		switch resultType {
		case ResultPropertySearch:
			out = structureProperty(row)
		case ResultTourScheduling:
			out = structureTour(row)
		case ResultAnalytics:
			out = structureAnalytics(row)
		case ResultTenantManagement:
			out = structureTenant(row)
		case ResultLeadManagement:
			out = structureLead(row)
		case ResultMaintenance:
			out = structureMaintenance(row)
		default:
			out = map[string]any{"data": row, "type": "generic"}
		}
		structured = append(structured, out)
	}
	return structured
}

func structureProperty(row map[string]any) map[string]any {
	return map[string]any{
		"id":     row["room_id"],
		"title":  fmt.Sprintf("Room %v - %v", orDefault(row["room_number"], "N/A"), orDefault(row["building_name"], "Unknown Building")),
		"rent":   asFloat(row["private_room_rent"]),
		"status": orDefault(row["status"], "Unknown"),
		"building": map[string]any{
			"id":      row["building_id"],
			"name":    row["building_name"],
			"address": firstNonNil(row["full_address"], row["street"], ""),
		},
		"details": map[string]any{
			"room_number":    fmt.Sprintf("%v", orDefault(row["room_number"], "")),
			"square_footage": row["sq_footage"],
			"view":           row["view"],
			"bathroom_type":  row["bathroom_type"],
			"bed_type":       row["bed_type"],
			"floor_number":   row["floor_number"],
		},
		"amenities": map[string]any{
			"wifi":         orDefault(row["wifi_included"], false),
			"laundry":      orDefault(row["laundry_onsite"], false),
			"fitness":      orDefault(row["fitness_area"], false),
			"pet_friendly": orDefault(row["pet_friendly"], "No"),
		},
	}
}

func structureTour(row map[string]any) map[string]any {
	available := row["is_available"]
	if available == nil {
		available = row["status"] == "Scheduled"
	}
	return map[string]any{
		"slot_id":       firstNonNil(row["slot_id"], row["tour_id"], nil),
		"slot_date":     firstNonNil(row["slot_date"], row["scheduled_date"], nil),
		"slot_time":     firstNonNil(row["slot_time"], row["scheduled_time"], nil),
		"room_id":       row["room_id"],
		"room_number":   row["room_number"],
		"building_name": row["building_name"],
		"is_available":  available,
		"duration":      firstNonNil(row["slot_duration"], row["duration_minutes"], 30),
		"status":        row["status"],
		"tour_type":     row["tour_type"],
	}
}

func structureAnalytics(row map[string]any) map[string]any {
	if _, ok := row["building_name"]; ok {
		return map[string]any{
			"metric_name":   orDefault(row["metric_name"], "Building Metric"),
			"metric_value":  firstNonNil(row["metric_value"], firstNonNil(row["total_revenue"], firstNonNil(row["occupancy_rate"], row["total_rooms"], 0), 0), 0),
			"time_period":   row["time_period"],
			"building_name": row["building_name"],
			"comparison": map[string]any{
				"previous_period":   row["previous_value"],
				"change_percentage": row["change_percentage"],
			},
			"details": map[string]any{
				"total_count":     firstNonNil(row["total_count"], row["total_rooms"], nil),
				"percentage":      firstNonNil(row["percentage"], row["occupancy_rate"], nil),
				"average":         firstNonNil(row["average_value"], row["avg_rent"], nil),
				"available_rooms": row["available_rooms"],
				"occupied_rooms":  row["occupied_rooms"],
				"total_revenue":   row["total_revenue"],
			},
		}
	}
	return map[string]any{
		"metric_name":   orDefault(row["metric_name"], "System Metric"),
		"metric_value":  orDefault(row["metric_value"], 0),
		"time_period":   row["time_period"],
		"building_name": nil,
		"comparison": map[string]any{
			"previous_period":   row["previous_value"],
			"change_percentage": row["change_percentage"],
		},
		"details": map[string]any{
			"total_count": row["total_count"],
			"percentage":  row["percentage"],
			"average":     row["average_value"],
		},
	}
}

func structureTenant(row map[string]any) map[string]any {
	return map[string]any{
		"id":     row["tenant_id"],
		"name":   row["tenant_name"],
		"email":  row["tenant_email"],
		"phone":  row["phone"],
		"status": orDefault(row["status"], "Unknown"),
		"room": map[string]any{
			"id":            row["room_id"],
			"number":        fmt.Sprintf("%v", orDefault(row["room_number"], "")),
			"building_name": row["building_name"],
		},
		"lease": map[string]any{
			"start_date":   row["lease_start_date"],
			"end_date":     row["lease_end_date"],
			"booking_type": row["booking_type"],
		},
		"payment": map[string]any{
			"status":       row["payment_status"],
			"last_payment": row["last_payment_date"],
			"next_payment": row["next_payment_date"],
			"deposit":      row["deposit_amount"],
		},
	}
}

func structureLead(row map[string]any) map[string]any {
	return map[string]any{
		"id":                row["lead_id"],
		"email":             row["email"],
		"status":            orDefault(row["status"], "Unknown"),
		"interaction_count": orDefault(row["interaction_count"], 0),
		"selected_room": map[string]any{
			"id":     row["selected_room_id"],
			"number": fmt.Sprintf("%v", orDefault(row["room_number"], "")),
		},
		"timeline": map[string]any{
			"planned_move_in":  row["planned_move_in"],
			"planned_move_out": row["planned_move_out"],
			"last_contacted":   row["last_contacted"],
			"next_follow_up":   row["next_follow_up"],
		},
		"preferences": map[string]any{
			"budget_min":           row["budget_min"],
			"budget_max":           row["budget_max"],
			"preferred_lease_term": row["preferred_lease_term"],
		},
	}
}

func structureMaintenance(row map[string]any) map[string]any {
	return map[string]any{
		"id":          row["request_id"],
		"title":       row["title"],
		"description": row["description"],
		"status":      orDefault(row["status"], "Unknown"),
		"priority":    orDefault(row["priority"], "Medium"),
		"room": map[string]any{
			"id":            row["room_id"],
			"number":        fmt.Sprintf("%v", orDefault(row["room_number"], "")),
			"building_name": row["building_name"],
		},
		"tenant": map[string]any{
			"id":   row["tenant_id"],
			"name": row["tenant_name"],
		},
		"timeline": map[string]any{
			"created_at":           row["created_at"],
			"updated_at":           row["updated_at"],
			"estimated_completion": row["estimated_completion"],
		},
	}
}

func orDefault(value, fallback any) any {
	if value == nil {
		return fallback
	}
	return value
}

func firstNonNil(a, b, fallback any) any {
	if a != nil {
		return a
	}
	if b != nil {
		return b
	}
	return fallback
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		var f float64
		fmt.Sscanf(v, "%f", &f)
		return f
	}
	return 0
}
