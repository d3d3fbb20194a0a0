// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyResult(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		sql      string
		expected ResultType
	}{
		{"Occupancy is analytics", "What's the occupancy rate by building?", "SELECT ...", ResultAnalytics},
		{"Aggregate SQL is analytics", "rooms per building", "SELECT COUNT(r.room_id) FROM rooms r", ResultAnalytics},
		{"Tenant query", "List active tenants", "SELECT * FROM tenants", ResultTenantManagement},
		{"Tour query", "Show available tour slots tomorrow", "SELECT * FROM tour_availability_slots", ResultTourScheduling},
		{"Lead query", "Show interested prospects", "SELECT * FROM leads", ResultLeadManagement},
		{"Maintenance query", "Open repair requests", "SELECT * FROM maintenance_requests", ResultMaintenance},
		{"Property query", "Find available rooms under $1200", "SELECT * FROM rooms", ResultPropertySearch},
		{"Unmatched query", "tell me something", "SELECT 1", ResultGeneric},
		// Analytics outranks tenant when both match.
		{"Analytics beats tenant", "total tenants per building", "SELECT ...", ResultAnalytics},
		// Tenant outranks property when both match.
		{"Tenant beats property", "rooms with active tenants", "SELECT ...", ResultTenantManagement},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyResult(tc.query, tc.sql))
		})
	}
}

func TestClassifyResult_Idempotent(t *testing.T) {
	query := "Find available rooms under $1200"
	sql := "SELECT * FROM rooms WHERE status = 'Available'"
	first := ClassifyResult(query, sql)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ClassifyResult(query, sql))
	}
}

func TestStructureRows_PropertySearch(t *testing.T) {
	rows := []map[string]any{{
		"room_id":           "BLDG_1080_FOLSOM_R011",
		"room_number":       101,
		"private_room_rent": 1150.0,
		"status":            "Available",
		"building_id":       "BLDG_1080_FOLSOM",
		"building_name":     "1080 Folsom Residences",
		"full_address":      "1080 Folsom St",
		"wifi_included":     true,
	}}

	structured := StructureRows(rows, ResultPropertySearch)
	require.Len(t, structured, 1)
	row := structured[0]

	// Contract fields are always present.
	for _, field := range []string{"id", "title", "rent", "status", "building", "details", "amenities"} {
		assert.Contains(t, row, field)
	}
	assert.Equal(t, "BLDG_1080_FOLSOM_R011", row["id"])
	assert.Equal(t, "Room 101 - 1080 Folsom Residences", row["title"])
	assert.Equal(t, 1150.0, row["rent"])

	building := row["building"].(map[string]any)
	assert.Equal(t, "1080 Folsom St", building["address"])

	amenities := row["amenities"].(map[string]any)
	assert.Equal(t, true, amenities["wifi"])
	assert.Equal(t, false, amenities["laundry"])
	assert.Equal(t, "No", amenities["pet_friendly"])
}

func TestStructureRows_PropertySearchDefaults(t *testing.T) {
	// An empty source row still yields the full contract shape.
	structured := StructureRows([]map[string]any{{}}, ResultPropertySearch)
	require.Len(t, structured, 1)
	row := structured[0]

	assert.Equal(t, "Room N/A - Unknown Building", row["title"])
	assert.Equal(t, 0.0, row["rent"])
	assert.Equal(t, "Unknown", row["status"])
	assert.Contains(t, row, "building")
	assert.Contains(t, row, "details")
	assert.Contains(t, row, "amenities")
}

func TestStructureRows_Tour(t *testing.T) {
	rows := []map[string]any{{
		"tour_id":        "T-99",
		"scheduled_date": "2025-09-23",
		"scheduled_time": "14:00",
		"status":         "Scheduled",
	}}

	structured := StructureRows(rows, ResultTourScheduling)
	row := structured[0]
	assert.Equal(t, "T-99", row["slot_id"])
	assert.Equal(t, "2025-09-23", row["slot_date"])
	assert.Equal(t, "14:00", row["slot_time"])
	assert.Equal(t, true, row["is_available"])
	assert.Equal(t, 30, row["duration"])
}

func TestStructureRows_AnalyticsWithBuilding(t *testing.T) {
	rows := []map[string]any{{
		"building_name":  "1080 Folsom Residences",
		"occupancy_rate": 85.0,
		"total_rooms":    45,
	}}

	structured := StructureRows(rows, ResultAnalytics)
	row := structured[0]
	assert.Equal(t, "Building Metric", row["metric_name"])
	assert.Equal(t, 85.0, row["metric_value"])
	assert.Equal(t, "1080 Folsom Residences", row["building_name"])

	details := row["details"].(map[string]any)
	assert.Equal(t, 45, details["total_count"])
	assert.Equal(t, 85.0, details["percentage"])
}

func TestStructureRows_Generic(t *testing.T) {
	src := map[string]any{"anything": 1}
	structured := StructureRows([]map[string]any{src}, ResultGeneric)
	row := structured[0]
	assert.Equal(t, "generic", row["type"])
	assert.Equal(t, src, row["data"])
}
