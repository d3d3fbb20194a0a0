// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiz/querygate/services/llm"
	"github.com/homewiz/querygate/services/nlquery"
	"github.com/homewiz/querygate/services/schema"
	"github.com/homewiz/querygate/services/store"
)

type scriptedLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func newTestGenerator(t *testing.T, client llm.LLMClient) *LLMGenerator {
	t.Helper()
	catalog, err := schema.NewCatalog()
	require.NoError(t, err)
	return NewLLMGenerator(client, catalog)
}

func adminUser() nlquery.UserContext {
	return nlquery.UserContext{Role: "admin", Permissions: []string{"admin"}}
}

func TestParseUpdateReply(t *testing.T) {
	reply := `{
		"table": "rooms",
		"update_data": {"status": "Occupied"},
		"where_conditions": [["room_number", "eq", 101]],
		"explanation": "Updates room 101 status to Occupied",
		"estimated_rows": 1
	}`

	spec, err := parseUpdateReply(reply)
	require.NoError(t, err)

	assert.Equal(t, "rooms", spec.Table)
	assert.Equal(t, map[string]any{"status": "Occupied"}, spec.UpdateData)
	require.Len(t, spec.Conditions, 1)
	assert.Equal(t, store.Condition{Column: "room_number", Operator: "eq", Value: float64(101)}, spec.Conditions[0])
	assert.Equal(t, 1, spec.EstimatedRows)
}

func TestParseUpdateReply_Fenced(t *testing.T) {
	reply := "```json\n{\"table\": \"leads\", \"update_data\": {\"status\": \"Contacted\"}, \"where_conditions\": [[\"lead_id\", \"eq\", \"L-1\"]], \"explanation\": \"x\"}\n```"
	spec, err := parseUpdateReply(reply)
	require.NoError(t, err)
	assert.Equal(t, "leads", spec.Table)
}

func TestParseUpdateReply_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"No table", `{"update_data": {"a": 1}, "where_conditions": [], "explanation": "x"}`, "Missing required field: table"},
		{"No update data", `{"table": "rooms", "where_conditions": [], "explanation": "x"}`, "Missing required field: update_data"},
		{"No conditions key", `{"table": "rooms", "update_data": {"a": 1}, "explanation": "x"}`, "Missing required field: where_conditions"},
		{"No explanation", `{"table": "rooms", "update_data": {"a": 1}, "where_conditions": []}`, "Missing required field: explanation"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseUpdateReply(tc.reply)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestParseUpdateReply_BadConditionShape(t *testing.T) {
	_, err := parseUpdateReply(`{"table": "rooms", "update_data": {"status": "Occupied"}, "where_conditions": [["room_number", "eq"]], "explanation": "x"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid where condition format")
}

func TestParseUpdateReply_NotJSON(t *testing.T) {
	_, err := parseUpdateReply("I cannot do that.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse response")
}

func TestValidateSpec(t *testing.T) {
	gen := newTestGenerator(t, &scriptedLLM{})
	allowed := updateRoleTables["admin"]

	base := func() Specification {
		return Specification{
			Table:      "rooms",
			UpdateData: map[string]any{"status": "Occupied"},
			Conditions: []store.Condition{{Column: "room_number", Operator: "eq", Value: 101}},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, gen.validate(base(), allowed))
	})

	t.Run("Table not allowed", func(t *testing.T) {
		spec := base()
		spec.Table = "tenants"
		err := gen.validate(spec, updateRoleTables["agent"])
		require.Error(t, err)
		assert.Equal(t, "Table 'tenants' not allowed for updates", err.Error())
	})

	t.Run("Hallucinated column", func(t *testing.T) {
		spec := base()
		spec.UpdateData = map[string]any{"rooftop_access": true}
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "Column 'rooftop_access' does not exist in table 'rooms'", err.Error())
	})

	t.Run("Primary key immutable", func(t *testing.T) {
		spec := base()
		spec.UpdateData = map[string]any{"room_id": "NEW_ID"}
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "Cannot update primary key column 'room_id'", err.Error())
	})

	t.Run("Conditions mandatory", func(t *testing.T) {
		spec := base()
		spec.Conditions = nil
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "No WHERE conditions - would update all rows!", err.Error())
	})

	t.Run("Unknown WHERE column", func(t *testing.T) {
		spec := base()
		spec.Conditions = []store.Condition{{Column: "imaginary", Operator: "eq", Value: 1}}
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "WHERE column 'imaginary' does not exist", err.Error())
	})

	t.Run("Invalid operator", func(t *testing.T) {
		spec := base()
		spec.Conditions = []store.Condition{{Column: "room_number", Operator: "between", Value: 1}}
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "Invalid operator 'between'", err.Error())
	})

	t.Run("Empty update data", func(t *testing.T) {
		spec := base()
		spec.UpdateData = map[string]any{}
		err := gen.validate(spec, allowed)
		require.Error(t, err)
		assert.Equal(t, "No update data specified", err.Error())
	})
}

func TestAllowedTables(t *testing.T) {
	gen := newTestGenerator(t, &scriptedLLM{})

	tests := []struct {
		name     string
		user     nlquery.UserContext
		expected []string
	}{
		{"Admin", adminUser(), []string{"rooms", "buildings", "tenants", "leads", "operators", "maintenance_requests"}},
		{"Manager", nlquery.UserContext{Role: "manager", Permissions: []string{"manager"}}, []string{"rooms", "tenants", "maintenance_requests"}},
		{"Agent", nlquery.UserContext{Role: "agent", Permissions: []string{"agent"}}, []string{"leads"}},
		{"Basic writes nothing", nlquery.DefaultUserContext(), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, gen.AllowedTables(tc.user))
		})
	}
}

func TestPreprocessQuery(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"update building X fitness center to true", "update building X fitness_area to true"},
		{"Modify room 101 status", "Update room 101 status"},
		{"set wifi included set True", "set wifi_included to true"},
		{"plain request", "plain request"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, preprocessQuery(tc.in))
	}
}

func TestGenerateUpdate_EndToEnd(t *testing.T) {
	client := &scriptedLLM{reply: `{
		"table": "rooms",
		"update_data": {"status": "Available"},
		"where_conditions": [["building_id", "eq", "BLDG_1080_FOLSOM"]],
		"explanation": "Updates all rooms in building BLDG_1080_FOLSOM to Available status",
		"estimated_rows": 15
	}`}
	gen := newTestGenerator(t, client)

	spec := gen.GenerateUpdate(context.Background(), "mark all rooms in building BLDG_1080_FOLSOM as available", adminUser())

	assert.True(t, spec.Success)
	assert.Equal(t, "rooms", spec.Table)
	assert.Equal(t, 15, spec.EstimatedRows)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Can update tables: rooms, buildings, tenants, leads, operators, maintenance_requests")
	assert.Contains(t, prompt, "UPDATEABLE COLUMNS:")
	// Primary keys never appear as assignment targets.
	assert.NotContains(t, prompt, "room_id: text")
}

func TestGenerateUpdate_RejectsOutOfScopeTable(t *testing.T) {
	client := &scriptedLLM{reply: `{
		"table": "tenants",
		"update_data": {"status": "Active"},
		"where_conditions": [["tenant_id", "eq", "T-1"]],
		"explanation": "x"
	}`}
	gen := newTestGenerator(t, client)
	agent := nlquery.UserContext{Role: "agent", Permissions: []string{"agent"}}

	spec := gen.GenerateUpdate(context.Background(), "activate tenant T-1", agent)

	assert.False(t, spec.Success)
	assert.Equal(t, "Table 'tenants' not allowed for updates", spec.Error)
}
