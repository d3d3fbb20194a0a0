// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateOperator(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		expected string
	}{
		{"Equality", "eq", "="},
		{"Inequality", "neq", "<>"},
		{"Greater than", "gt", ">"},
		{"Greater or equal", "gte", ">="},
		{"Less than", "lt", "<"},
		{"Less or equal", "lte", "<="},
		{"Like", "like", "LIKE"},
		{"Case-insensitive like", "ilike", "ILIKE"},
		{"Membership", "in", "IN"},
		{"Null check", "is", "IS"},
		{"Uppercase accepted", "GT", ">"},
		{"Unknown operator falls back to eq", "between", "="},
		{"Empty operator falls back to eq", "", "="},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TranslateOperator(tc.operator))
		})
	}
}

func TestBuildSelect(t *testing.T) {
	query, args := buildSelect("rooms", []Condition{
		{Column: "status", Operator: "eq", Value: "Available"},
		{Column: "private_room_rent", Operator: "lte", Value: 1200},
	}, 50)

	assert.Equal(t, `SELECT * FROM "rooms" WHERE "status" = $1 AND "private_room_rent" <= $2 LIMIT 50`, query)
	assert.Equal(t, []any{"Available", 1200}, args)
}

func TestBuildSelect_NoConditionsNoLimit(t *testing.T) {
	query, args := buildSelect("buildings", nil, 0)
	assert.Equal(t, `SELECT * FROM "buildings"`, query)
	assert.Empty(t, args)
}

func TestBuildSelect_InOperator(t *testing.T) {
	query, args := buildSelect("rooms", []Condition{
		{Column: "status", Operator: "in", Value: []any{"Available", "Maintenance"}},
	}, 0)

	assert.Equal(t, `SELECT * FROM "rooms" WHERE "status" IN ($1, $2)`, query)
	assert.Equal(t, []any{"Available", "Maintenance"}, args)
}

func TestBuildSelect_InOperatorEmptyList(t *testing.T) {
	query, args := buildSelect("rooms", []Condition{
		{Column: "status", Operator: "in", Value: []any{}},
	}, 0)

	assert.Equal(t, `SELECT * FROM "rooms" WHERE FALSE`, query)
	assert.Empty(t, args)
}

func TestBuildSelect_IsOperator(t *testing.T) {
	query, args := buildSelect("tenants", []Condition{
		{Column: "room_id", Operator: "is", Value: nil},
	}, 0)
	assert.Equal(t, `SELECT * FROM "tenants" WHERE "room_id" IS NULL`, query)
	assert.Empty(t, args)

	query, _ = buildSelect("tenants", []Condition{
		{Column: "room_id", Operator: "is", Value: "not null"},
	}, 0)
	assert.Equal(t, `SELECT * FROM "tenants" WHERE "room_id" IS NOT NULL`, query)
}

func TestBuildSelect_UnknownOperatorBecomesEquality(t *testing.T) {
	query, args := buildSelect("rooms", []Condition{
		{Column: "status", Operator: "between", Value: []any{1, 5}},
	}, 0)

	assert.Equal(t, `SELECT * FROM "rooms" WHERE "status" = $1`, query)
	assert.Equal(t, []any{[]any{1, 5}}, args)
}

func TestBuildUpdate(t *testing.T) {
	query, args := buildUpdate("rooms",
		map[string]any{"status": "Maintenance", "ready_to_rent": "false"},
		[]Condition{{Column: "room_id", Operator: "eq", Value: "BLDG_1080_FOLSOM_R001"}},
	)

	// Assignment columns are sorted, so placeholder order is stable.
	assert.Equal(t, `UPDATE "rooms" SET "ready_to_rent" = $1, "status" = $2 WHERE "room_id" = $3 RETURNING *`, query)
	assert.Equal(t, []any{"false", "Maintenance", "BLDG_1080_FOLSOM_R001"}, args)
}

func TestQuoteIdent_EscapesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}
