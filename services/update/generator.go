// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package update

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/homewiz/querygate/services/llm"
	"github.com/homewiz/querygate/services/nlquery"
	"github.com/homewiz/querygate/services/schema"
	"github.com/homewiz/querygate/services/store"
)

// Generator turns a natural-language request into a write Specification.
type Generator interface {
	GenerateUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) Specification
}

// updateRoleTables maps a permission level to the tables it may write.
// Write scope is deliberately narrower than read scope; basic users
// write nothing.
var updateRoleTables = map[string][]string{
	"admin":   {"rooms", "buildings", "tenants", "leads", "operators", "maintenance_requests"},
	"manager": {"rooms", "tenants", "maintenance_requests"},
	"agent":   {"leads"},
}

// primaryKeys lists the immutable identifier column per writable table.
// These never appear as assignment targets and are excluded from the
// updateable-column listing shown to the model.
var primaryKeys = map[string]string{
	"rooms":                   "room_id",
	"buildings":               "building_id",
	"tenants":                 "tenant_id",
	"leads":                   "lead_id",
	"operators":               "operator_id",
	"maintenance_requests":    "request_id",
	"tour_bookings":           "tour_id",
	"tour_availability_slots": "slot_id",
}

var validOperators = map[string]bool{
	"eq": true, "neq": true, "gt": true, "gte": true, "lt": true,
	"lte": true, "like": true, "ilike": true, "in": true, "is": true,
}

// queryReplacements rewrite common phrasings into the vocabulary the
// prompt examples use, so the model is less likely to invent columns.
var queryReplacements = [][2]string{
	{"has fitness center set", "fitness_area to"},
	{"wifi included", "wifi_included"},
	{"fitness center", "fitness_area"},
	{"Modify", "Update"},
	{"set True", "to true"},
	{"set False", "to false"},
}

// LLMGenerator is the production write Generator. Whatever the model
// returns is validated against the catalog and the caller's write scope
// before it is allowed anywhere near the executor.
type LLMGenerator struct {
	client  llm.LLMClient
	catalog *schema.Catalog
}

func NewLLMGenerator(client llm.LLMClient, catalog *schema.Catalog) *LLMGenerator {
	if client == nil {
		panic("update: NewLLMGenerator called with nil LLM client")
	}
	if catalog == nil {
		panic("update: NewLLMGenerator called with nil catalog")
	}
	return &LLMGenerator{client: client, catalog: catalog}
}

// GenerateUpdate implements Generator.
//
// It performs the following operations:
//  1. Rewrites common phrasings into prompt vocabulary.
//  2. Resolves the caller's writable tables from their permissions.
//  3. Prompts the LLM for a JSON update specification.
//  4. Validates the result: table scope, column existence, primary-key
//     immutability, mandatory conditions, and operator set.
func (g *LLMGenerator) GenerateUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) Specification {
	start := time.Now()
	query := preprocessQuery(naturalQuery)
	allowed := g.AllowedTables(user)

	prompt := g.buildPrompt(query, allowed, user)
	temp := float32(0)
	reply, err := g.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temp,
		JSONMode:    true,
		System:      "You are an update specification generator for a property management database. Reply with a single JSON object.",
	})
	if err != nil {
		return Specification{Success: false, Error: err.Error()}
	}

	spec, err := parseUpdateReply(reply)
	if err != nil {
		return Specification{Success: false, Error: err.Error()}
	}
	if err := g.validate(spec, allowed); err != nil {
		return Specification{Success: false, Error: err.Error()}
	}

	spec.Success = true
	spec.GenerationTime = time.Since(start).Seconds()
	return spec
}

// AllowedTables resolves the write scope for a permission set. Unknown
// permission sets get no write access at all.
func (g *LLMGenerator) AllowedTables(user nlquery.UserContext) []string {
	for _, level := range []string{"admin", "manager", "agent"} {
		if user.HasPermission(level) {
			return updateRoleTables[level]
		}
	}
	return nil
}

func preprocessQuery(query string) string {
	for _, r := range queryReplacements {
		query = strings.ReplaceAll(query, r[0], r[1])
	}
	return query
}

// validate rejects any specification that touches something outside the
// catalog or the caller's scope. Every path returns a caller-facing
// error; none of these conditions is recoverable by retrying.
func (g *LLMGenerator) validate(spec Specification, allowed []string) error {
	if spec.Table == "" {
		return fmt.Errorf("No table specified")
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}
	if !allowedSet[spec.Table] {
		return fmt.Errorf("Table '%s' not allowed for updates", spec.Table)
	}
	if !g.catalog.HasTable(spec.Table) {
		return fmt.Errorf("Table '%s' does not exist", spec.Table)
	}

	if len(spec.UpdateData) == 0 {
		return fmt.Errorf("No update data specified")
	}
	for column := range spec.UpdateData {
		if g.catalog.Column(spec.Table, column) == nil {
			return fmt.Errorf("Column '%s' does not exist in table '%s'", column, spec.Table)
		}
		if primaryKeys[spec.Table] == column {
			return fmt.Errorf("Cannot update primary key column '%s'", column)
		}
	}

	if len(spec.Conditions) == 0 {
		return fmt.Errorf("No WHERE conditions - would update all rows!")
	}
	for _, cond := range spec.Conditions {
		if g.catalog.Column(spec.Table, cond.Column) == nil {
			return fmt.Errorf("WHERE column '%s' does not exist", cond.Column)
		}
		if !validOperators[cond.Operator] {
			return fmt.Errorf("Invalid operator '%s'", cond.Operator)
		}
	}
	return nil
}

// parseUpdateReply parses the model reply, tolerating code fences. The
// wire shape carries conditions as [column, operator, value] triples.
func parseUpdateReply(reply string) (Specification, error) {
	cleaned := stripCodeFence(reply)

	var raw struct {
		Table         string          `json:"table"`
		UpdateData    map[string]any  `json:"update_data"`
		Conditions    [][]any         `json:"where_conditions"`
		Explanation   string          `json:"explanation"`
		EstimatedRows json.RawMessage `json:"estimated_rows"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Specification{}, fmt.Errorf("Failed to parse response: %v", err)
	}

	for _, field := range []struct {
		name    string
		missing bool
	}{
		{"table", raw.Table == ""},
		{"update_data", raw.UpdateData == nil},
		{"where_conditions", raw.Conditions == nil},
		{"explanation", raw.Explanation == ""},
	} {
		if field.missing {
			return Specification{}, fmt.Errorf("Missing required field: %s", field.name)
		}
	}

	conditions := make([]store.Condition, 0, len(raw.Conditions))
	for _, triple := range raw.Conditions {
		if len(triple) != 3 {
			return Specification{}, fmt.Errorf("Invalid where condition format: %v", triple)
		}
		column, okCol := triple[0].(string)
		operator, okOp := triple[1].(string)
		if !okCol || !okOp {
			return Specification{}, fmt.Errorf("Invalid where condition format: %v", triple)
		}
		conditions = append(conditions, store.Condition{Column: column, Operator: operator, Value: triple[2]})
	}

	return Specification{
		Table:         raw.Table,
		UpdateData:    raw.UpdateData,
		Conditions:    conditions,
		Explanation:   raw.Explanation,
		EstimatedRows: parseEstimatedRows(raw.EstimatedRows),
	}, nil
}

func parseEstimatedRows(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		fmt.Sscanf(s, "%d", &n)
	}
	return n
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// buildPrompt assembles the write-generation prompt: updateable columns
// only, the caller's table scope, valid enum values, and worked examples
// covering the building_id versus building_name distinction.
func (g *LLMGenerator) buildPrompt(query string, allowed []string, user nlquery.UserContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NATURAL LANGUAGE UPDATE REQUEST: %q\n\n", query)
	fmt.Fprintf(&b, "USER PERMISSIONS: Can update tables: %s\n", strings.Join(allowed, ", "))
	fmt.Fprintf(&b, "USER ROLE: %s\n\n", user.Role)

	b.WriteString("EXACT DATABASE SCHEMA (USE ONLY THESE):\n")
	b.WriteString(g.formatUpdateableSchema(allowed))

	b.WriteString("\nVALID COLUMN VALUES:\n")
	b.WriteString(g.formatValues(allowed))

	b.WriteString(`
STRICT RULES:
1. Return ONLY a JSON object with the exact structure shown below.
2. Use ONLY the table names listed under USER PERMISSIONS.
3. Use ONLY the column names shown in the schema.
4. For enum columns use EXACT values from VALID COLUMN VALUES (case-sensitive).
5. For boolean_string columns use the strings "true" or "false".
6. ALWAYS include where_conditions to prevent mass updates.
7. Match on unique identifiers when possible (room_id, tenant_id, etc.).
8. If the value looks like "BLDG_XXX" it is a building_id; a readable name like "1080 Folsom Residences" is a building_name. NEVER use building_name for BLDG_ prefixed values.

OPERATORS AVAILABLE: eq, neq, gt, gte, lt, lte, like, ilike, in, is

REQUIRED JSON FORMAT:
{
    "table": "table_name",
    "update_data": {"column_name": "value"},
    "where_conditions": [["column_name", "operator", "value"]],
    "explanation": "Clear explanation of what will be updated",
    "estimated_rows": 1
}

EXAMPLES:

Request: "change room 101 status to occupied"
{"table": "rooms", "update_data": {"status": "Occupied"}, "where_conditions": [["room_number", "eq", 101]], "explanation": "Updates room 101 status to Occupied", "estimated_rows": 1}

Request: "mark all rooms in building BLDG_1080_FOLSOM as available"
{"table": "rooms", "update_data": {"status": "Available"}, "where_conditions": [["building_id", "eq", "BLDG_1080_FOLSOM"]], "explanation": "Updates all rooms in building BLDG_1080_FOLSOM to Available status", "estimated_rows": 15}

Request: "set 1080 Folsom Residences wifi to true"
{"table": "buildings", "update_data": {"wifi_included": "true"}, "where_conditions": [["building_name", "eq", "1080 Folsom Residences"]], "explanation": "Updates 1080 Folsom Residences to include wifi", "estimated_rows": 1}

Generate the update specification for the user's request.
`)
	return b.String()
}

// formatUpdateableSchema renders the writable tables with their
// updateable columns. Primary keys are omitted entirely so the model
// never sees them as targets.
func (g *LLMGenerator) formatUpdateableSchema(allowed []string) string {
	var b strings.Builder
	for _, name := range allowed {
		table := g.catalog.Table(name)
		if table == nil {
			continue
		}
		fmt.Fprintf(&b, "\nTABLE: %s\n", name)
		if table.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", table.Description)
		}
		b.WriteString("  UPDATEABLE COLUMNS:\n")
		for _, col := range table.Columns {
			if primaryKeys[name] == col.Name {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", col.Name, col.Type)
		}
	}
	return b.String()
}

func (g *LLMGenerator) formatValues(allowed []string) string {
	var b strings.Builder
	for _, name := range allowed {
		table := g.catalog.Table(name)
		if table == nil {
			continue
		}
		wrote := false
		for _, col := range table.Columns {
			if len(col.Values) == 0 {
				continue
			}
			if !wrote {
				fmt.Fprintf(&b, "\n### %s\n", strings.ToUpper(name))
				wrote = true
			}
			fmt.Fprintf(&b, "- %s: %s\n", col.Name, strings.Join(col.Values, ", "))
		}
	}
	return b.String()
}
