// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/homewiz/querygate/services/llm"
	"github.com/homewiz/querygate/services/schema"
)

// Generator turns a natural-language request into a QuerySpecification.
// The production implementation calls an LLM; tests substitute mocks.
type Generator interface {
	GenerateSQL(ctx context.Context, naturalQuery string, user UserContext) QuerySpecification
}

// permissionKeywords mark an interpreter reply as a permission refusal
// rather than a generation failure. Checked case-insensitively against
// the raw reply when it is not parseable JSON.
var permissionKeywords = []string{
	"permission", "not allowed", "can't access", "cannot access",
	"restricted", "unauthorized", "don't have access", "requires elevated",
}

// dangerousSQL lists statement keywords that are never allowed through,
// whatever the interpreter claims about them.
var dangerousSQL = []string{"DROP", "TRUNCATE", "ALTER", "CREATE", "EXEC", "EXECUTE"}

// roleTables maps a permission level to the tables it may read. Admin is
// resolved dynamically to the whole catalog.
var roleTables = map[string][]string{
	"manager": {"rooms", "buildings", "tenants", "leads", "operators", "maintenance_requests", "scheduled_events"},
	"agent":   {"rooms", "buildings", "leads", "scheduled_events", "announcements"},
	"lead":    {"rooms", "buildings"},
	"basic":   {"rooms", "buildings"},
}

// LLMGenerator is the production Generator: it prompts an LLM with the
// exact schema, the caller's table scope, and the catalog's known-good
// values, then screens whatever comes back.
type LLMGenerator struct {
	client  llm.LLMClient
	catalog *schema.Catalog
}

// NewLLMGenerator constructs the generator. Panics on nil dependencies;
// wiring errors are programmer errors, not runtime conditions.
func NewLLMGenerator(client llm.LLMClient, catalog *schema.Catalog) *LLMGenerator {
	if client == nil {
		panic("nlquery: NewLLMGenerator called with nil LLM client")
	}
	if catalog == nil {
		panic("nlquery: NewLLMGenerator called with nil catalog")
	}
	return &LLMGenerator{client: client, catalog: catalog}
}

// GenerateSQL implements Generator.
//
// It performs the following operations:
//  1. Resolves the caller's allowed tables from their permissions.
//  2. Prompts the LLM with the exact schema and valid values.
//  3. Parses the reply, falling back to keyword and pattern extraction
//     when the reply is not the requested JSON.
//  4. Screens the SQL for dangerous statements and unauthorized tables,
//     regenerating once with corrective feedback on failure.
func (g *LLMGenerator) GenerateSQL(ctx context.Context, naturalQuery string, user UserContext) QuerySpecification {
	start := time.Now()
	allowed := g.AllowedTables(user)
	prompt := g.buildPrompt(naturalQuery, allowed, user)

	spec := g.generate(ctx, prompt)
	spec.GenerationTime = time.Since(start).Seconds()
	if !spec.Success {
		return spec
	}

	if errs := g.screen(spec, allowed, user); len(errs) > 0 {
		slog.Warn("Generated SQL failed screening, regenerating", "errors", errs)
		spec = g.regenerate(ctx, naturalQuery, allowed, errs)
		spec.GenerationTime = time.Since(start).Seconds()
		if !spec.Success {
			return spec
		}
		if errs := g.screen(spec, allowed, user); len(errs) > 0 {
			return QuerySpecification{
				Success:     false,
				Error:       strings.Join(errs, "; "),
				Explanation: "Generated SQL failed validation",
			}
		}
	}
	return spec
}

// AllowedTables resolves the read scope for a permission set. Admin sees
// the whole catalog; unknown permission sets get the basic scope.
func (g *LLMGenerator) AllowedTables(user UserContext) []string {
	if user.HasPermission("admin") {
		return g.catalog.Tables()
	}
	for _, level := range []string{"manager", "agent", "lead"} {
		if user.HasPermission(level) {
			return roleTables[level]
		}
	}
	return roleTables["basic"]
}

func (g *LLMGenerator) generate(ctx context.Context, prompt string) QuerySpecification {
	temp := float32(0)
	reply, err := g.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temp,
		JSONMode:    true,
		System:      "You are a SQL generator for a property management database. Reply with a single JSON object.",
	})
	if err != nil {
		return QuerySpecification{
			Success:     false,
			Error:       err.Error(),
			Explanation: fmt.Sprintf("Failed to generate SQL: %v", err),
		}
	}
	return parseGeneratorReply(reply)
}

func (g *LLMGenerator) regenerate(ctx context.Context, naturalQuery string, allowed []string, errs []string) QuerySpecification {
	var b strings.Builder
	b.WriteString("Previous SQL generation failed with these errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	fmt.Fprintf(&b, "\nOriginal request: %q\n\n", naturalQuery)
	fmt.Fprintf(&b, "Regenerate the SQL. You can ONLY access these tables: %s. ", strings.Join(allowed, ", "))
	b.WriteString("If the request requires a forbidden table, do not generate SQL; explain that the user lacks permission to access that data. ")
	b.WriteString("Avoid dangerous operations and reply with the same JSON object format as before.")
	return g.generate(ctx, b.String())
}

// screen checks generated SQL for statements that must never execute and
// for tables outside the caller's scope.
func (g *LLMGenerator) screen(spec QuerySpecification, allowed []string, user UserContext) []string {
	var errs []string
	if strings.TrimSpace(spec.SQL) == "" {
		return []string{"No SQL generated"}
	}
	upper := strings.ToUpper(spec.SQL)
	for _, keyword := range dangerousSQL {
		if regexp.MustCompile(`\b` + keyword + `\b`).MatchString(upper) {
			errs = append(errs, fmt.Sprintf("Dangerous SQL operation detected: %s", keyword))
		}
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}
	var unauthorized []string
	for _, table := range g.catalog.Tables() {
		if !allowedSet[table] && regexp.MustCompile(`(?i)\b`+table+`\b`).MatchString(spec.SQL) {
			unauthorized = append(unauthorized, table)
		}
	}
	if len(unauthorized) > 0 {
		sort.Strings(unauthorized)
		errs = append(errs, fmt.Sprintf(
			"Unauthorized table access: %s. User with role '%s' can only access: %s",
			strings.Join(unauthorized, ", "), user.Role, strings.Join(allowed, ", ")))
	}
	return errs
}

// buildPrompt assembles the schema-grounded generation prompt. Everything
// the model may reference is stated explicitly; everything else is
// forbidden.
func (g *LLMGenerator) buildPrompt(naturalQuery string, allowed []string, user UserContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NATURAL LANGUAGE QUERY: %q\n\n", naturalQuery)
	fmt.Fprintf(&b, "USER PERMISSIONS: Can access tables: %s\n", strings.Join(allowed, ", "))
	fmt.Fprintf(&b, "USER ROLE: %s\n\n", user.Role)

	b.WriteString("EXACT DATABASE SCHEMA (YOU MUST USE THESE EXACT NAMES):\n")
	b.WriteString(g.formatSchema())

	b.WriteString("\nVALID COLUMN VALUES (USE ONLY THESE):\n")
	b.WriteString(g.formatValues())

	b.WriteString(`
STRICT RULES:
1. Use ONLY the table names listed under USER PERMISSIONS.
2. Use ONLY the column names shown in the schema.
3. Use ONLY the valid values listed for enum columns. If a requested value is not listed, omit that filter rather than inventing one.
4. ALWAYS use explicit JOIN conditions and table aliases.
5. Use proper PostgreSQL syntax and include a LIMIT clause for large result sets.
6. For property searches ALWAYS include r.room_id, r.room_number, r.private_room_rent, r.status, b.building_id, b.building_name, b.area.
7. For tenant queries ALWAYS include t.tenant_id, t.tenant_name, t.tenant_email, t.status.
8. For lead queries ALWAYS include l.lead_id, l.email, l.status, l.interaction_count.
9. Date-like TEXT columns must be compared via TO_DATE(column, 'YYYY-MM-DD'); never compare TEXT dates directly.
10. Generate exactly ONE SQL query.

REQUIRED OUTPUT FORMAT (JSON):
{
    "sql": "Valid PostgreSQL query using ONLY the schema above",
    "explanation": "Brief explanation of what the query does",
    "estimated_rows": 10,
    "tables_used": ["tables", "referenced"],
    "query_type": "SELECT"
}
`)
	return b.String()
}

// formatSchema renders the catalog tables the way the prompt needs them:
// exact names, declared types, nullability.
func (g *LLMGenerator) formatSchema() string {
	var b strings.Builder
	for _, name := range g.catalog.Tables() {
		table := g.catalog.Table(name)
		fmt.Fprintf(&b, "\nTABLE: %s\n", name)
		if table.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", table.Description)
		}
		for _, col := range table.Columns {
			constraint := ""
			if !col.Nullable {
				constraint = " (NOT NULL)"
			}
			fmt.Fprintf(&b, "  %s: %s%s\n", col.Name, col.Type, constraint)
		}
	}
	return b.String()
}

// formatValues renders enumerated values, numeric ranges, and date
// formats so the model cannot plead ignorance of what exists.
func (g *LLMGenerator) formatValues() string {
	var b strings.Builder
	for _, name := range g.catalog.Tables() {
		table := g.catalog.Table(name)
		wrote := false
		for _, col := range table.Columns {
			switch {
			case len(col.Values) > 0:
				if !wrote {
					fmt.Fprintf(&b, "\n### %s\n", strings.ToUpper(name))
					wrote = true
				}
				values := col.Values
				if len(values) > 8 {
					fmt.Fprintf(&b, "- %s: %s ... (and more)\n", col.Name, strings.Join(values[:5], ", "))
				} else {
					fmt.Fprintf(&b, "- %s: %s\n", col.Name, strings.Join(values, ", "))
				}
			case col.Range != nil:
				if !wrote {
					fmt.Fprintf(&b, "\n### %s\n", strings.ToUpper(name))
					wrote = true
				}
				fmt.Fprintf(&b, "- %s: numeric, range %g to %g\n", col.Name, col.Range.Min, col.Range.Max)
			case col.DateFormat != "":
				if !wrote {
					fmt.Fprintf(&b, "\n### %s\n", strings.ToUpper(name))
					wrote = true
				}
				fmt.Fprintf(&b, "- %s: date as TEXT, format %s\n", col.Name, col.DateFormat)
			}
		}
	}
	return b.String()
}

// parseGeneratorReply parses the model reply into a specification,
// tolerating code fences and falling back to pattern extraction for
// non-JSON replies.
func parseGeneratorReply(reply string) QuerySpecification {
	cleaned := stripCodeFence(reply)

	var raw struct {
		SQL           string          `json:"sql"`
		Explanation   string          `json:"explanation"`
		EstimatedRows json.RawMessage `json:"estimated_rows"`
		TablesUsed    []string        `json:"tables_used"`
		QueryType     string          `json:"query_type"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return fallbackParse(reply)
	}

	return QuerySpecification{
		Success:       raw.SQL != "",
		SQL:           strings.TrimSuffix(strings.TrimSpace(raw.SQL), ";"),
		Explanation:   raw.Explanation,
		EstimatedRows: parseEstimatedRows(raw.EstimatedRows),
		TablesUsed:    raw.TablesUsed,
		QueryType:     defaultString(raw.QueryType, "SELECT"),
		Error:         errIfEmpty(raw.SQL, "No SQL in generator reply"),
	}
}

var (
	sqlExtractPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)UPDATE.*?(?:WHERE.*?)?(?:;|$)`),
		regexp.MustCompile(`(?is)SELECT.*?(?:;|$)`),
		regexp.MustCompile(`(?is)SELECT.*`),
	}
	tableRefPattern = regexp.MustCompile(`(?i)(?:FROM|JOIN|UPDATE|INSERT\s+INTO)\s+(\w+)`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// fallbackParse handles replies that ignored the JSON contract: a prose
// permission refusal, or SQL wrapped in commentary.
func fallbackParse(reply string) QuerySpecification {
	lower := strings.ToLower(reply)
	for _, keyword := range permissionKeywords {
		if strings.Contains(lower, keyword) {
			return QuerySpecification{
				Success:           false,
				Error:             "Permission Denied",
				Explanation:       strings.TrimSpace(reply),
				IsPermissionError: true,
				QueryType:         "PERMISSION_DENIED",
			}
		}
	}

	var sql string
	for _, pattern := range sqlExtractPatterns {
		if match := pattern.FindString(reply); match != "" {
			sql = strings.TrimSuffix(whitespaceRun.ReplaceAllString(strings.TrimSpace(match), " "), ";")
			break
		}
	}
	if sql == "" {
		return QuerySpecification{
			Success:     false,
			Error:       "Non-JSON response format",
			Explanation: "Could not extract SQL from reply",
		}
	}

	tableSet := map[string]bool{}
	var tables []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if !tableSet[name] {
			tableSet[name] = true
			tables = append(tables, name)
		}
	}
	if len(tables) == 0 {
		tables = []string{"rooms", "buildings"}
	}

	return QuerySpecification{
		Success:       true,
		SQL:           sql,
		Explanation:   "Extracted from response",
		EstimatedRows: 10,
		TablesUsed:    tables,
		QueryType:     "SELECT",
	}
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

// parseEstimatedRows accepts both a JSON number and the quoted numbers
// some models produce.
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

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func errIfEmpty(s, msg string) string {
	if s == "" {
		return msg
	}
	return ""
}
