// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// sqlOperators maps the specification operator set onto SQL. Anything
// outside this set is substituted with equality rather than rejected:
// the interpreter occasionally invents operators ("between"), and a
// conservative filter beats a failed request.
var sqlOperators = map[string]string{
	"eq":    "=",
	"neq":   "<>",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "ILIKE",
	"in":    "IN",
	"is":    "IS",
}

// TranslateOperator resolves a specification operator to its SQL form.
// Unknown operators log a warning and fall back to "=".
func TranslateOperator(op string) string {
	sqlOp, ok := sqlOperators[strings.ToLower(op)]
	if !ok {
		slog.Warn("Unknown condition operator, substituting eq", "operator", op)
		return "="
	}
	return sqlOp
}

// buildWhere renders conditions as a WHERE clause with numbered
// placeholders, returning the clause (including the leading " WHERE",
// empty when there are no conditions) and the ordered argument list.
//
// Placeholder numbering starts at startArg so assignment arguments can
// precede condition arguments in an UPDATE.
func buildWhere(conditions []Condition, startArg int) (string, []any) {
	if len(conditions) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conditions))
	args := make([]any, 0, len(conditions))
	n := startArg
	for _, cond := range conditions {
		op := TranslateOperator(cond.Operator)
		switch op {
		case "IN":
			values := toSlice(cond.Value)
			if len(values) == 0 {
				// An empty IN list matches nothing; FALSE keeps the
				// clause well-formed.
				parts = append(parts, "FALSE")
				continue
			}
			holders := make([]string, len(values))
			for i, v := range values {
				holders[i] = fmt.Sprintf("$%d", n)
				args = append(args, v)
				n++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", quoteIdent(cond.Column), strings.Join(holders, ", ")))
		case "IS":
			// IS NULL / IS NOT NULL cannot be parameterized.
			if isNotNull(cond.Value) {
				parts = append(parts, fmt.Sprintf("%s IS NOT NULL", quoteIdent(cond.Column)))
			} else {
				parts = append(parts, fmt.Sprintf("%s IS NULL", quoteIdent(cond.Column)))
			}
		default:
			parts = append(parts, fmt.Sprintf("%s %s $%d", quoteIdent(cond.Column), op, n))
			args = append(args, cond.Value)
			n++
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// buildSelect renders a SELECT * over table with the given conditions
// and optional LIMIT.
func buildSelect(table string, conditions []Condition, limit int) (string, []any) {
	where, args := buildWhere(conditions, 1)
	query := "SELECT * FROM " + quoteIdent(table) + where
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query, args
}

// buildUpdate renders an UPDATE ... SET ... WHERE ... RETURNING *.
// Assignment columns are applied in sorted order so the statement is
// deterministic for a given specification.
func buildUpdate(table string, assignments map[string]any, conditions []Condition) (string, []any) {
	columns := make([]string, 0, len(assignments))
	for col := range assignments {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(conditions))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
		args = append(args, assignments[col])
	}

	where, condArgs := buildWhere(conditions, len(columns)+1)
	args = append(args, condArgs...)

	query := "UPDATE " + quoteIdent(table) + " SET " + strings.Join(sets, ", ") + where + " RETURNING *"
	return query, args
}

// quoteIdent double-quotes an identifier, escaping embedded quotes. The
// generator has already checked table and column names against the
// catalog; quoting guards against the identifier doubling as syntax.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func toSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return nil
	}
	return []any{value}
}

func isNotNull(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "not null" || s == "not_null" || s == "notnull"
}
