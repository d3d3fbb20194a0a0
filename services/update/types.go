// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package update implements the write half of the verification pipeline:
// an LLM turns a natural-language request into a structured update
// specification, the specification is validated against the schema
// catalog and the caller's write scope, and the safe executor runs it
// under a mandatory preview-then-commit protocol with a hard
// affected-row ceiling.
package update

import (
	"github.com/homewiz/querygate/services/store"
)

// Specification is a fully validated write request: a target table,
// column assignments, and the conditions selecting the rows to change.
// Conditions are mandatory; a specification with none never validates.
type Specification struct {
	Success        bool              `json:"success"`
	Table          string            `json:"table"`
	UpdateData     map[string]any    `json:"update_data"`
	Conditions     []store.Condition `json:"where_conditions"`
	Explanation    string            `json:"explanation"`
	EstimatedRows  int               `json:"estimated_rows"`
	GenerationTime float64           `json:"generation_time"`
	Error          string            `json:"error,omitempty"`
}

// ConditionTriples renders the conditions in the [column, operator,
// value] wire shape used by response metadata.
func (s Specification) ConditionTriples() [][3]any {
	triples := make([][3]any, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		triples = append(triples, [3]any{c.Column, c.Operator, c.Value})
	}
	return triples
}
