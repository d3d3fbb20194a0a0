// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidateValue validates and potentially corrects a value destined for a
// column, before it reaches the database.
//
// # Description
//
// Normalization depends on the column's declared kind:
//   - boolean_string columns accept native booleans and the string forms
//     "true"/"yes"/"1"/"on" and "false"/"no"/"0"/"off" (case-insensitive);
//     all are rewritten to the literal strings "true" or "false".
//   - columns with a declared numeric range are coerced to float64. A
//     value outside the range is clamped to the nearest bound and reported
//     invalid, so callers can surface a warning while still proceeding
//     with a safe value. Ranges apply even to text-typed columns: several
//     tables store counts and rents as text but constrain them numerically.
//   - text columns with an enumerated value set are matched exactly first,
//     then case-insensitively; a case-insensitive hit is rewritten to the
//     canonical database spelling.
//
// Columns the catalog does not know, and kinds with no constraints, pass
// through unchanged and valid. Rejecting unknown columns is the result
// verifier's job; the normalizer only corrects what it can.
//
// # Outputs
//
//   - bool: whether the input value was already acceptable as given.
//   - any: the value to actually use, corrected where possible.
func (c *Catalog) ValidateValue(table, column string, value any) (bool, any) {
	col := c.Column(table, column)
	if col == nil {
		return true, value
	}

	if col.Type == TypeBooleanString {
		return normalizeBooleanString(value)
	}

	// A declared range marks the column as numerically constrained, even
	// when the storage type is text.
	if col.Range != nil || col.Type == TypeNumeric || col.Type == TypeInteger {
		num, err := toFloat(value)
		if err != nil {
			return false, nil
		}
		if col.Range != nil {
			if num < col.Range.Min {
				return false, col.Range.Min
			}
			if num > col.Range.Max {
				return false, col.Range.Max
			}
		}
		return true, num
	}

	switch col.Type {
	case TypeText:
		if len(col.Values) == 0 {
			return true, value
		}
		str := stringify(value)
		for _, valid := range col.Values {
			if valid == str {
				return true, str
			}
		}
		for _, valid := range col.Values {
			if strings.EqualFold(valid, str) {
				return true, valid
			}
		}
		return false, str
	}

	return true, value
}

// ValidateCell reports whether a result-row cell is type-compatible with
// the column definition. Unlike ValidateValue it never rewrites: the
// result verifier discards, it does not correct.
func ValidateCell(value any, col *Column) bool {
	if value == nil {
		return col.Nullable
	}

	switch col.Type {
	case TypeText:
		_, ok := value.(string)
		return ok
	case TypeInteger:
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		case string:
			return isDigits(v)
		}
		return false
	case TypeNumeric:
		_, err := toFloat(value)
		return err == nil
	case TypeBooleanString:
		switch v := value.(type) {
		case bool:
			return true
		case string:
			return v == "true" || v == "false" || v == "1" || v == "0"
		}
		return false
	case TypeTimestamp:
		// Timestamps travel as text in this schema.
		_, ok := value.(string)
		return ok
	case TypeJSON:
		if s, ok := value.(string); ok {
			return json.Valid([]byte(s))
		}
		return true
	}
	return true
}

func normalizeBooleanString(value any) (bool, any) {
	switch v := value.(type) {
	case bool:
		if v {
			return true, "true"
		}
		return true, "false"
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1", "on":
			return true, "true"
		case "false", "no", "0", "off":
			return true, "false"
		}
	}
	return false, value
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	case bool:
		return 0, fmt.Errorf("cannot coerce bool to number")
	}
	return 0, fmt.Errorf("cannot coerce %T to number", value)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
