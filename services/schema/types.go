// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ColumnType is the declared storage type of a catalog column.
//
// boolean_string covers columns the database stores as the literal strings
// "true"/"false" rather than a native boolean. The distinction matters for
// value normalization: boolean inputs are rewritten to those literals.
type ColumnType string

const (
	TypeText          ColumnType = "text"
	TypeBooleanString ColumnType = "boolean_string"
	TypeInteger       ColumnType = "integer"
	TypeNumeric       ColumnType = "numeric"
	TypeTimestamp     ColumnType = "timestamp"
	TypeJSON          ColumnType = "json"

	// TypeUnknown is returned by lookups for columns the catalog does not
	// know about. It is never a valid declared type in the YAML.
	TypeUnknown ColumnType = "unknown"
)

// UnmarshalYAML validates that the catalog file only declares known types.
// A typo in the embedded YAML should fail loudly at startup, not silently
// degrade a column to freeform text.
func (t *ColumnType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := ColumnType(s)
	switch incoming {
	case TypeText, TypeBooleanString, TypeInteger, TypeNumeric, TypeTimestamp, TypeJSON:
		*t = incoming
		return nil
	default:
		return fmt.Errorf("invalid column type: %q", incoming)
	}
}

// Range is an inclusive numeric bound for a column's values.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Column describes one column of one table.
type Column struct {
	Name     string     `yaml:"name"`
	Type     ColumnType `yaml:"type"`
	Nullable bool       `yaml:"nullable"`

	// Values is the closed set of known-good values for enumerated text
	// columns. Empty means freeform.
	Values []string `yaml:"values"`

	// Range bounds numeric columns. Values outside it are clamped by the
	// normalizer, not rejected.
	Range *Range `yaml:"range"`

	// DateFormat marks text columns that hold date strings (e.g.
	// "YYYY-MM-DD"), with Examples carrying real sample values. Consumed
	// by the interpreter prompt builder so generated filters cast
	// correctly.
	DateFormat string   `yaml:"date_format"`
	Examples   []string `yaml:"examples"`
}

// Table describes one table of the catalog.
type Table struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Columns     []Column `yaml:"columns"`
}

// catalogFile is the on-disk (embedded) shape of the catalog.
type catalogFile struct {
	Tables []Table `yaml:"tables"`
}
