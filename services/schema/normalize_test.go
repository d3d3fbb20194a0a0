// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValue_BooleanString(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	tests := []struct {
		name      string
		value     any
		wantValid bool
		wantOut   any
	}{
		{"Native true", true, true, "true"},
		{"Native false", false, true, "false"},
		{"String yes", "yes", true, "true"},
		{"String YES uppercase", "YES", true, "true"},
		{"String on", "on", true, "true"},
		{"String 1", "1", true, "true"},
		{"String no", "no", true, "false"},
		{"String off", "off", true, "false"},
		{"String 0", "0", true, "false"},
		{"Unrecognized string", "maybe", false, "maybe"},
		{"Non-boolean number", 42, false, 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid, out := catalog.ValidateValue("rooms", "ready_to_rent", tc.value)
			assert.Equal(t, tc.wantValid, valid)
			assert.Equal(t, tc.wantOut, out)
		})
	}
}

func TestValidateValue_NumericRange(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	// shared_room_rent_2 is text-typed in storage but carries a declared
	// range of [600, 695].
	tests := []struct {
		name      string
		value     any
		wantValid bool
		wantOut   any
	}{
		{"In range", 650, true, 650.0},
		{"In range string", "650", true, 650.0},
		{"At lower bound", 600, true, 600.0},
		{"At upper bound", 695, true, 695.0},
		{"Above range clamps to max", 800, false, 695.0},
		{"Below range clamps to min", 100, false, 600.0},
		{"Non-numeric", "expensive", false, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid, out := catalog.ValidateValue("rooms", "shared_room_rent_2", tc.value)
			assert.Equal(t, tc.wantValid, valid)
			assert.Equal(t, tc.wantOut, out)
		})
	}
}

func TestValidateValue_EnumeratedText(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	tests := []struct {
		name      string
		value     any
		wantValid bool
		wantOut   any
	}{
		{"Exact match", "Available", true, "Available"},
		{"Case variant rewritten to canonical", "AVAILABLE", true, "Available"},
		{"Lowercase rewritten to canonical", "occupied", true, "Occupied"},
		{"Not in the value set", "Demolished", false, "Demolished"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid, out := catalog.ValidateValue("rooms", "status", tc.value)
			assert.Equal(t, tc.wantValid, valid)
			assert.Equal(t, tc.wantOut, out)
		})
	}
}

func TestValidateValue_PassThrough(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	// Unknown columns and unconstrained text pass through untouched.
	valid, out := catalog.ValidateValue("rooms", "not_a_real_column", "anything")
	assert.True(t, valid)
	assert.Equal(t, "anything", out)

	valid, out = catalog.ValidateValue("buildings", "full_address", "1080 Folsom St, San Francisco")
	assert.True(t, valid)
	assert.Equal(t, "1080 Folsom St, San Francisco", out)
}

func TestValidateCell(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		col      Column
		expected bool
	}{
		{"Null on nullable column", nil, Column{Type: TypeText, Nullable: true}, true},
		{"Null on non-nullable column", nil, Column{Type: TypeText, Nullable: false}, false},
		{"Text string", "hello", Column{Type: TypeText}, true},
		{"Text non-string", 7, Column{Type: TypeText}, false},
		{"Integer int", 7, Column{Type: TypeInteger}, true},
		{"Integer whole float", 7.0, Column{Type: TypeInteger}, true},
		{"Integer fractional float", 7.5, Column{Type: TypeInteger}, false},
		{"Integer digit string", "42", Column{Type: TypeInteger}, true},
		{"Integer non-digit string", "forty-two", Column{Type: TypeInteger}, false},
		{"Numeric float", 3.14, Column{Type: TypeNumeric}, true},
		{"Numeric numeric string", "3.14", Column{Type: TypeNumeric}, true},
		{"Numeric garbage", "pi", Column{Type: TypeNumeric}, false},
		{"Boolean string true", "true", Column{Type: TypeBooleanString}, true},
		{"Boolean string native", false, Column{Type: TypeBooleanString}, true},
		{"Boolean string invalid", "yes", Column{Type: TypeBooleanString}, false},
		{"Timestamp string", "2025-06-01T10:00:00Z", Column{Type: TypeTimestamp}, true},
		{"Timestamp non-string", 1717200000, Column{Type: TypeTimestamp}, false},
		{"JSON valid string", `{"a": 1}`, Column{Type: TypeJSON}, true},
		{"JSON invalid string", `{"a":`, Column{Type: TypeJSON}, false},
		{"JSON non-string", map[string]any{"a": 1}, Column{Type: TypeJSON}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValidateCell(tc.value, &tc.col))
		})
	}
}
