// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package schema provides the schema catalog and value normalization for
// the query verification pipeline.
//
// The catalog is the single source of truth for what a "real" column is:
// every generated query, every update assignment, and every returned result
// cell is checked against it. It is loaded once from an embedded YAML file
// at process start and never mutated, so concurrent reads need no locking.
package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/homewiz/querygate/services/schema/catalogdata"
)

// Catalog is the immutable, process-wide description of the database
// schema: tables, columns, declared types, enumerated values, numeric
// ranges, and date-format notes.
//
// # Thread Safety
//
// Safe for concurrent use. All state is built in NewCatalog and read-only
// afterwards.
type Catalog struct {
	tables  map[string]*Table
	columns map[string]map[string]*Column

	// allColumns indexes column names across every table. The result
	// verifier checks returned cells against this set, since a SELECT with
	// joins surfaces columns from several tables in one row.
	allColumns map[string][]*Column
}

// NewCatalog loads the embedded schema catalog.
//
// It performs the following operations:
//  1. Unmarshals the YAML embedded via the catalogdata package.
//  2. Builds per-table and cross-table lookup indexes.
//
// Returns an error if the embedded YAML is malformed or declares an
// invalid column type.
func NewCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogdata.SchemaCatalog, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded schema catalog: %w", err)
	}
	return newCatalogFromTables(file.Tables)
}

// newCatalogFromTables builds the lookup indexes. Split out so tests can
// construct small catalogs without the embedded data.
func newCatalogFromTables(tables []Table) (*Catalog, error) {
	c := &Catalog{
		tables:     make(map[string]*Table, len(tables)),
		columns:    make(map[string]map[string]*Column, len(tables)),
		allColumns: make(map[string][]*Column),
	}
	for i := range tables {
		t := &tables[i]
		if t.Name == "" {
			return nil, fmt.Errorf("schema catalog contains a table with no name")
		}
		if _, dup := c.tables[t.Name]; dup {
			return nil, fmt.Errorf("schema catalog declares table %q twice", t.Name)
		}
		c.tables[t.Name] = t
		cols := make(map[string]*Column, len(t.Columns))
		for j := range t.Columns {
			col := &t.Columns[j]
			if _, dup := cols[col.Name]; dup {
				return nil, fmt.Errorf("table %q declares column %q twice", t.Name, col.Name)
			}
			cols[col.Name] = col
			c.allColumns[col.Name] = append(c.allColumns[col.Name], col)
		}
		c.columns[t.Name] = cols
	}
	return c, nil
}

// Tables returns the catalog's table names in sorted order.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the named table, or nil if the catalog does not know it.
func (c *Catalog) Table(name string) *Table {
	return c.tables[name]
}

// HasTable reports whether the catalog declares the named table.
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// Column returns the column definition, or nil if table or column is
// unknown.
func (c *Catalog) Column(table, column string) *Column {
	cols, ok := c.columns[table]
	if !ok {
		return nil
	}
	return cols[column]
}

// ColumnType returns the declared type of a column, or TypeUnknown when
// the table or column is not in the catalog.
func (c *Catalog) ColumnType(table, column string) ColumnType {
	col := c.Column(table, column)
	if col == nil {
		return TypeUnknown
	}
	return col.Type
}

// ValidValues returns the enumerated value set for a text column. Empty
// for freeform or unknown columns.
func (c *Catalog) ValidValues(table, column string) []string {
	col := c.Column(table, column)
	if col == nil {
		return nil
	}
	return col.Values
}

// NumericRange returns the declared numeric range for a column. The bool
// is false when no range is declared.
func (c *Catalog) NumericRange(table, column string) (Range, bool) {
	col := c.Column(table, column)
	if col == nil || col.Range == nil {
		return Range{}, false
	}
	return *col.Range, true
}

// IsColumn reports whether any table in the catalog declares the named
// column. Used by the result verifier, where a joined result row mixes
// columns from several tables.
func (c *Catalog) IsColumn(column string) bool {
	_, ok := c.allColumns[column]
	return ok
}

// ColumnsNamed returns every definition of the named column across tables.
// The same name may appear in more than one table (status, room_id); a
// result cell is accepted if its value validates against any of them.
func (c *Catalog) ColumnsNamed(column string) []*Column {
	return c.allColumns[column]
}

// DateColumns returns the date-like text columns of a table, for the
// interpreter prompt builder. Sorted by column name.
func (c *Catalog) DateColumns(table string) []Column {
	t := c.tables[table]
	if t == nil {
		return nil
	}
	var out []Column
	for _, col := range t.Columns {
		if col.DateFormat != "" {
			out = append(out, col)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
