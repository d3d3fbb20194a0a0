// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over a pgx connection pool.
//
// # Thread Safety
//
// Safe for concurrent use; pgxpool handles connection checkout.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against databaseURL and
// verifies it with a ping.
//
// It performs the following operations:
//  1. Parses the URL into a pool configuration.
//  2. Applies pool sizing (10 max, 2 min, 1h connection lifetime).
//  3. Pings with a 5 second timeout before returning.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to Postgres", "max_conns", poolConfig.MaxConns)
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. Used by the health
// endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ExecuteQuery implements Store.
func (s *PostgresStore) ExecuteQuery(ctx context.Context, query string) ExecutionResult {
	return s.query(ctx, query, nil)
}

// Select implements Store.
func (s *PostgresStore) Select(ctx context.Context, table string, conditions []Condition, limit int) ExecutionResult {
	query, args := buildSelect(table, conditions, limit)
	return s.query(ctx, query, args)
}

// Update implements Store. The statement carries RETURNING * so the
// result rows are the mutated rows and RowCount is the true affected
// count.
func (s *PostgresStore) Update(ctx context.Context, table string, assignments map[string]any, conditions []Condition) ExecutionResult {
	if len(assignments) == 0 {
		return Failure(fmt.Errorf("update with no assignments"), 0)
	}
	query, args := buildUpdate(table, assignments, conditions)
	return s.query(ctx, query, args)
}

// query runs a statement and collects its rows into column→value maps.
func (s *PostgresStore) query(ctx context.Context, query string, args []any) ExecutionResult {
	start := time.Now()
	slog.Debug("Executing statement", "query", query)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		slog.Error("Statement failed", "error", err)
		return Failure(err, time.Since(start))
	}
	defer rows.Close()

	data, err := collectRows(rows)
	if err != nil {
		slog.Error("Row collection failed", "error", err)
		return Failure(err, time.Since(start))
	}

	return ExecutionResult{
		Success:  true,
		Rows:     data,
		RowCount: len(data),
		Timing:   time.Since(start),
	}
}

// collectRows materializes pgx rows as ordered column→value maps, the
// row shape the result verifier consumes.
func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	data := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = normalizeDBValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// normalizeDBValue flattens driver-specific types into the scalar forms
// the verifier's type checks expect.
func normalizeDBValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case [16]byte:
		// UUIDs surface as byte arrays from pgx.
		return fmt.Sprintf("%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16])
	case []byte:
		return string(v)
	}
	return value
}
