// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dbqflag

import (
	"context"
	"strings"
)

// DbqStore is the connectivity adapter every check talks to.
type DbqStore interface {
	// Dialect returns the SQL dialect used to render queries for this store.
	Dialect() Dialect

	// Ping checks connectivity and returns a server description.
	Ping(ctx context.Context) (string, error)

	// Query runs a read query and returns all rows.
	Query(ctx context.Context, query string, args ...interface{}) (*ResultSet, error)

	// Execute runs a non-returning statement and returns the affected row count, -1 if unknown.
	Execute(ctx context.Context, query string, args ...interface{}) (int64, error)

	// MaterializeView creates a persistent view named name from a select statement.
	MaterializeView(ctx context.Context, name string, query string) error

	// DropIfExists deletes a view or table named name. Missing objects are not an error.
	DropIfExists(ctx context.Context, name string) error

	// CreateTableFromRows creates table name with the columns of rows and inserts every row.
	CreateTableFromRows(ctx context.Context, name string, rows *ResultSet) error

	// AnnotateView attaches a description to view name.
	AnnotateView(ctx context.Context, name string, description string) error

	Close() error
}

// ExclusiveAccessChecker is implemented by stores that can detect another process holding them.
type ExclusiveAccessChecker interface {
	EnsureExclusive(ctx context.Context) error
}

// Dialect renders backend specific SQL fragments.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	QuoteString(value string) string
	// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
	Placeholder(n int) string
	BoolLiteral(value bool) string
	YearOf(expr string) string
	MinutesBetween(start string, end string) string
	Concat(parts ...string) string
	// Contains is a case-sensitive test for needle inside haystack.
	Contains(haystack string, needle string) string
	// ColumnType maps a Go sample value to a column type. A nil sample maps to the text type.
	ColumnType(sample interface{}) string
	CreateTable(name string, columns []ColumnDef, uniqueKey []string, ifNotExists bool) string
	Update(table string, assignments []string, where string) string
}

// ColumnDef describes a column for Dialect.CreateTable.
type ColumnDef struct {
	Name     string
	Type     string
	Nullable bool
}

// ResultSet holds a fully read query result.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ColumnIndex returns the position of column name, matched case-insensitively, or -1.
func (r *ResultSet) ColumnIndex(name string) int {
	for i, col := range r.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Value returns the value of column name in row i, nil if the column is absent.
func (r *ResultSet) Value(i int, name string) interface{} {
	idx := r.ColumnIndex(name)
	if idx < 0 || i < 0 || i >= len(r.Rows) {
		return nil
	}
	return r.Rows[i][idx]
}

// Project returns a new result set holding only the named columns, in the given order.
func (r *ResultSet) Project(columns ...string) (*ResultSet, error) {
	indexes := make([]int, len(columns))
	for i, col := range columns {
		idx := r.ColumnIndex(col)
		if idx < 0 {
			return nil, &MissingColumnError{Column: col}
		}
		indexes[i] = idx
	}

	out := &ResultSet{Columns: append([]string(nil), columns...)}
	for _, row := range r.Rows {
		projected := make([]interface{}, len(indexes))
		for i, idx := range indexes {
			projected[i] = row[idx]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// MissingColumnError is returned when a result set lacks a column a caller depends on.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return "column " + e.Column + " not found in result set"
}
