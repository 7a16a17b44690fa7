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

package adapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/DataBridgeTech/dbqflag"
)

// ViewDescriptionsTable stores view descriptions on backends without view comments.
const ViewDescriptionsTable = "_dbq_view_descriptions"

type columnKind int

const (
	kindText columnKind = iota
	kindInteger
	kindFloat
	kindBool
	kindTimestamp
)

func kindOf(sample interface{}) columnKind {
	switch sample.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInteger
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case time.Time, *time.Time:
		return kindTimestamp
	default:
		return kindText
	}
}

func quoteWith(name string, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

func quoteStandardString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// createTableStatement renders a portable CREATE TABLE with an optional UNIQUE constraint.
func createTableStatement(d dbqflag.Dialect, name string, columns []dbqflag.ColumnDef, uniqueKey []string, ifNotExists bool) string {
	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		def := d.QuoteIdent(col.Name) + " " + col.Type
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(uniqueKey) > 0 {
		quoted := make([]string, len(uniqueKey))
		for i, k := range uniqueKey {
			quoted[i] = d.QuoteIdent(k)
		}
		defs = append(defs, fmt.Sprintf("UNIQUE (%s)", strings.Join(quoted, ", ")))
	}

	prefix := "CREATE TABLE "
	if ifNotExists {
		prefix += "IF NOT EXISTS "
	}
	return prefix + d.QuoteIdent(name) + " (" + strings.Join(defs, ", ") + ")"
}

func updateStatement(d dbqflag.Dialect, table string, assignments []string, where string) string {
	stmt := "UPDATE " + d.QuoteIdent(table) + " SET " + strings.Join(assignments, ", ")
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt
}

// descriptionTableStatements replaces the stored description of view name.
func descriptionTableStatements(d dbqflag.Dialect, name string, description string) []string {
	table := d.QuoteIdent(ViewDescriptionsTable)
	viewCol := d.QuoteIdent("View_Name")
	descCol := d.QuoteIdent("Description")
	return []string{
		createTableStatement(d, ViewDescriptionsTable, []dbqflag.ColumnDef{
			{Name: "View_Name", Type: d.ColumnType("")},
			{Name: "Description", Type: d.ColumnType(""), Nullable: true},
		}, []string{"View_Name"}, true),
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, viewCol, d.QuoteString(name)),
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)", table, viewCol, descCol, d.QuoteString(name), d.QuoteString(description)),
	}
}

// inferColumns derives column definitions from the first non-nil value of each column.
func inferColumns(d dbqflag.Dialect, rows *dbqflag.ResultSet) []dbqflag.ColumnDef {
	columns := make([]dbqflag.ColumnDef, len(rows.Columns))
	for i, name := range rows.Columns {
		var sample interface{}
		for _, row := range rows.Rows {
			if row[i] != nil {
				sample = row[i]
				break
			}
		}
		columns[i] = dbqflag.ColumnDef{Name: name, Type: d.ColumnType(sample), Nullable: true}
	}
	return columns
}

func insertStatement(d dbqflag.Dialect, table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.QuoteIdent(col)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}
