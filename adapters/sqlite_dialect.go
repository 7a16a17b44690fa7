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

	"github.com/DataBridgeTech/dbqflag"
)

type SqliteDialect struct{}

func (SqliteDialect) Name() string { return "sqlite" }

func (SqliteDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`)
}

func (SqliteDialect) QuoteString(value string) string {
	return quoteStandardString(value)
}

func (SqliteDialect) Placeholder(int) string {
	return "?"
}

func (SqliteDialect) BoolLiteral(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

func (SqliteDialect) YearOf(expr string) string {
	return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", expr)
}

func (SqliteDialect) MinutesBetween(start string, end string) string {
	return fmt.Sprintf("((strftime('%%s', %s) - strftime('%%s', %s)) / 60)", end, start)
}

func (SqliteDialect) Concat(parts ...string) string {
	return "(" + strings.Join(parts, " || ") + ")"
}

// Contains uses instr, which unlike LIKE is case-sensitive.
func (SqliteDialect) Contains(haystack string, needle string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", haystack, needle)
}

func (SqliteDialect) ColumnType(sample interface{}) string {
	switch kindOf(sample) {
	case kindInteger, kindBool:
		return "INTEGER"
	case kindFloat:
		return "REAL"
	case kindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d SqliteDialect) CreateTable(name string, columns []dbqflag.ColumnDef, uniqueKey []string, ifNotExists bool) string {
	return createTableStatement(d, name, columns, uniqueKey, ifNotExists)
}

func (d SqliteDialect) Update(table string, assignments []string, where string) string {
	return updateStatement(d, table, assignments, where)
}

func (SqliteDialect) ObjectKindQuery() string {
	return `select type from sqlite_master where type in ('table', 'view') and name = ?`
}

func (d SqliteDialect) DropStatement(name string, isView bool) string {
	if isView {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s", d.QuoteIdent(name))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdent(name))
}

func (d SqliteDialect) AnnotateStatements(name string, description string) []string {
	return descriptionTableStatements(d, name, description)
}
