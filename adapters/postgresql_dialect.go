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

type PostgresqlDialect struct{}

func (PostgresqlDialect) Name() string { return "postgresql" }

func (PostgresqlDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`)
}

func (PostgresqlDialect) QuoteString(value string) string {
	return quoteStandardString(value)
}

func (PostgresqlDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (PostgresqlDialect) BoolLiteral(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

func (PostgresqlDialect) YearOf(expr string) string {
	return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS INTEGER)", expr)
}

func (PostgresqlDialect) MinutesBetween(start string, end string) string {
	return fmt.Sprintf("(EXTRACT(EPOCH FROM (%s - %s)) / 60)", end, start)
}

func (PostgresqlDialect) Concat(parts ...string) string {
	return "(" + strings.Join(parts, " || ") + ")"
}

func (PostgresqlDialect) Contains(haystack string, needle string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", haystack, needle)
}

func (PostgresqlDialect) ColumnType(sample interface{}) string {
	switch kindOf(sample) {
	case kindInteger:
		return "BIGINT"
	case kindFloat:
		return "DOUBLE PRECISION"
	case kindBool:
		return "BOOLEAN"
	case kindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d PostgresqlDialect) CreateTable(name string, columns []dbqflag.ColumnDef, uniqueKey []string, ifNotExists bool) string {
	return createTableStatement(d, name, columns, uniqueKey, ifNotExists)
}

func (d PostgresqlDialect) Update(table string, assignments []string, where string) string {
	return updateStatement(d, table, assignments, where)
}

func (PostgresqlDialect) ObjectKindQuery() string {
	return `select table_type from information_schema.tables
		where table_schema = current_schema() and table_name = $1`
}

// DropStatement cascades so views depending on name are removed with it.
func (d PostgresqlDialect) DropStatement(name string, isView bool) string {
	if isView {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s CASCADE", d.QuoteIdent(name))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", d.QuoteIdent(name))
}

func (d PostgresqlDialect) AnnotateStatements(name string, description string) []string {
	return []string{fmt.Sprintf("COMMENT ON VIEW %s IS %s", d.QuoteIdent(name), d.QuoteString(description))}
}
