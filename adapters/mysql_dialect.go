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

type MysqlDialect struct{}

func (MysqlDialect) Name() string { return "mysql" }

func (MysqlDialect) QuoteIdent(name string) string {
	return quoteWith(name, "`")
}

// QuoteString also escapes backslashes, which MySQL treats as escape characters by default.
func (MysqlDialect) QuoteString(value string) string {
	return quoteStandardString(strings.ReplaceAll(value, `\`, `\\`))
}

func (MysqlDialect) Placeholder(int) string {
	return "?"
}

func (MysqlDialect) BoolLiteral(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

func (MysqlDialect) YearOf(expr string) string {
	return fmt.Sprintf("YEAR(%s)", expr)
}

func (MysqlDialect) MinutesBetween(start string, end string) string {
	return fmt.Sprintf("TIMESTAMPDIFF(MINUTE, %s, %s)", start, end)
}

func (MysqlDialect) Concat(parts ...string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

// Contains compares bytes so the column collation cannot fold case.
func (MysqlDialect) Contains(haystack string, needle string) string {
	return fmt.Sprintf("LOCATE(%s, CAST(%s AS BINARY)) > 0", needle, haystack)
}

func (MysqlDialect) ColumnType(sample interface{}) string {
	switch kindOf(sample) {
	case kindInteger:
		return "BIGINT"
	case kindFloat:
		return "DOUBLE"
	case kindBool:
		return "TINYINT(1)"
	case kindTimestamp:
		return "DATETIME"
	default:
		return "VARCHAR(255)"
	}
}

func (d MysqlDialect) CreateTable(name string, columns []dbqflag.ColumnDef, uniqueKey []string, ifNotExists bool) string {
	return createTableStatement(d, name, columns, uniqueKey, ifNotExists)
}

func (d MysqlDialect) Update(table string, assignments []string, where string) string {
	return updateStatement(d, table, assignments, where)
}

func (MysqlDialect) ObjectKindQuery() string {
	return `select table_type from information_schema.tables
		where table_schema = database() and table_name = ?`
}

func (d MysqlDialect) DropStatement(name string, isView bool) string {
	if isView {
		return fmt.Sprintf("DROP VIEW IF EXISTS %s", d.QuoteIdent(name))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdent(name))
}

func (d MysqlDialect) AnnotateStatements(name string, description string) []string {
	return descriptionTableStatements(d, name, description)
}
