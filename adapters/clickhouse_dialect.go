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

type ClickhouseDialect struct{}

func (ClickhouseDialect) Name() string { return "clickhouse" }

func (ClickhouseDialect) QuoteIdent(name string) string {
	return quoteWith(name, "`")
}

func (ClickhouseDialect) QuoteString(value string) string {
	return quoteStandardString(strings.ReplaceAll(value, `\`, `\\`))
}

func (ClickhouseDialect) Placeholder(int) string {
	return "?"
}

func (ClickhouseDialect) BoolLiteral(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func (ClickhouseDialect) YearOf(expr string) string {
	return fmt.Sprintf("toYear(%s)", expr)
}

func (ClickhouseDialect) MinutesBetween(start string, end string) string {
	return fmt.Sprintf("dateDiff('minute', %s, %s)", start, end)
}

func (ClickhouseDialect) Concat(parts ...string) string {
	return "concat(" + strings.Join(parts, ", ") + ")"
}

func (ClickhouseDialect) Contains(haystack string, needle string) string {
	return fmt.Sprintf("position(%s, %s) > 0", haystack, needle)
}

func (ClickhouseDialect) ColumnType(sample interface{}) string {
	switch kindOf(sample) {
	case kindInteger:
		return "Int64"
	case kindFloat:
		return "Float64"
	case kindBool:
		return "Bool"
	case kindTimestamp:
		return "DateTime"
	default:
		return "String"
	}
}

// CreateTable orders a ReplacingMergeTree by uniqueKey, so duplicate keys collapse on merge.
// Without a key the table is a plain MergeTree.
func (d ClickhouseDialect) CreateTable(name string, columns []dbqflag.ColumnDef, uniqueKey []string, ifNotExists bool) string {
	keySet := make(map[string]struct{}, len(uniqueKey))
	for _, k := range uniqueKey {
		keySet[k] = struct{}{}
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		colType := col.Type
		if _, isKey := keySet[col.Name]; col.Nullable && !isKey {
			colType = "Nullable(" + colType + ")"
		}
		defs = append(defs, d.QuoteIdent(col.Name)+" "+colType)
	}

	prefix := "CREATE TABLE "
	if ifNotExists {
		prefix += "IF NOT EXISTS "
	}

	engine := "ENGINE = MergeTree ORDER BY tuple()"
	if len(uniqueKey) > 0 {
		quoted := make([]string, len(uniqueKey))
		for i, k := range uniqueKey {
			quoted[i] = d.QuoteIdent(k)
		}
		engine = fmt.Sprintf("ENGINE = ReplacingMergeTree ORDER BY (%s)", strings.Join(quoted, ", "))
	}

	return prefix + d.QuoteIdent(name) + " (" + strings.Join(defs, ", ") + ") " + engine
}

func (d ClickhouseDialect) Update(table string, assignments []string, where string) string {
	if where == "" {
		where = "1"
	}
	return fmt.Sprintf("ALTER TABLE %s UPDATE %s WHERE %s", d.QuoteIdent(table), strings.Join(assignments, ", "), where)
}
