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
	"strconv"
	"strings"
)

// Expr is a SQL expression rendered for a specific dialect.
// Identifiers and literals are always quoted by the dialect, never interpolated raw.
type Expr interface {
	Render(d Dialect) string
}

type exprFunc func(d Dialect) string

func (f exprFunc) Render(d Dialect) string {
	return f(d)
}

// Col references column name of table. An empty table renders an unqualified column.
func Col(table string, name string) Expr {
	return exprFunc(func(d Dialect) string {
		if table == "" {
			return d.QuoteIdent(name)
		}
		return d.QuoteIdent(table) + "." + d.QuoteIdent(name)
	})
}

// Str is a quoted string literal.
func Str(value string) Expr {
	return exprFunc(func(d Dialect) string {
		return d.QuoteString(value)
	})
}

func Int(value int64) Expr {
	return exprFunc(func(Dialect) string {
		return strconv.FormatInt(value, 10)
	})
}

func Bool(value bool) Expr {
	return exprFunc(func(d Dialect) string {
		return d.BoolLiteral(value)
	})
}

// As aliases an expression in a select list.
func As(e Expr, alias string) Expr {
	return exprFunc(func(d Dialect) string {
		return e.Render(d) + " AS " + d.QuoteIdent(alias)
	})
}

func Coalesce(e Expr, fallback Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "COALESCE(" + e.Render(d) + ", " + fallback.Render(d) + ")"
	})
}

// Add sums its operands.
func Add(operands ...Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "(" + joinExprs(d, operands, " + ") + ")"
	})
}

func Eq(a, b Expr) Expr { return compare(a, "=", b) }
func Ne(a, b Expr) Expr { return compare(a, "<>", b) }
func Lt(a, b Expr) Expr { return compare(a, "<", b) }
func Le(a, b Expr) Expr { return compare(a, "<=", b) }
func Gt(a, b Expr) Expr { return compare(a, ">", b) }
func Ge(a, b Expr) Expr { return compare(a, ">=", b) }

func compare(a Expr, op string, b Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return a.Render(d) + " " + op + " " + b.Render(d)
	})
}

func IsNull(e Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return e.Render(d) + " IS NULL"
	})
}

func IsNotNull(e Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return e.Render(d) + " IS NOT NULL"
	})
}

// And joins conditions; a single condition renders without parentheses.
func And(conds ...Expr) Expr {
	return logical(" AND ", conds)
}

func Or(conds ...Expr) Expr {
	return logical(" OR ", conds)
}

func logical(sep string, conds []Expr) Expr {
	return exprFunc(func(d Dialect) string {
		if len(conds) == 1 {
			return conds[0].Render(d)
		}
		return "(" + joinExprs(d, conds, sep) + ")"
	})
}

func Not(cond Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "NOT (" + cond.Render(d) + ")"
	})
}

func In(e Expr, values ...Expr) Expr {
	return membership(e, "IN", values)
}

// NotIn renders e NOT IN (values). An empty list matches every row.
func NotIn(e Expr, values ...Expr) Expr {
	return membership(e, "NOT IN", values)
}

func membership(e Expr, op string, values []Expr) Expr {
	return exprFunc(func(d Dialect) string {
		if len(values) == 0 {
			if op == "IN" {
				return d.BoolLiteral(false)
			}
			return d.BoolLiteral(true)
		}
		return e.Render(d) + " " + op + " (" + joinExprs(d, values, ", ") + ")"
	})
}

// InSelect renders e IN (subquery).
func InSelect(e Expr, sub *SelectBuilder) Expr {
	return exprFunc(func(d Dialect) string {
		return e.Render(d) + " IN (" + sub.SQL(d) + ")"
	})
}

func Like(e Expr, pattern Expr) Expr {
	return compare(e, "LIKE", pattern)
}

// Contains matches when needle occurs in haystack, respecting case on every backend.
func Contains(haystack, needle Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return d.Contains(haystack.Render(d), needle.Render(d))
	})
}

func Count(e Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "COUNT(" + e.Render(d) + ")"
	})
}

// CountAll renders COUNT(*).
func CountAll() Expr {
	return exprFunc(func(Dialect) string {
		return "COUNT(*)"
	})
}

func Sum(e Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "SUM(" + e.Render(d) + ")"
	})
}

// YearOf extracts the calendar year of a date expression.
func YearOf(e Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return d.YearOf(e.Render(d))
	})
}

// MinutesBetween is the whole number of minutes from start to end.
func MinutesBetween(start, end Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return d.MinutesBetween(start.Render(d), end.Render(d))
	})
}

// Concat joins string expressions.
func Concat(parts ...Expr) Expr {
	return exprFunc(func(d Dialect) string {
		rendered := make([]string, len(parts))
		for i, p := range parts {
			rendered[i] = p.Render(d)
		}
		return d.Concat(rendered...)
	})
}

// Case renders CASE WHEN cond THEN then ELSE otherwise END.
func Case(cond, then, otherwise Expr) Expr {
	return exprFunc(func(d Dialect) string {
		return "CASE WHEN " + cond.Render(d) + " THEN " + then.Render(d) + " ELSE " + otherwise.Render(d) + " END"
	})
}

func joinExprs(d Dialect, exprs []Expr, sep string) string {
	rendered := make([]string, len(exprs))
	for i, e := range exprs {
		rendered[i] = e.Render(d)
	}
	return strings.Join(rendered, sep)
}

type joinClause struct {
	kind  string
	table string
	on    Expr
}

type orderClause struct {
	expr Expr
	desc bool
}

// SelectBuilder composes a SELECT statement.
type SelectBuilder struct {
	columns []Expr
	from    string
	joins   []joinClause
	where   Expr
	groupBy []Expr
	having  Expr
	orderBy []orderClause
}

func Select(columns ...Expr) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.from = table
	return b
}

func (b *SelectBuilder) InnerJoin(table string, on Expr) *SelectBuilder {
	b.joins = append(b.joins, joinClause{kind: "INNER JOIN", table: table, on: on})
	return b
}

func (b *SelectBuilder) LeftJoin(table string, on Expr) *SelectBuilder {
	b.joins = append(b.joins, joinClause{kind: "LEFT JOIN", table: table, on: on})
	return b
}

// Where sets the filter. Calling it again ANDs the new condition with the previous one.
func (b *SelectBuilder) Where(cond Expr) *SelectBuilder {
	if b.where == nil {
		b.where = cond
	} else {
		b.where = And(b.where, cond)
	}
	return b
}

func (b *SelectBuilder) GroupBy(exprs ...Expr) *SelectBuilder {
	b.groupBy = append(b.groupBy, exprs...)
	return b
}

func (b *SelectBuilder) Having(cond Expr) *SelectBuilder {
	b.having = cond
	return b
}

func (b *SelectBuilder) OrderBy(e Expr) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{expr: e})
	return b
}

func (b *SelectBuilder) OrderByDesc(e Expr) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{expr: e, desc: true})
	return b
}

// SQL renders the statement for dialect d.
func (b *SelectBuilder) SQL(d Dialect) string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(joinExprs(d, b.columns, ", "))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(d.QuoteIdent(b.from))

	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j.kind)
		sb.WriteString(" ")
		sb.WriteString(d.QuoteIdent(j.table))
		sb.WriteString(" ON ")
		sb.WriteString(j.on.Render(d))
	}

	if b.where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.where.Render(d))
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(joinExprs(d, b.groupBy, ", "))
	}

	if b.having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(b.having.Render(d))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			parts[i] = o.expr.Render(d)
			if o.desc {
				parts[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	return sb.String()
}
