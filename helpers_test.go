package dbqflag

import (
	"context"
	"fmt"
	"strings"
)

// ansiDialect renders standard SQL with double quoted identifiers and ? markers.
type ansiDialect struct{}

func (ansiDialect) Name() string { return "ansi" }

func (ansiDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (ansiDialect) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (ansiDialect) Placeholder(int) string { return "?" }

func (ansiDialect) BoolLiteral(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

func (ansiDialect) YearOf(expr string) string {
	return fmt.Sprintf("EXTRACT(YEAR FROM %s)", expr)
}

func (ansiDialect) MinutesBetween(start string, end string) string {
	return fmt.Sprintf("MINUTES(%s, %s)", start, end)
}

func (ansiDialect) Concat(parts ...string) string {
	return "(" + strings.Join(parts, " || ") + ")"
}

func (ansiDialect) Contains(haystack string, needle string) string {
	return fmt.Sprintf("POSITION(%s IN %s) > 0", needle, haystack)
}

func (ansiDialect) ColumnType(interface{}) string { return "TEXT" }

func (d ansiDialect) CreateTable(name string, columns []ColumnDef, uniqueKey []string, ifNotExists bool) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteIdent(c.Name) + " " + c.Type
	}
	return "CREATE TABLE " + d.QuoteIdent(name) + " (" + strings.Join(defs, ", ") + ")"
}

func (d ansiDialect) Update(table string, assignments []string, where string) string {
	return "UPDATE " + d.QuoteIdent(table) + " SET " + strings.Join(assignments, ", ") + " WHERE " + where
}

// recordingStore is a DbqStore that records statements and answers queries from a queue.
type recordingStore struct {
	statements []string
	responses  []*ResultSet
	failOn     string
}

func (s *recordingStore) Dialect() Dialect { return ansiDialect{} }

func (s *recordingStore) Ping(context.Context) (string, error) { return "recording", nil }

func (s *recordingStore) Query(_ context.Context, query string, _ ...interface{}) (*ResultSet, error) {
	s.statements = append(s.statements, query)
	if s.failOn != "" && strings.Contains(query, s.failOn) {
		return nil, ConnectivityError("run query", fmt.Errorf("injected failure"))
	}
	if len(s.responses) == 0 {
		return &ResultSet{}, nil
	}
	res := s.responses[0]
	s.responses = s.responses[1:]
	return res, nil
}

func (s *recordingStore) Execute(_ context.Context, query string, _ ...interface{}) (int64, error) {
	s.statements = append(s.statements, query)
	if s.failOn != "" && strings.Contains(query, s.failOn) {
		return 0, ConnectivityError("execute statement", fmt.Errorf("injected failure"))
	}
	return 1, nil
}

func (s *recordingStore) MaterializeView(_ context.Context, name string, query string) error {
	s.statements = append(s.statements, "VIEW "+name+" AS "+query)
	return nil
}

func (s *recordingStore) DropIfExists(_ context.Context, name string) error {
	s.statements = append(s.statements, "DROP "+name)
	return nil
}

func (s *recordingStore) CreateTableFromRows(_ context.Context, name string, rows *ResultSet) error {
	s.statements = append(s.statements, fmt.Sprintf("TABLE %s (%d rows)", name, rows.Len()))
	return nil
}

func (s *recordingStore) AnnotateView(_ context.Context, name string, description string) error {
	s.statements = append(s.statements, "ANNOTATE "+name+" "+description)
	return nil
}

func (s *recordingStore) Close() error { return nil }
