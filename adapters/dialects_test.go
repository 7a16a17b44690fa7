package adapters

import (
	"testing"
	"time"

	"github.com/DataBridgeTech/dbqflag"
)

var resultsColumns = []dbqflag.ColumnDef{
	{Name: "Query_Name", Type: "T"},
	{Name: "Time_Frame", Type: "T"},
	{Name: "Query_Result", Type: "I", Nullable: true},
}

func TestDialects_Rendering(t *testing.T) {
	tests := []struct {
		name        string
		dialect     dbqflag.Dialect
		expr        dbqflag.Expr
		expectedSQL string
	}{
		{"postgresql year", PostgresqlDialect{}, dbqflag.YearOf(dbqflag.Col("", "Start_Date")), `CAST(EXTRACT(YEAR FROM "Start_Date") AS INTEGER)`},
		{"mysql year", MysqlDialect{}, dbqflag.YearOf(dbqflag.Col("", "Start_Date")), "YEAR(`Start_Date`)"},
		{"sqlite year", SqliteDialect{}, dbqflag.YearOf(dbqflag.Col("", "Start_Date")), `CAST(strftime('%Y', "Start_Date") AS INTEGER)`},
		{"clickhouse year", ClickhouseDialect{}, dbqflag.YearOf(dbqflag.Col("", "Start_Date")), "toYear(`Start_Date`)"},

		{"postgresql minutes", PostgresqlDialect{}, dbqflag.MinutesBetween(dbqflag.Col("", "s"), dbqflag.Col("", "e")), `(EXTRACT(EPOCH FROM ("e" - "s")) / 60)`},
		{"mysql minutes", MysqlDialect{}, dbqflag.MinutesBetween(dbqflag.Col("", "s"), dbqflag.Col("", "e")), "TIMESTAMPDIFF(MINUTE, `s`, `e`)"},
		{"sqlite minutes", SqliteDialect{}, dbqflag.MinutesBetween(dbqflag.Col("", "s"), dbqflag.Col("", "e")), `((strftime('%s', "e") - strftime('%s', "s")) / 60)`},
		{"clickhouse minutes", ClickhouseDialect{}, dbqflag.MinutesBetween(dbqflag.Col("", "s"), dbqflag.Col("", "e")), "dateDiff('minute', `s`, `e`)"},

		{"postgresql concat", PostgresqlDialect{}, dbqflag.Concat(dbqflag.Col("", "f"), dbqflag.Str(";")), `("f" || ';')`},
		{"mysql concat", MysqlDialect{}, dbqflag.Concat(dbqflag.Col("", "f"), dbqflag.Str(";")), "CONCAT(`f`, ';')"},
		{"clickhouse concat", ClickhouseDialect{}, dbqflag.Concat(dbqflag.Col("", "f"), dbqflag.Str(";")), "concat(`f`, ';')"},

		{"postgresql contains", PostgresqlDialect{}, dbqflag.Contains(dbqflag.Col("", "f"), dbqflag.Str(";A;")), `strpos("f", ';A;') > 0`},
		{"mysql contains", MysqlDialect{}, dbqflag.Contains(dbqflag.Col("", "f"), dbqflag.Str(";A;")), "LOCATE(';A;', CAST(`f` AS BINARY)) > 0"},
		{"sqlite contains", SqliteDialect{}, dbqflag.Contains(dbqflag.Col("", "f"), dbqflag.Str(";A;")), `instr("f", ';A;') > 0`},
		{"clickhouse contains", ClickhouseDialect{}, dbqflag.Contains(dbqflag.Col("", "f"), dbqflag.Str(";A;")), "position(`f`, ';A;') > 0"},

		{"mysql string escaping", MysqlDialect{}, dbqflag.Str(`a\b'c`), `'a\\b''c'`},
		{"postgresql string escaping", PostgresqlDialect{}, dbqflag.Str(`a\b'c`), `'a\b''c'`},
		{"sqlite bool", SqliteDialect{}, dbqflag.Bool(false), "0"},
		{"postgresql quoted identifier", PostgresqlDialect{}, dbqflag.Col("t", `x"y`), `"t"."x""y"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.Render(tt.dialect); got != tt.expectedSQL {
				t.Errorf("Render() = %s, expected %s", got, tt.expectedSQL)
			}
		})
	}
}

func TestDialects_Placeholder(t *testing.T) {
	if got := (PostgresqlDialect{}).Placeholder(3); got != "$3" {
		t.Errorf("postgresql placeholder = %s", got)
	}
	for _, d := range []dbqflag.Dialect{MysqlDialect{}, SqliteDialect{}, ClickhouseDialect{}} {
		if got := d.Placeholder(3); got != "?" {
			t.Errorf("%s placeholder = %s", d.Name(), got)
		}
	}
}

func TestDialects_CreateTable(t *testing.T) {
	tests := []struct {
		name        string
		dialect     dbqflag.Dialect
		uniqueKey   []string
		ifNotExists bool
		expectedSQL string
	}{
		{
			name:        "postgresql unique",
			dialect:     PostgresqlDialect{},
			uniqueKey:   []string{"Query_Name", "Time_Frame"},
			ifNotExists: true,
			expectedSQL: `CREATE TABLE IF NOT EXISTS "tbl_QA_Results" ("Query_Name" T NOT NULL, "Time_Frame" T NOT NULL, "Query_Result" I, UNIQUE ("Query_Name", "Time_Frame"))`,
		},
		{
			name:        "mysql plain",
			dialect:     MysqlDialect{},
			expectedSQL: "CREATE TABLE `tbl_QA_Results` (`Query_Name` T NOT NULL, `Time_Frame` T NOT NULL, `Query_Result` I)",
		},
		{
			name:        "clickhouse replacing merge tree",
			dialect:     ClickhouseDialect{},
			uniqueKey:   []string{"Query_Name", "Time_Frame"},
			ifNotExists: true,
			expectedSQL: "CREATE TABLE IF NOT EXISTS `tbl_QA_Results` (`Query_Name` T, `Time_Frame` T, `Query_Result` Nullable(I)) ENGINE = ReplacingMergeTree ORDER BY (`Query_Name`, `Time_Frame`)",
		},
		{
			name:        "clickhouse merge tree",
			dialect:     ClickhouseDialect{},
			expectedSQL: "CREATE TABLE `tbl_QA_Results` (`Query_Name` T, `Time_Frame` T, `Query_Result` Nullable(I)) ENGINE = MergeTree ORDER BY tuple()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.dialect.CreateTable("tbl_QA_Results", resultsColumns, tt.uniqueKey, tt.ifNotExists)
			if got != tt.expectedSQL {
				t.Errorf("CreateTable() =\n%s\nexpected\n%s", got, tt.expectedSQL)
			}
		})
	}
}

func TestDialects_Update(t *testing.T) {
	assignments := []string{`"QCFlag" = 'X'`}
	if got := (SqliteDialect{}).Update("tbl_Events", assignments, `"Event_ID" = 1`); got != `UPDATE "tbl_Events" SET "QCFlag" = 'X' WHERE "Event_ID" = 1` {
		t.Errorf("sqlite update = %s", got)
	}
	if got := (ClickhouseDialect{}).Update("tbl_Events", []string{"`QCFlag` = 'X'"}, ""); got != "ALTER TABLE `tbl_Events` UPDATE `QCFlag` = 'X' WHERE 1" {
		t.Errorf("clickhouse update = %s", got)
	}
}

func TestDialects_ColumnType(t *testing.T) {
	tests := []struct {
		dialect  dbqflag.Dialect
		sample   interface{}
		expected string
	}{
		{PostgresqlDialect{}, int64(1), "BIGINT"},
		{PostgresqlDialect{}, time.Time{}, "TIMESTAMP"},
		{PostgresqlDialect{}, nil, "TEXT"},
		{MysqlDialect{}, true, "TINYINT(1)"},
		{MysqlDialect{}, "x", "VARCHAR(255)"},
		{SqliteDialect{}, 1.5, "REAL"},
		{SqliteDialect{}, true, "INTEGER"},
		{ClickhouseDialect{}, int32(1), "Int64"},
		{ClickhouseDialect{}, "x", "String"},
	}

	for _, tt := range tests {
		if got := tt.dialect.ColumnType(tt.sample); got != tt.expected {
			t.Errorf("%s ColumnType(%T) = %s, expected %s", tt.dialect.Name(), tt.sample, got, tt.expected)
		}
	}
}

func TestDialects_DropAndAnnotate(t *testing.T) {
	if got := (PostgresqlDialect{}).DropStatement("qsel_QA_Control", true); got != `DROP VIEW IF EXISTS "qsel_QA_Control" CASCADE` {
		t.Errorf("postgresql drop = %s", got)
	}
	if got := (MysqlDialect{}).DropStatement("tmp_flag_qa", false); got != "DROP TABLE IF EXISTS `tmp_flag_qa`" {
		t.Errorf("mysql drop = %s", got)
	}

	pg := (PostgresqlDialect{}).AnnotateStatements("qa_a102", "It's unverified")
	if len(pg) != 1 || pg[0] != `COMMENT ON VIEW "qa_a102" IS 'It''s unverified'` {
		t.Errorf("postgresql annotate = %v", pg)
	}

	lite := (SqliteDialect{}).AnnotateStatements("qa_a102", "desc")
	if len(lite) != 3 {
		t.Fatalf("sqlite annotate = %v", lite)
	}
	if lite[2] != `INSERT INTO "_dbq_view_descriptions" ("View_Name", "Description") VALUES ('qa_a102', 'desc')` {
		t.Errorf("sqlite annotate insert = %s", lite[2])
	}
}
