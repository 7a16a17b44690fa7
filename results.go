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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ResultsTable is the default audit table holding one row per check and timeframe.
const ResultsTable = "tbl_QA_Results"

// Results table columns.
const (
	ColQueryName        = "Query_Name"
	ColTimeFrame        = "Time_Frame"
	ColQueryType        = "Query_Type"
	ColQueryResult      = "Query_Result"
	ColQueryRunTime     = "Query_Run_Time"
	ColQueryDescription = "Query_Description"
	ColRemedyDesc       = "Remedy_Desc"
	ColRemedyDate       = "Remedy_Date"
	ColQAUser           = "QA_User"
	ColIsDone           = "Is_Done"
	ColDataScope        = "Data_Scope"
)

// UpsertAction tells whether an upsert inserted or updated the result row.
type UpsertAction string

const (
	UpsertInserted UpsertAction = "inserted"
	UpsertUpdated  UpsertAction = "updated"
)

// ResultRecord is one row of the results table.
type ResultRecord struct {
	QueryName        string
	TimeFrame        string
	QueryType        string
	QueryResult      int64
	QueryRunTime     time.Time
	QueryDescription string
	RemedyDesc       string
	RemedyDate       *time.Time
	QAUser           string
	IsDone           bool
	DataScope        bool
}

// TimeFrame formats a processing year as stored in the Time_Frame column.
func TimeFrame(year int) string {
	return strconv.Itoa(year)
}

// ResultsStore upserts check summaries into the results table.
type ResultsStore struct {
	store  DbqStore
	table  string
	logger *slog.Logger
}

func NewResultsStore(store DbqStore, table string, logger *slog.Logger) *ResultsStore {
	if table == "" {
		table = ResultsTable
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ResultsStore{store: store, table: table, logger: logger}
}

func (s *ResultsStore) Table() string {
	return s.table
}

// EnsureTable creates the results table when missing, unique on (Query_Name, Time_Frame).
func (s *ResultsStore) EnsureTable(ctx context.Context) error {
	d := s.store.Dialect()
	columns := []ColumnDef{
		{Name: ColQueryName, Type: d.ColumnType("")},
		{Name: ColTimeFrame, Type: d.ColumnType("")},
		{Name: ColQueryType, Type: d.ColumnType(""), Nullable: true},
		{Name: ColQueryResult, Type: d.ColumnType(int64(0)), Nullable: true},
		{Name: ColQueryRunTime, Type: d.ColumnType(time.Time{}), Nullable: true},
		{Name: ColQueryDescription, Type: d.ColumnType(""), Nullable: true},
		{Name: ColRemedyDesc, Type: d.ColumnType(""), Nullable: true},
		{Name: ColRemedyDate, Type: d.ColumnType(time.Time{}), Nullable: true},
		{Name: ColQAUser, Type: d.ColumnType(""), Nullable: true},
		{Name: ColIsDone, Type: d.ColumnType(int64(0)), Nullable: true},
		{Name: ColDataScope, Type: d.ColumnType(int64(0)), Nullable: true},
	}

	ddl := d.CreateTable(s.table, columns, []string{ColQueryName, ColTimeFrame}, true)
	if _, err := s.store.Execute(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create results table %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes the summary of one check run. An existing (Query_Name, Time_Frame) row is updated in place
// with Is_Done and Data_Scope reset; otherwise a row is inserted.
func (s *ResultsStore) Upsert(ctx context.Context, rec ResultRecord) (UpsertAction, error) {
	d := s.store.Dialect()
	key := And(
		Eq(Col("", ColQueryName), placeholder(1)),
		Eq(Col("", ColTimeFrame), placeholder(2)),
	)

	countQuery := Select(As(CountAll(), "cnt")).From(s.table).Where(key).SQL(d)
	res, err := s.store.Query(ctx, countQuery, rec.QueryName, rec.TimeFrame)
	if err != nil {
		return "", fmt.Errorf("failed to count results for %s/%s: %w", rec.QueryName, rec.TimeFrame, err)
	}

	existing, err := toInt64(res.Value(0, "cnt"))
	if err != nil {
		return "", fmt.Errorf("failed to read result count for %s: %w", rec.QueryName, err)
	}
	if existing > 1 {
		s.logger.Warn("results table holds duplicate rows for key, all are updated",
			"check_id", rec.QueryName,
			"time_frame", rec.TimeFrame,
			"rows", existing)
	}

	if existing >= 1 {
		assignments := []string{
			d.QuoteIdent(ColQueryType) + " = " + d.Placeholder(1),
			d.QuoteIdent(ColQueryResult) + " = " + d.Placeholder(2),
			d.QuoteIdent(ColQueryRunTime) + " = " + d.Placeholder(3),
			d.QuoteIdent(ColQueryDescription) + " = " + d.Placeholder(4),
			d.QuoteIdent(ColQAUser) + " = " + d.Placeholder(5),
			d.QuoteIdent(ColIsDone) + " = 0",
			d.QuoteIdent(ColDataScope) + " = 0",
		}
		where := And(
			Eq(Col("", ColQueryName), placeholder(6)),
			Eq(Col("", ColTimeFrame), placeholder(7)),
		).Render(d)

		_, err := s.store.Execute(ctx, d.Update(s.table, assignments, where),
			rec.QueryType, rec.QueryResult, rec.QueryRunTime, rec.QueryDescription, rec.QAUser,
			rec.QueryName, rec.TimeFrame)
		if err != nil {
			return "", fmt.Errorf("failed to update results for %s/%s: %w", rec.QueryName, rec.TimeFrame, err)
		}
		return UpsertUpdated, nil
	}

	columns := []string{
		ColQueryName, ColTimeFrame, ColQueryType, ColQueryResult, ColQueryRunTime,
		ColQueryDescription, ColQAUser, ColIsDone, ColDataScope,
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.QuoteIdent(col)
		marks[i] = d.Placeholder(i + 1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(s.table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	_, err = s.store.Execute(ctx, insert,
		rec.QueryName, rec.TimeFrame, rec.QueryType, rec.QueryResult, rec.QueryRunTime,
		rec.QueryDescription, rec.QAUser, boolToInt(rec.IsDone), boolToInt(rec.DataScope))
	if err != nil {
		return "", fmt.Errorf("failed to insert results for %s/%s: %w", rec.QueryName, rec.TimeFrame, err)
	}
	return UpsertInserted, nil
}

// Find returns the result rows stored for a check and timeframe.
func (s *ResultsStore) Find(ctx context.Context, checkID string, timeFrame string) ([]ResultRecord, error) {
	d := s.store.Dialect()
	query := Select(
		Col("", ColQueryName), Col("", ColTimeFrame), Col("", ColQueryType), Col("", ColQueryResult),
		Col("", ColQueryDescription), Col("", ColQAUser), Col("", ColIsDone), Col("", ColDataScope),
	).From(s.table).Where(And(
		Eq(Col("", ColQueryName), placeholder(1)),
		Eq(Col("", ColTimeFrame), placeholder(2)),
	)).SQL(d)

	res, err := s.store.Query(ctx, query, checkID, timeFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to read results for %s/%s: %w", checkID, timeFrame, err)
	}

	records := make([]ResultRecord, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		count, err := toInt64(res.Value(i, ColQueryResult))
		if err != nil {
			return nil, err
		}
		done, _ := toInt64(res.Value(i, ColIsDone))
		scope, _ := toInt64(res.Value(i, ColDataScope))
		records = append(records, ResultRecord{
			QueryName:        flagString(res.Value(i, ColQueryName)),
			TimeFrame:        flagString(res.Value(i, ColTimeFrame)),
			QueryType:        flagString(res.Value(i, ColQueryType)),
			QueryResult:      count,
			QueryDescription: flagString(res.Value(i, ColQueryDescription)),
			QAUser:           flagString(res.Value(i, ColQAUser)),
			IsDone:           done != 0,
			DataScope:        scope != 0,
		})
	}
	return records, nil
}

func placeholder(n int) Expr {
	return exprFunc(func(d Dialect) string {
		return d.Placeholder(n)
	})
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		return boolToInt(v), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected numeric value of type %T", value)
	}
}
