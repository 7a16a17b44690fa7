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
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/DataBridgeTech/dbqflag"
)

// ClickhouseStore is a DbqStore over the native ClickHouse protocol.
// Updates run as synchronous mutations.
type ClickhouseStore struct {
	cnn     driver.Conn
	dialect ClickhouseDialect
	logger  *slog.Logger
}

func NewClickhouseStore(cnn driver.Conn, logger *slog.Logger) *ClickhouseStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ClickhouseStore{
		cnn:    cnn,
		logger: logger,
	}
}

func (s *ClickhouseStore) Dialect() dbqflag.Dialect {
	return s.dialect
}

func (s *ClickhouseStore) Ping(ctx context.Context) (string, error) {
	if err := s.cnn.Ping(ctx); err != nil {
		return "", dbqflag.ConnectivityError("ping clickhouse", err)
	}
	serverVersion, err := s.cnn.ServerVersion()
	if err != nil {
		return "", dbqflag.ConnectivityError("read server version", err)
	}
	return serverVersion.String(), nil
}

func (s *ClickhouseStore) Query(ctx context.Context, query string, args ...interface{}) (*dbqflag.ResultSet, error) {
	rows, err := s.cnn.Query(ctx, query, args...)
	if err != nil {
		return nil, dbqflag.ConnectivityError("run query", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	columnTypes := rows.ColumnTypes()
	result := &dbqflag.ResultSet{Columns: rows.Columns()}
	for rows.Next() {
		scanArgs := make([]interface{}, len(columnTypes))
		for i, colType := range columnTypes {
			scanArgs[i] = reflect.New(colType.ScanType()).Interface()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, dbqflag.ConnectivityError("scan row", err)
		}

		values := make([]interface{}, len(scanArgs))
		for i := range scanArgs {
			values[i] = derefValue(reflect.ValueOf(scanArgs[i]).Elem())
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, dbqflag.ConnectivityError("iterate rows", err)
	}
	return result, nil
}

// derefValue unwraps the pointers used for Nullable columns.
func derefValue(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// Execute runs a statement. Mutations wait for completion. The affected row count is not reported.
func (s *ClickhouseStore) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	mutationCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := s.cnn.Exec(mutationCtx, query, args...); err != nil {
		return 0, dbqflag.ConnectivityError("execute statement", err)
	}
	return -1, nil
}

func (s *ClickhouseStore) MaterializeView(ctx context.Context, name string, query string) error {
	stmt := fmt.Sprintf("CREATE VIEW %s AS %s", s.dialect.QuoteIdent(name), query)
	if err := s.cnn.Exec(ctx, stmt); err != nil {
		return dbqflag.ConnectivityError("create view "+name, err)
	}
	return nil
}

// DropIfExists relies on DROP TABLE also dropping views in ClickHouse.
func (s *ClickhouseStore) DropIfExists(ctx context.Context, name string) error {
	if err := s.cnn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.dialect.QuoteIdent(name))); err != nil {
		return dbqflag.ConnectivityError("drop "+name, err)
	}
	return nil
}

func (s *ClickhouseStore) CreateTableFromRows(ctx context.Context, name string, rows *dbqflag.ResultSet) error {
	ddl := s.dialect.CreateTable(name, inferColumns(s.dialect, rows), nil, false)
	if err := s.cnn.Exec(ctx, ddl); err != nil {
		return dbqflag.ConnectivityError("create table "+name, err)
	}
	if rows.Len() == 0 {
		return nil
	}

	batch, err := s.cnn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.dialect.QuoteIdent(name)))
	if err != nil {
		return dbqflag.ConnectivityError("prepare batch for "+name, err)
	}
	for _, row := range rows.Rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return dbqflag.ConnectivityError("append to batch for "+name, err)
		}
	}
	if err := batch.Send(); err != nil {
		return dbqflag.ConnectivityError("send batch for "+name, err)
	}
	return nil
}

func (s *ClickhouseStore) AnnotateView(ctx context.Context, name string, description string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s MODIFY COMMENT %s", s.dialect.QuoteIdent(name), s.dialect.QuoteString(description))
	if err := s.cnn.Exec(ctx, stmt); err != nil {
		return dbqflag.ConnectivityError("annotate view "+name, err)
	}
	return nil
}

func (s *ClickhouseStore) Close() error {
	return s.cnn.Close()
}
