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
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/DataBridgeTech/dbqflag"
)

// SqlDialect is a dialect usable by SqlStore.
type SqlDialect interface {
	dbqflag.Dialect

	// ObjectKindQuery selects the kind of the object named by the first bind parameter.
	// The single returned column contains "view" for views.
	ObjectKindQuery() string
	DropStatement(name string, isView bool) string
	AnnotateStatements(name string, description string) []string
}

// SqlStore is a DbqStore over database/sql.
type SqlStore struct {
	db      *sql.DB
	dialect SqlDialect
	logger  *slog.Logger
}

func NewSqlStore(db *sql.DB, dialect SqlDialect, logger *slog.Logger) *SqlStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SqlStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (s *SqlStore) Dialect() dbqflag.Dialect {
	return s.dialect
}

func (s *SqlStore) Ping(ctx context.Context) (string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return "", dbqflag.ConnectivityError("ping "+s.dialect.Name(), err)
	}
	return "OK", nil
}

func (s *SqlStore) Query(ctx context.Context, query string, args ...interface{}) (*dbqflag.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbqflag.ConnectivityError("run query", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rows", "error", err)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, dbqflag.ConnectivityError("read columns", err)
	}

	result := &dbqflag.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, dbqflag.ConnectivityError("scan row", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, dbqflag.ConnectivityError("iterate rows", err)
	}
	return result, nil
}

func (s *SqlStore) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbqflag.ConnectivityError("execute statement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return affected, nil
}

func (s *SqlStore) MaterializeView(ctx context.Context, name string, query string) error {
	stmt := fmt.Sprintf("CREATE VIEW %s AS %s", s.dialect.QuoteIdent(name), query)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return dbqflag.ConnectivityError("create view "+name, err)
	}
	return nil
}

func (s *SqlStore) DropIfExists(ctx context.Context, name string) error {
	res, err := s.Query(ctx, s.dialect.ObjectKindQuery(), name)
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return nil
	}

	kind := strings.ToLower(fmt.Sprint(res.Rows[0][0]))
	isView := strings.Contains(kind, "view")
	if _, err := s.db.ExecContext(ctx, s.dialect.DropStatement(name, isView)); err != nil {
		return dbqflag.ConnectivityError("drop "+name, err)
	}
	s.logger.Debug("dropped object", "name", name, "kind", kind)
	return nil
}

func (s *SqlStore) CreateTableFromRows(ctx context.Context, name string, rows *dbqflag.ResultSet) error {
	ddl := s.dialect.CreateTable(name, inferColumns(s.dialect, rows), nil, false)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return dbqflag.ConnectivityError("create table "+name, err)
	}
	if rows.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbqflag.ConnectivityError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement(s.dialect, name, rows.Columns))
	if err != nil {
		return dbqflag.ConnectivityError("prepare insert into "+name, err)
	}
	defer stmt.Close()

	for _, row := range rows.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return dbqflag.ConnectivityError("insert into "+name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return dbqflag.ConnectivityError("commit "+name, err)
	}
	return nil
}

func (s *SqlStore) AnnotateView(ctx context.Context, name string, description string) error {
	for _, stmt := range s.dialect.AnnotateStatements(name, description) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return dbqflag.ConnectivityError("annotate view "+name, err)
		}
	}
	return nil
}

func (s *SqlStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *SqlStore) DB() *sql.DB {
	return s.db
}
