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
	"log/slog"
	"strings"

	"github.com/DataBridgeTech/dbqflag"
)

// SqliteStore is a SqlStore over a database file that checks for competing writers.
type SqliteStore struct {
	*SqlStore
}

func NewSqliteStore(db *sql.DB, logger *slog.Logger) *SqliteStore {
	return &SqliteStore{SqlStore: NewSqlStore(db, SqliteDialect{}, logger)}
}

// EnsureExclusive takes and releases the database write lock.
// It returns ErrStoreBusy when another connection or process holds it.
func (s *SqliteStore) EnsureExclusive(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return dbqflag.ConnectivityError("acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		if isSqliteBusy(err) {
			return fmt.Errorf("%w: %v", dbqflag.ErrStoreBusy, err)
		}
		return dbqflag.ConnectivityError("lock database", err)
	}
	if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return dbqflag.ConnectivityError("release database lock", err)
	}
	return nil
}

func isSqliteBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}
