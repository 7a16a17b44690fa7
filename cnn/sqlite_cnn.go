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

package cnn

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/DataBridgeTech/dbqflag"
	_ "modernc.org/sqlite"
)

// NewSqliteConnection opens the database file at connectionCfg.Path, ":memory:" when empty.
// The pool holds a single connection so in-memory databases are shared and writes are serialized.
func NewSqliteConnection(connectionCfg dbqflag.ConnectionConfig) (*sql.DB, error) {
	path := connectionCfg.Path
	if path == "" {
		path = ":memory:"
	}

	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, params.Encode()))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}
