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
	"strings"
)

// ChecksTable is the default table enumerating enabled checks per protocol.
const ChecksTable = "tbl_QCQueries"

// CheckConfig is one enabled check, as listed by a CheckSource.
type CheckConfig struct {
	ID string
	// Description overrides the registered description template when set.
	Description string
}

// CheckSource lists the enabled checks of a protocol in execution order.
type CheckSource interface {
	EnabledChecks(ctx context.Context, protocol string) ([]CheckConfig, error)
}

// TableCheckSource reads enabled checks from a table with the columns
// Query_Name, Query_Description, Protocol, Is_Enabled and Query_Order.
type TableCheckSource struct {
	store DbqStore
	table string
}

func NewTableCheckSource(store DbqStore, table string) *TableCheckSource {
	if table == "" {
		table = ChecksTable
	}
	return &TableCheckSource{store: store, table: table}
}

func (s *TableCheckSource) EnabledChecks(ctx context.Context, protocol string) ([]CheckConfig, error) {
	d := s.store.Dialect()
	query := Select(Col("", "Query_Name"), Col("", "Query_Description")).
		From(s.table).
		Where(Eq(Col("", "Protocol"), placeholder(1))).
		Where(Eq(Col("", "Is_Enabled"), Int(1))).
		OrderBy(Col("", "Query_Order")).
		OrderBy(Col("", "Query_Name")).
		SQL(d)

	res, err := s.store.Query(ctx, query, protocol)
	if err != nil {
		return nil, fmt.Errorf("failed to read enabled checks for %s: %w", protocol, err)
	}

	checks := make([]CheckConfig, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		id := strings.TrimSpace(flagString(res.Value(i, "Query_Name")))
		if id == "" {
			continue
		}
		checks = append(checks, CheckConfig{
			ID:          id,
			Description: strings.TrimSpace(flagString(res.Value(i, "Query_Description"))),
		})
	}
	return checks, nil
}

// StaticCheckSource serves a fixed list of checks regardless of protocol.
type StaticCheckSource []CheckConfig

func (s StaticCheckSource) EnabledChecks(context.Context, string) ([]CheckConfig, error) {
	return append([]CheckConfig(nil), s...), nil
}
