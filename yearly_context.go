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
)

// YearlyContext is the read-only processing scope of one run.
type YearlyContext struct {
	Year int

	// Read is used for lookups by predicate builders.
	Read DbqStore
	// Write holds the source tables, check views, staging tables and the results table.
	Write DbqStore

	// ControlView names the view restricting records to Year, set by Protocol.PrepareYear.
	ControlView string
}

func NewYearlyContext(year int, read DbqStore, write DbqStore) *YearlyContext {
	if write == nil {
		write = read
	}
	return &YearlyContext{Year: year, Read: read, Write: write}
}

// Dialect is the dialect views are rendered in.
func (yc *YearlyContext) Dialect() Dialect {
	return yc.Write.Dialect()
}

// PushView replaces view name in the write store with query.
func (yc *YearlyContext) PushView(ctx context.Context, name string, query string) error {
	if err := yc.Write.DropIfExists(ctx, name); err != nil {
		return fmt.Errorf("failed to drop view %s: %w", name, err)
	}
	if err := yc.Write.MaterializeView(ctx, name, query); err != nil {
		return fmt.Errorf("failed to create view %s: %w", name, err)
	}
	return nil
}

// Protocol is a catalog of checks for one monitoring protocol.
type Protocol interface {
	Name() string
	// Register adds every check of the protocol to r.
	Register(r *Registry) error
	// PrepareYear materializes the yearly control view and sets yc.ControlView.
	PrepareYear(ctx context.Context, yc *YearlyContext) error
}
