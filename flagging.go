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
)

// StagingPrefix prefixes the disposable tables holding records that need a flag.
const StagingPrefix = "tmp_flag_"

// FlagOutcome summarizes one flag application.
type FlagOutcome struct {
	// Flagged is the number of distinct records the flag code was appended to.
	Flagged int
	// AlreadyFlagged is the number of view rows that already carried the code.
	AlreadyFlagged int
}

// FlagEngine appends a check's flag code to the records of its view that lack it.
type FlagEngine struct {
	store  DbqStore
	logger *slog.Logger
}

func NewFlagEngine(store DbqStore, logger *slog.Logger) *FlagEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FlagEngine{store: store, logger: logger}
}

// ApplyFlag flags the source records behind view according to policy.
// Codes already present on a record, from this or any other check, are kept.
func (e *FlagEngine) ApplyFlag(ctx context.Context, view string, policy FlagPolicy) (*FlagOutcome, error) {
	if !policy.Applies() {
		return &FlagOutcome{}, nil
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	d := e.store.Dialect()
	rows, err := e.store.Query(ctx, Select().From(view).SQL(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read check view %s: %w", view, err)
	}

	needsFlag, alreadyFlagged, err := partitionByFlag(rows, policy)
	if err != nil {
		return nil, fmt.Errorf("check view %s: %w", view, err)
	}

	outcome := &FlagOutcome{AlreadyFlagged: alreadyFlagged}
	if needsFlag.Len() == 0 {
		e.logger.Info("no records need flag",
			"view", view,
			"flag_code", policy.FlagCode,
			"already_flagged", alreadyFlagged)
		return outcome, nil
	}

	staging := StagingPrefix + view
	if err := e.store.DropIfExists(ctx, staging); err != nil {
		return nil, fmt.Errorf("failed to drop staging table %s: %w", staging, err)
	}
	if err := e.store.CreateTableFromRows(ctx, staging, needsFlag); err != nil {
		return nil, fmt.Errorf("failed to create staging table %s: %w", staging, err)
	}
	defer func() {
		if err := e.store.DropIfExists(context.WithoutCancel(ctx), staging); err != nil {
			e.logger.Warn("failed to drop staging table", "table", staging, "error", err)
		}
	}()

	updated, err := e.store.Execute(ctx, FlagUpdateSQL(d, policy, staging))
	if err != nil {
		return nil, fmt.Errorf("failed to apply flag %s to %s: %w", policy.FlagCode, policy.SourceTable, err)
	}

	outcome.Flagged = needsFlag.Len()
	e.logger.Info("applied flag",
		"view", view,
		"flag_code", policy.FlagCode,
		"source_table", policy.SourceTable,
		"flagged", outcome.Flagged,
		"rows_updated", updated,
		"already_flagged", alreadyFlagged)

	return outcome, nil
}

// partitionByFlag returns the distinct join keys of rows lacking the flag code,
// as a single-column result set, and the count of rows already carrying it.
func partitionByFlag(rows *ResultSet, policy FlagPolicy) (*ResultSet, int, error) {
	keyIdx := rows.ColumnIndex(policy.JoinKeyField)
	if keyIdx < 0 {
		return nil, 0, &MissingColumnError{Column: policy.JoinKeyField}
	}
	flagIdx := rows.ColumnIndex(policy.ViewFlagField)
	if flagIdx < 0 {
		return nil, 0, &MissingColumnError{Column: policy.ViewFlagField}
	}

	needsFlag := &ResultSet{Columns: []string{policy.JoinKeyField}}
	seen := make(map[string]struct{})
	alreadyFlagged := 0
	for _, row := range rows.Rows {
		if HasFlagToken(row[flagIdx], policy.FlagCode) {
			alreadyFlagged++
			continue
		}
		key := row[keyIdx]
		if key == nil {
			continue
		}
		k := flagString(key)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		needsFlag.Rows = append(needsFlag.Rows, []interface{}{key})
	}

	return needsFlag, alreadyFlagged, nil
}

// FlagUpdateSQL renders the statement appending policy.FlagCode to every source record whose key is in staging.
// Records whose flag field already holds the code are left untouched.
func FlagUpdateSQL(d Dialect, policy FlagPolicy, staging string) string {
	field := Col("", policy.SourceFlagField)
	code := Str(policy.FlagCode)

	value := Case(
		Or(IsNull(field), Eq(field, Str(""))),
		code,
		Concat(field, Str(FlagSeparator), code),
	)

	alreadyCarries := Contains(
		Concat(Str(FlagSeparator), Coalesce(field, Str("")), Str(FlagSeparator)),
		Str(FlagSeparator+policy.FlagCode+FlagSeparator),
	)

	where := And(
		InSelect(Col("", policy.JoinKeyField), Select(Col("", policy.JoinKeyField)).From(staging)),
		Not(alreadyCarries),
	)

	return d.Update(policy.SourceTable, []string{field.Render(d) + " = " + value.Render(d)}, where.Render(d))
}
