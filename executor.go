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
	"time"
	"unicode/utf8"
)

// RunOutcome is the result of executing one check.
type RunOutcome struct {
	CheckID        string
	View           string
	RowCount       int64
	Flagged        int
	AlreadyFlagged int
	Result         UpsertAction
	DurationMs     int64
}

// Executor runs a single check: build, materialize, annotate, upsert, flag.
type Executor struct {
	results  *ResultsStore
	operator string
	audit    AuditLog
	logger   *slog.Logger
	now      func() time.Time
}

func NewExecutor(results *ResultsStore, operator string, audit AuditLog, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if audit == nil {
		audit = nopAuditLog{}
	}
	return &Executor{
		results:  results,
		operator: operator,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes check against yc. description overrides the check's template when not empty.
// Failures are returned as *CheckError naming the failed step.
func (e *Executor) Run(ctx context.Context, check *CheckDefinition, description string, yc *YearlyContext) (*RunOutcome, error) {
	startTime := time.Now()
	if description == "" {
		description = check.Description(yc.Year)
	} else {
		description = RenderDescription(description, yc.Year)
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLength {
		return nil, &CheckError{
			CheckID: check.ID,
			Op:      OpAnnotate,
			Err:     fmt.Errorf("%w: %d characters, limit is %d", ErrDescriptionTooLong, n, MaxDescriptionLength),
		}
	}

	query, err := check.Build(ctx, yc)
	if err != nil {
		return nil, &CheckError{CheckID: check.ID, Op: OpBuild, Err: err}
	}

	e.logger.Debug("materializing check view",
		"check_id", check.ID,
		"check_query", query)

	if err := yc.PushView(ctx, check.ID, query); err != nil {
		return nil, &CheckError{CheckID: check.ID, Op: OpMaterialize, Err: err}
	}

	d := yc.Write.Dialect()
	res, err := yc.Write.Query(ctx, Select(As(CountAll(), "cnt")).From(check.ID).SQL(d))
	if err != nil {
		return nil, &CheckError{CheckID: check.ID, Op: OpCount, Err: err}
	}
	rowCount, err := toInt64(res.Value(0, "cnt"))
	if err != nil {
		return nil, &CheckError{CheckID: check.ID, Op: OpCount, Err: err}
	}

	if err := yc.Write.AnnotateView(ctx, check.ID, description); err != nil {
		e.logger.Warn("failed to annotate check view",
			"check_id", check.ID,
			"error", err)
	}

	action, err := e.results.Upsert(ctx, ResultRecord{
		QueryName:        check.ID,
		TimeFrame:        TimeFrame(yc.Year),
		QueryType:        check.QueryType(),
		QueryResult:      rowCount,
		QueryRunTime:     e.now(),
		QueryDescription: description,
		QAUser:           e.operator,
	})
	if err != nil {
		return nil, &CheckError{CheckID: check.ID, Op: OpUpsert, Err: err}
	}

	outcome := &RunOutcome{
		CheckID:  check.ID,
		View:     check.ID,
		RowCount: rowCount,
		Result:   action,
	}

	if check.Flag.Applies() {
		flagOutcome, err := NewFlagEngine(yc.Write, e.logger).ApplyFlag(ctx, check.ID, check.Flag)
		if err != nil {
			return nil, &CheckError{CheckID: check.ID, Op: OpFlag, Err: err}
		}
		outcome.Flagged = flagOutcome.Flagged
		outcome.AlreadyFlagged = flagOutcome.AlreadyFlagged
		e.appendAudit(fmt.Sprintf("Success Applying QC Flags for - %s (%d flagged, %d already flagged)",
			check.ID, flagOutcome.Flagged, flagOutcome.AlreadyFlagged))
	}

	outcome.DurationMs = time.Since(startTime).Milliseconds()
	e.appendAudit(fmt.Sprintf("Success processing check - %s - %d records", check.ID, rowCount))
	e.logger.Info("check completed",
		"check_id", check.ID,
		"rows", rowCount,
		"flagged", outcome.Flagged,
		"result", string(action),
		"duration_ms", outcome.DurationMs)

	return outcome, nil
}

func (e *Executor) appendAudit(line string) {
	if err := e.audit.Append(line); err != nil {
		e.logger.Warn("failed to write audit log", "error", err)
	}
}
