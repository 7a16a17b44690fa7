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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckFailure records a check that did not complete.
type CheckFailure struct {
	CheckID string
	Err     error
}

// RunReport summarizes one RunAll call.
type RunReport struct {
	RunID     string
	Protocol  string
	Year      int
	StartedAt time.Time
	Outcomes  []*RunOutcome
	Failures  []CheckFailure
	// Aborted is set when the run stopped before every enabled check was attempted.
	Aborted bool
}

func (r *RunReport) Succeeded() bool {
	return len(r.Failures) == 0 && !r.Aborted
}

type CoordinatorOptions struct {
	// AbortOnFirstFailure stops the run at the first failed check. Fatal errors always stop it.
	AbortOnFirstFailure bool
	Audit               AuditLog
	Logger              *slog.Logger
}

// Coordinator drives the executor over every enabled check of a protocol.
type Coordinator struct {
	registry  *Registry
	protocols map[string]Protocol
	source    CheckSource
	executor  *Executor
	results   *ResultsStore
	audit     AuditLog
	logger    *slog.Logger
	abort     bool
}

func NewCoordinator(registry *Registry, protocols []Protocol, source CheckSource, executor *Executor, results *ResultsStore, opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	audit := opts.Audit
	if audit == nil {
		audit = nopAuditLog{}
	}

	byName := make(map[string]Protocol, len(protocols))
	for _, p := range protocols {
		byName[strings.ToUpper(p.Name())] = p
	}

	return &Coordinator{
		registry:  registry,
		protocols: byName,
		source:    source,
		executor:  executor,
		results:   results,
		audit:     audit,
		logger:    logger,
		abort:     opts.AbortOnFirstFailure,
	}
}

// RunAll runs the enabled checks of protocol for yc.Year in order.
// The returned error is the one that stopped the run, or nil.
func (c *Coordinator) RunAll(ctx context.Context, yc *YearlyContext, protocol string) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Protocol:  protocol,
		Year:      yc.Year,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("run_id", report.RunID, "protocol", protocol, "year", yc.Year)

	proto, ok := c.protocols[strings.ToUpper(strings.TrimSpace(protocol))]
	if !ok {
		logger.Warn("protocol is not supported, terminating run")
		c.appendAudit(fmt.Sprintf("Unsupported protocol - %s", protocol))
		report.Aborted = true
		return report, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, protocol)
	}

	if checker, ok := yc.Write.(ExclusiveAccessChecker); ok {
		if err := checker.EnsureExclusive(ctx); err != nil {
			return c.abortRun(logger, report, "", fmt.Errorf("write store precondition: %w", err))
		}
	}

	if err := proto.PrepareYear(ctx, yc); err != nil {
		return c.abortRun(logger, report, "", fmt.Errorf("failed to prepare year %d: %w", yc.Year, err))
	}
	if err := c.results.EnsureTable(ctx); err != nil {
		return c.abortRun(logger, report, "", err)
	}

	checks, err := c.source.EnabledChecks(ctx, proto.Name())
	if err != nil {
		return c.abortRun(logger, report, "", err)
	}
	logger.Info("starting run", "checks", len(checks))

	for _, cfg := range checks {
		def, err := c.registry.Resolve(cfg.ID)
		if err != nil {
			return c.abortRun(logger, report, cfg.ID, err)
		}

		outcome, err := c.executor.Run(ctx, def, cfg.Description, yc)
		if err != nil {
			report.Failures = append(report.Failures, CheckFailure{CheckID: cfg.ID, Err: err})
			c.logFailure(logger, cfg.ID, err)

			if c.abort || IsFatal(err) || errors.Is(err, context.Canceled) {
				report.Aborted = true
				return report, err
			}
			continue
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if len(report.Failures) > 0 {
		logger.Warn("run finished with failures", "failed", len(report.Failures), "succeeded", len(report.Outcomes))
		return report, fmt.Errorf("%d of %d checks failed", len(report.Failures), len(checks))
	}

	c.appendAudit(fmt.Sprintf("Successfully Finished All QC Checks for - %s", proto.Name()))
	logger.Info("run finished", "succeeded", len(report.Outcomes))
	return report, nil
}

func (c *Coordinator) abortRun(logger *slog.Logger, report *RunReport, checkID string, err error) (*RunReport, error) {
	if checkID != "" {
		report.Failures = append(report.Failures, CheckFailure{CheckID: checkID, Err: err})
	}
	report.Aborted = true
	c.logFailure(logger, checkID, err)
	return report, err
}

func (c *Coordinator) logFailure(logger *slog.Logger, checkID string, err error) {
	op := ""
	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		op = checkErr.Op
	}
	logger.Error("check failed",
		"check_id", checkID,
		"op", op,
		"fatal", IsFatal(err),
		"error", err)

	if checkID == "" {
		c.appendAudit(fmt.Sprintf("Failed QC run - %v", err))
		return
	}
	c.appendAudit(fmt.Sprintf("Failed Processing - %s - %v", checkID, err))
}

func (c *Coordinator) appendAudit(line string) {
	if err := c.audit.Append(line); err != nil {
		c.logger.Warn("failed to write audit log", "error", err)
	}
}
