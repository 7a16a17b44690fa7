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

package dbq

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/DataBridgeTech/dbqflag/adapters"
	"github.com/DataBridgeTech/dbqflag/cnn"
	"github.com/DataBridgeTech/dbqflag/protocols/snplpore"
)

const (
	Version = "v0.1.0"
)

func GetDbqFlagLibVersion() string {
	return Version
}

// Protocols returns every built-in check catalog.
func Protocols() []dbqflag.Protocol {
	return []dbqflag.Protocol{
		snplpore.New(),
	}
}

func NewDbqStore(dataSource *dbqflag.DataSource, logger *slog.Logger) (dbqflag.DbqStore, error) {
	switch dataSource.Type {
	case dbqflag.DataSourceTypeClickhouse:
		connection, err := cnn.NewClickhouseConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
		}
		return adapters.NewClickhouseStore(connection, logger), nil
	case dbqflag.DataSourceTypePostgresql:
		connection, err := cnn.NewPostgresqlConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql connection: %w", err)
		}
		return adapters.NewSqlStore(connection, adapters.PostgresqlDialect{}, logger), nil
	case dbqflag.DataSourceTypeMysql:
		connection, err := cnn.NewMysqlConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connection: %w", err)
		}
		return adapters.NewSqlStore(connection, adapters.MysqlDialect{}, logger), nil
	case dbqflag.DataSourceTypeSqlite:
		connection, err := cnn.NewSqliteConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
		return adapters.NewSqliteStore(connection, logger), nil
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", dataSource.Type)
	}
}

// NewRegistry registers every built-in catalog, plus the raw_query checks of checksFile for protocol.
func NewRegistry(protocols []dbqflag.Protocol, checksFile *dbqflag.ChecksFileConfig, protocol string) (*dbqflag.Registry, error) {
	registry := dbqflag.NewRegistry()
	for _, p := range protocols {
		if err := p.Register(registry); err != nil {
			return nil, err
		}
	}
	if checksFile != nil {
		if err := checksFile.RegisterRawQueries(registry, protocol); err != nil {
			return nil, fmt.Errorf("failed to register raw_query checks: %w", err)
		}
	}
	return registry, nil
}

// Runner wires a RunConfig into a coordinator run.
type Runner struct {
	cfg        *dbqflag.RunConfig
	read       dbqflag.DbqStore
	write      dbqflag.DbqStore
	protocols  []dbqflag.Protocol
	checksFile *dbqflag.ChecksFileConfig
	audit      dbqflag.AuditLog
	logger     *slog.Logger
}

// NewRunner opens the configured stores and the run log file.
func NewRunner(cfg *dbqflag.RunConfig, logger *slog.Logger) (*Runner, error) {
	read, err := NewDbqStore(&cfg.ReadSource, logger)
	if err != nil {
		return nil, err
	}

	write := read
	if cfg.WriteSource != nil {
		write, err = NewDbqStore(cfg.WriteSource, logger)
		if err != nil {
			_ = read.Close()
			return nil, err
		}
	}

	closeStores := func() {
		if write != read {
			_ = write.Close()
		}
		_ = read.Close()
	}

	audit, err := dbqflag.NewFileAuditLog(cfg.OutDir, fmt.Sprintf("%s_%d", cfg.Protocol, cfg.Year))
	if err != nil {
		closeStores()
		return nil, err
	}

	runner, err := NewRunnerWithStores(cfg, read, write, audit, logger)
	if err != nil {
		_ = audit.Close()
		closeStores()
		return nil, err
	}
	return runner, nil
}

// NewRunnerWithStores builds a runner over already opened stores. write may be nil to reuse read.
func NewRunnerWithStores(cfg *dbqflag.RunConfig, read dbqflag.DbqStore, write dbqflag.DbqStore, audit dbqflag.AuditLog, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if write == nil {
		write = read
	}

	runner := &Runner{
		cfg:       cfg,
		read:      read,
		write:     write,
		protocols: Protocols(),
		audit:     audit,
		logger:    logger,
	}

	if cfg.ChecksSource == dbqflag.ChecksSourceFile {
		checksFile, err := dbqflag.LoadChecksFileConfig(cfg.ChecksFile)
		if err != nil {
			return nil, err
		}
		runner.checksFile = checksFile
	}
	return runner, nil
}

// Registry returns the checks available to the configured protocol.
func (r *Runner) Registry() (*dbqflag.Registry, error) {
	return NewRegistry(r.protocols, r.checksFile, r.cfg.Protocol)
}

func (r *Runner) checkSource() dbqflag.CheckSource {
	if r.checksFile != nil {
		return r.checksFile
	}
	return dbqflag.NewTableCheckSource(r.read, r.cfg.ChecksTable)
}

// Run executes every enabled check of the configured protocol and year.
func (r *Runner) Run(ctx context.Context) (*dbqflag.RunReport, error) {
	registry, err := r.Registry()
	if err != nil {
		return nil, err
	}

	results := dbqflag.NewResultsStore(r.write, r.cfg.ResultsTable, r.logger)
	executor := dbqflag.NewExecutor(results, r.cfg.Operator, r.audit, r.logger)
	coordinator := dbqflag.NewCoordinator(registry, r.protocols, r.checkSource(), executor, results, dbqflag.CoordinatorOptions{
		AbortOnFirstFailure: r.cfg.ShouldAbortOnFirstFailure(),
		Audit:               r.audit,
		Logger:              r.logger,
	})

	yc := dbqflag.NewYearlyContext(r.cfg.Year, r.read, r.write)
	return coordinator.RunAll(ctx, yc, r.cfg.Protocol)
}

// Ping checks both stores.
func (r *Runner) Ping(ctx context.Context) (map[string]string, error) {
	info := make(map[string]string, 2)
	readInfo, err := r.read.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	info["read"] = readInfo

	writeInfo, err := r.write.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("write store: %w", err)
	}
	info["write"] = writeInfo
	return info, nil
}

func (r *Runner) Close() error {
	var firstErr error
	if closer, ok := r.audit.(io.Closer); ok {
		firstErr = closer.Close()
	}
	if r.write != r.read {
		if err := r.write.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.read.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
