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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DataSourceType string

const (
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
	DataSourceTypeSqlite     DataSourceType = "sqlite"
)

const (
	ChecksSourceTable = "table"
	ChecksSourceFile  = "file"
)

type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Path is the database file of file-backed stores.
	Path string `yaml:"path"`
}

type DataSource struct {
	ID            string           `yaml:"id"`
	Type          DataSourceType   `yaml:"type" validate:"required,oneof=clickhouse postgresql mysql sqlite"`
	Configuration ConnectionConfig `yaml:"configuration"`
}

type RunConfig struct {
	Version             string      `yaml:"version"`
	Protocol            string      `yaml:"protocol" validate:"required"`
	Year                int         `yaml:"year" validate:"gte=1900,lte=2200"`
	Operator            string      `yaml:"operator" validate:"required"`
	OutDir              string      `yaml:"out_dir"`
	AbortOnFirstFailure *bool       `yaml:"abort_on_first_failure"`
	ChecksSource        string      `yaml:"checks_source" validate:"omitempty,oneof=table file"`
	ChecksFile          string      `yaml:"checks_file" validate:"required_if=ChecksSource file"`
	ChecksTable         string      `yaml:"checks_table"`
	ResultsTable        string      `yaml:"results_table"`
	ReadSource          DataSource  `yaml:"read_source"`
	WriteSource         *DataSource `yaml:"write_source"`
}

// envOverrides are applied on top of the YAML file.
type envOverrides struct {
	Year       int    `env:"DBQFLAG_YEAR"`
	Operator   string `env:"DBQFLAG_OPERATOR"`
	Protocol   string `env:"DBQFLAG_PROTOCOL"`
	DbPassword string `env:"DBQFLAG_DB_PASSWORD"`
	OutDir     string `env:"DBQFLAG_OUT_DIR"`
}

var configValidator = validator.New()

// LoadRunConfig reads the YAML run configuration at fileName, loads envFile when given,
// applies DBQFLAG_* environment overrides and validates the result.
func LoadRunConfig(fileName string, envFile string) (*RunConfig, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config %s: %w", fileName, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *RunConfig) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if overrides.Year != 0 {
		cfg.Year = overrides.Year
	}
	if overrides.Operator != "" {
		cfg.Operator = overrides.Operator
	}
	if overrides.Protocol != "" {
		cfg.Protocol = overrides.Protocol
	}
	if overrides.OutDir != "" {
		cfg.OutDir = overrides.OutDir
	}
	if overrides.DbPassword != "" {
		cfg.ReadSource.Configuration.Password = overrides.DbPassword
		if cfg.WriteSource != nil {
			cfg.WriteSource.Configuration.Password = overrides.DbPassword
		}
	}
	return nil
}

func (cfg *RunConfig) applyDefaults() {
	if cfg.ChecksSource == "" {
		cfg.ChecksSource = ChecksSourceTable
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if cfg.AbortOnFirstFailure == nil {
		abort := true
		cfg.AbortOnFirstFailure = &abort
	}
	cfg.Protocol = strings.TrimSpace(cfg.Protocol)
}

// Validate checks the configuration, reporting every failing field.
func (cfg *RunConfig) Validate() error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid run config: %w", err)
	}
	problems := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid run config: %s", strings.Join(problems, "; "))
}

// Write returns the data source holding views and results, the read source when not set.
func (cfg *RunConfig) Write() *DataSource {
	if cfg.WriteSource != nil {
		return cfg.WriteSource
	}
	return &cfg.ReadSource
}

func (cfg *RunConfig) ShouldAbortOnFirstFailure() bool {
	return cfg.AbortOnFirstFailure == nil || *cfg.AbortOnFirstFailure
}
