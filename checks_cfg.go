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
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const rawQueryKey = "raw_query"

type ChecksFileConfig struct {
	Version   string          `yaml:"version"`
	Protocols []ProtocolRules `yaml:"protocols"`
}

type ProtocolRules struct {
	Protocol string       `yaml:"protocol"`
	Checks   []CheckEntry `yaml:"checks"`
}

// CheckEntry is either a registered check id, with an optional description override,
// or a raw_query check carrying its own SQL and flag policy.
type CheckEntry struct {
	ID          string          `yaml:"-"`
	Description string          `yaml:"desc,omitempty"`
	Query       string          `yaml:"query,omitempty"`
	Flag        *FlagPolicyYAML `yaml:"flag,omitempty"`
}

type FlagPolicyYAML struct {
	Code        string `yaml:"code"`
	SourceTable string `yaml:"source_table"`
	SourceField string `yaml:"source_field"`
	ViewField   string `yaml:"view_field"`
	JoinKey     string `yaml:"join_key"`
}

func (f *FlagPolicyYAML) Policy() FlagPolicy {
	if f == nil {
		return NoFlag
	}
	return ApplyFlag(f.Code, f.SourceTable, f.SourceField, f.ViewField, f.JoinKey)
}

// IsRawQuery reports whether the entry declares its own SQL.
func (c *CheckEntry) IsRawQuery() bool {
	return c.Query != ""
}

func (c *CheckEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.ID = strings.TrimSpace(node.Value)
		if c.ID == "" {
			return fmt.Errorf("line %d: empty check id", node.Line)
		}
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: check entry must have exactly one key", node.Line)
		}
		key := node.Content[0].Value
		value := node.Content[1]

		if key == rawQueryKey {
			var rawQueryCheck struct {
				ID    string          `yaml:"id"`
				Desc  string          `yaml:"desc,omitempty"`
				Query string          `yaml:"query"`
				Flag  *FlagPolicyYAML `yaml:"flag,omitempty"`
			}
			if err := value.Decode(&rawQueryCheck); err != nil {
				return err
			}
			if rawQueryCheck.ID == "" || strings.TrimSpace(rawQueryCheck.Query) == "" {
				return fmt.Errorf("line %d: raw_query check requires id and query", node.Line)
			}
			c.ID = rawQueryCheck.ID
			c.Description = rawQueryCheck.Desc
			c.Query = rawQueryCheck.Query
			c.Flag = rawQueryCheck.Flag
			return nil
		}

		c.ID = strings.TrimSpace(key)
		if value.Kind == yaml.MappingNode {
			var checkDetails struct {
				Desc string `yaml:"desc,omitempty"`
			}
			if err := value.Decode(&checkDetails); err != nil {
				return err
			}
			c.Description = checkDetails.Desc
		}
		return nil
	}

	return fmt.Errorf("line %d: unsupported check entry", node.Line)
}

func LoadChecksFileConfig(fileName string) (*ChecksFileConfig, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg ChecksFileConfig
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse checks file %s: %w", fileName, err)
	}

	return &cfg, nil
}

func (cfg *ChecksFileConfig) rulesFor(protocol string) *ProtocolRules {
	for i := range cfg.Protocols {
		if strings.EqualFold(cfg.Protocols[i].Protocol, protocol) {
			return &cfg.Protocols[i]
		}
	}
	return nil
}

// EnabledChecks lists the protocol's entries in file order. It makes the file a CheckSource.
func (cfg *ChecksFileConfig) EnabledChecks(_ context.Context, protocol string) ([]CheckConfig, error) {
	rules := cfg.rulesFor(protocol)
	if rules == nil {
		return nil, nil
	}
	checks := make([]CheckConfig, 0, len(rules.Checks))
	for _, entry := range rules.Checks {
		checks = append(checks, CheckConfig{ID: entry.ID, Description: entry.Description})
	}
	return checks, nil
}

// RegisterRawQueries adds the protocol's raw_query checks to r.
// The query text may reference {{year}} and {{control}}, the yearly control view.
func (cfg *ChecksFileConfig) RegisterRawQueries(r *Registry, protocol string) error {
	rules := cfg.rulesFor(protocol)
	if rules == nil {
		return nil
	}
	for _, entry := range rules.Checks {
		if !entry.IsRawQuery() {
			continue
		}
		if err := r.Register(entry.ID, entry.Description, rawQueryBuilder(entry.Query), entry.Flag.Policy()); err != nil {
			return err
		}
	}
	return nil
}

func rawQueryBuilder(query string) PredicateBuilder {
	return func(_ context.Context, yc *YearlyContext) (string, error) {
		if strings.Contains(query, "{{control}}") && yc.ControlView == "" {
			return "", fmt.Errorf("query references {{control}} but no control view was prepared")
		}
		replacer := strings.NewReplacer(
			"{{year}}", strconv.Itoa(yc.Year),
			"{{control}}", yc.Dialect().QuoteIdent(yc.ControlView),
		)
		return strings.TrimRight(strings.TrimSpace(replacer.Replace(query)), ";"), nil
	}
}
