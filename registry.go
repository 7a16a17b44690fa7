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
	"regexp"
	"strconv"
	"strings"
)

// MaxDescriptionLength is the longest description a check view may carry.
const MaxDescriptionLength = 255

const (
	QueryTypeFlag          = "Flag"
	QueryTypeInformational = "Informational"
)

var flagCodePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// PredicateBuilder returns the select statement listing the records that violate a check.
// Builders may push intermediate views through YearlyContext.PushView before returning.
type PredicateBuilder func(ctx context.Context, yc *YearlyContext) (string, error)

// FlagPolicy declares whether and how a check marks offending records.
// The zero value is NoFlag.
type FlagPolicy struct {
	FlagCode        string
	SourceTable     string
	SourceFlagField string
	ViewFlagField   string
	JoinKeyField    string
}

// NoFlag is the policy of informational checks.
var NoFlag = FlagPolicy{}

// ApplyFlag returns a policy that appends code to sourceTable.sourceField for every record of the
// check view whose viewField lacks it. Records are matched on joinKey, present in both the view and the table.
func ApplyFlag(code, sourceTable, sourceField, viewField, joinKey string) FlagPolicy {
	return FlagPolicy{
		FlagCode:        code,
		SourceTable:     sourceTable,
		SourceFlagField: sourceField,
		ViewFlagField:   viewField,
		JoinKeyField:    joinKey,
	}
}

func (p FlagPolicy) Applies() bool {
	return p.FlagCode != ""
}

func (p FlagPolicy) Validate() error {
	if !p.Applies() {
		if p != NoFlag {
			return fmt.Errorf("flag policy without a flag code must be empty")
		}
		return nil
	}
	if !flagCodePattern.MatchString(p.FlagCode) {
		return fmt.Errorf("flag code %q must be alphanumeric", p.FlagCode)
	}
	if p.SourceTable == "" || p.SourceFlagField == "" || p.ViewFlagField == "" || p.JoinKeyField == "" {
		return fmt.Errorf("flag policy %s requires source table, source field, view field and join key", p.FlagCode)
	}
	return nil
}

// CheckDefinition is an immutable registered check.
type CheckDefinition struct {
	ID                  string
	DescriptionTemplate string
	Build               PredicateBuilder
	Flag                FlagPolicy
}

// QueryType is the value stored in the results table for this check.
func (c *CheckDefinition) QueryType() string {
	if c.Flag.Applies() {
		return QueryTypeFlag
	}
	return QueryTypeInformational
}

// Description renders the description template for year.
func (c *CheckDefinition) Description(year int) string {
	return RenderDescription(c.DescriptionTemplate, year)
}

// RenderDescription substitutes {{year}} in a description template.
func RenderDescription(template string, year int) string {
	return strings.ReplaceAll(template, "{{year}}", strconv.Itoa(year))
}

// Registry maps check ids to their definitions. It is filled once at startup.
type Registry struct {
	checks map[string]*CheckDefinition
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]*CheckDefinition)}
}

func (r *Registry) Register(id string, descriptionTemplate string, build PredicateBuilder, policy FlagPolicy) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("check id is required")
	}
	if build == nil {
		return fmt.Errorf("check %s has no predicate builder", id)
	}
	if _, exists := r.checks[id]; exists {
		return fmt.Errorf("check %s is already registered", id)
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("check %s: %w", id, err)
	}

	r.checks[id] = &CheckDefinition{
		ID:                  id,
		DescriptionTemplate: descriptionTemplate,
		Build:               build,
		Flag:                policy,
	}
	r.order = append(r.order, id)
	return nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (r *Registry) MustRegister(id string, descriptionTemplate string, build PredicateBuilder, policy FlagPolicy) {
	if err := r.Register(id, descriptionTemplate, build, policy); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(id string) (*CheckDefinition, error) {
	def, ok := r.checks[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, id)
	}
	return def, nil
}

// IDs lists registered check ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
