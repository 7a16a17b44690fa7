package dbqflag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopBuilder(context.Context, *YearlyContext) (string, error) {
	return "SELECT 1", nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("qa_b", "second", noopBuilder, NoFlag))
	require.NoError(t, r.Register("qa_a", "first {{year}}", noopBuilder, ApplyFlag("DFO", "tbl", "QCFlag", "ViewFlag", "Event_ID")))

	assert.Equal(t, []string{"qa_b", "qa_a"}, r.IDs())

	def, err := r.Resolve(" qa_a ")
	require.NoError(t, err)
	assert.Equal(t, QueryTypeFlag, def.QueryType())
	assert.Equal(t, "first 2024", def.Description(2024))

	def, err = r.Resolve("qa_b")
	require.NoError(t, err)
	assert.Equal(t, QueryTypeInformational, def.QueryType())
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	_, err := NewRegistry().Resolve("qa_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCheck))
	assert.True(t, IsFatal(err))
}

func TestRegistry_RegisterRejects(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		build  PredicateBuilder
		policy FlagPolicy
	}{
		{name: "empty id", id: " ", build: noopBuilder},
		{name: "no builder", id: "qa_x"},
		{name: "non alphanumeric code", id: "qa_x", build: noopBuilder,
			policy: ApplyFlag("D-FO", "tbl", "QCFlag", "ViewFlag", "Event_ID")},
		{name: "incomplete policy", id: "qa_x", build: noopBuilder,
			policy: FlagPolicy{FlagCode: "DFO", SourceTable: "tbl"}},
		{name: "fields without code", id: "qa_x", build: noopBuilder,
			policy: FlagPolicy{SourceTable: "tbl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.id, "", tt.build, tt.policy)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("qa_a", "", noopBuilder, NoFlag))
	assert.Error(t, r.Register("qa_a", "", noopBuilder, NoFlag))
	assert.Panics(t, func() { r.MustRegister("qa_a", "", noopBuilder, NoFlag) })
}
