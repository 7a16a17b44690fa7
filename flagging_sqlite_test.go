package dbqflag_test

import (
	"context"
	"testing"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagEngine_TokenMatchRespectsCase(t *testing.T) {
	store := newSqliteStore(t)
	mustExec(t, store,
		`CREATE TABLE widgets (id INTEGER PRIMARY KEY, QCFlag TEXT)`,
		`INSERT INTO widgets VALUES (1, 'neg'), (2, 'DFO; X'), (3, 'DFO;NEG'), (4, NULL)`,
		`CREATE VIEW qa_w1_Negative AS SELECT id, QCFlag FROM widgets`,
	)

	policy := dbqflag.ApplyFlag("NEG", "widgets", "QCFlag", "QCFlag", "id")
	engine := dbqflag.NewFlagEngine(store, nil)

	outcome, err := engine.ApplyFlag(context.Background(), "qa_w1_Negative", policy)
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Flagged)
	assert.Equal(t, 1, outcome.AlreadyFlagged)
	assert.Equal(t, map[int64]string{1: "neg;NEG", 2: "DFO; X;NEG", 3: "DFO;NEG", 4: "NEG"}, widgetFlags(t, store))

	outcome, err = engine.ApplyFlag(context.Background(), "qa_w1_Negative", policy)
	require.NoError(t, err)
	assert.Zero(t, outcome.Flagged)
	assert.Equal(t, 4, outcome.AlreadyFlagged)
	assert.Equal(t, map[int64]string{1: "neg;NEG", 2: "DFO; X;NEG", 3: "DFO;NEG", 4: "NEG"}, widgetFlags(t, store))
}
