package dbqflag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countResult(n int64) *ResultSet {
	return &ResultSet{Columns: []string{"cnt"}, Rows: [][]interface{}{{n}}}
}

func newTestExecutor(store DbqStore, audit AuditLog) *Executor {
	e := NewExecutor(NewResultsStore(store, "", nil), "jdoe", audit, nil)
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestExecutor_RunInformational(t *testing.T) {
	store := &recordingStore{responses: []*ResultSet{countResult(4), countResult(0)}}
	var audit bytes.Buffer

	check := &CheckDefinition{ID: "qa_a102_Unverified_Events", DescriptionTemplate: "Unverified {{year}}", Build: noopBuilder}
	outcome, err := newTestExecutor(store, NewWriterAuditLog(&audit)).Run(context.Background(), check, "", NewYearlyContext(2023, store, nil))
	require.NoError(t, err)

	assert.Equal(t, int64(4), outcome.RowCount)
	assert.Equal(t, UpsertInserted, outcome.Result)
	assert.Equal(t, "qa_a102_Unverified_Events", outcome.View)
	assert.Zero(t, outcome.Flagged)

	assert.Equal(t, []string{
		"DROP qa_a102_Unverified_Events",
		"VIEW qa_a102_Unverified_Events AS SELECT 1",
		`SELECT COUNT(*) AS "cnt" FROM "qa_a102_Unverified_Events"`,
		"ANNOTATE qa_a102_Unverified_Events Unverified 2023",
	}, store.statements[:4])
	assert.True(t, strings.HasPrefix(store.statements[len(store.statements)-1], `INSERT INTO "tbl_QA_Results"`))
	assert.Contains(t, audit.String(), "Success processing check - qa_a102_Unverified_Events - 4 records")
}

func TestExecutor_RunUpdatesExistingResult(t *testing.T) {
	store := &recordingStore{responses: []*ResultSet{countResult(2), countResult(1)}}
	check := &CheckDefinition{ID: "qa_h102_Missing_Observers", Build: noopBuilder}

	outcome, err := newTestExecutor(store, nil).Run(context.Background(), check, "override", NewYearlyContext(2023, store, nil))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, outcome.Result)
	assert.Contains(t, store.statements, "ANNOTATE qa_h102_Missing_Observers override")
	assert.True(t, strings.HasPrefix(store.statements[len(store.statements)-1], `UPDATE "tbl_QA_Results"`))
}

func TestExecutor_DescriptionTooLong(t *testing.T) {
	store := &recordingStore{}
	check := &CheckDefinition{ID: "qa_long", Build: noopBuilder}

	_, err := newTestExecutor(store, nil).Run(context.Background(), check, strings.Repeat("x", MaxDescriptionLength+1), NewYearlyContext(2023, store, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDescriptionTooLong))
	assert.True(t, IsFatal(err))
	assert.Empty(t, store.statements, "nothing may be materialized")
}

func TestExecutor_RunRendersDescriptionOverride(t *testing.T) {
	store := &recordingStore{responses: []*ResultSet{countResult(1), countResult(0)}}
	check := &CheckDefinition{ID: "qa_w1_Negative", DescriptionTemplate: "Negative widgets of {{year}}", Build: noopBuilder}

	_, err := newTestExecutor(store, nil).Run(context.Background(), check, "Widgets below zero in {{year}}", NewYearlyContext(2024, store, nil))
	require.NoError(t, err)
	assert.Contains(t, store.statements, "ANNOTATE qa_w1_Negative Widgets below zero in 2024")
	for _, stmt := range store.statements {
		assert.NotContains(t, stmt, "{{year}}")
	}
}

func TestExecutor_DescriptionLimitCountsCharacters(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantErr     bool
	}{
		{name: "multibyte at limit", description: strings.Repeat("°", MaxDescriptionLength)},
		{name: "multibyte over limit", description: strings.Repeat("°", MaxDescriptionLength+1), wantErr: true},
		{name: "limit applies to rendered year", description: strings.Repeat("é", MaxDescriptionLength-4) + "{{year}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{responses: []*ResultSet{countResult(0), countResult(0)}}
			check := &CheckDefinition{ID: "qa_desc", Build: noopBuilder}

			_, err := newTestExecutor(store, nil).Run(context.Background(), check, tt.description, NewYearlyContext(2024, store, nil))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrDescriptionTooLong))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExecutor_StepFailures(t *testing.T) {
	tests := []struct {
		name   string
		build  PredicateBuilder
		failOn string
		wantOp string
	}{
		{
			name: "build",
			build: func(context.Context, *YearlyContext) (string, error) {
				return "", fmt.Errorf("lookup failed")
			},
			wantOp: OpBuild,
		},
		{name: "count", build: noopBuilder, failOn: "COUNT(*)", wantOp: OpCount},
		{name: "upsert", build: noopBuilder, failOn: "INSERT INTO", wantOp: OpUpsert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{failOn: tt.failOn, responses: []*ResultSet{countResult(1), countResult(0)}}
			check := &CheckDefinition{ID: "qa_x", Build: tt.build}

			_, err := newTestExecutor(store, nil).Run(context.Background(), check, "", NewYearlyContext(2023, store, nil))
			var checkErr *CheckError
			require.True(t, errors.As(err, &checkErr))
			assert.Equal(t, tt.wantOp, checkErr.Op)
			assert.Equal(t, "qa_x", checkErr.CheckID)
			assert.False(t, IsFatal(err))
		})
	}
}
