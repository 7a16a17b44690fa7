package dbqflag_test

import (
	"context"
	"testing"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCheckSource_EnabledChecks(t *testing.T) {
	store := newSqliteStore(t)
	mustExec(t, store,
		`CREATE TABLE tbl_QCQueries (Query_Name TEXT, Query_Description TEXT, Protocol TEXT, Is_Enabled INTEGER, Query_Order INTEGER)`,
		`INSERT INTO tbl_QCQueries VALUES ('qa_h102_Missing_Observers', NULL, 'SNPLPORE', 1, 20)`,
		`INSERT INTO tbl_QCQueries VALUES ('qa_a102_Unverified_Events', 'Unverified events', 'SNPLPORE', 1, 10)`,
		`INSERT INTO tbl_QCQueries VALUES ('qa_f112_Incomplete_Weather', NULL, 'SNPLPORE', 0, 15)`,
		`INSERT INTO tbl_QCQueries VALUES ('qa_other', NULL, 'OTHER', 1, 1)`,
	)

	checks, err := dbqflag.NewTableCheckSource(store, "").EnabledChecks(context.Background(), "SNPLPORE")
	require.NoError(t, err)
	assert.Equal(t, []dbqflag.CheckConfig{
		{ID: "qa_a102_Unverified_Events", Description: "Unverified events"},
		{ID: "qa_h102_Missing_Observers"},
	}, checks)
}

func TestTableCheckSource_MissingTable(t *testing.T) {
	_, err := dbqflag.NewTableCheckSource(newSqliteStore(t), "").EnabledChecks(context.Background(), "SNPLPORE")
	assert.Error(t, err)
}
