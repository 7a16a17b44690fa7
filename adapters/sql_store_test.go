package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/DataBridgeTech/dbqflag/cnn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSqliteStore(t *testing.T, path string) *SqliteStore {
	t.Helper()
	db, err := cnn.NewSqliteConnection(dbqflag.ConnectionConfig{Path: path})
	require.NoError(t, err)
	store := NewSqliteStore(db, nil)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSqlStore_ViewLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, "")

	_, err := store.Execute(ctx, `CREATE TABLE tbl_Events (Event_ID INTEGER, QCFlag TEXT)`)
	require.NoError(t, err)
	affected, err := store.Execute(ctx, `INSERT INTO tbl_Events VALUES (1, NULL), (2, 'DFO')`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	require.NoError(t, store.DropIfExists(ctx, "qa_view"), "dropping a missing object is not an error")
	require.NoError(t, store.MaterializeView(ctx, "qa_view", `SELECT * FROM tbl_Events WHERE QCFlag IS NULL`))
	require.Error(t, store.MaterializeView(ctx, "qa_view", `SELECT 1`), "views are not replaced implicitly")

	require.NoError(t, store.DropIfExists(ctx, "qa_view"))
	require.NoError(t, store.MaterializeView(ctx, "qa_view", `SELECT * FROM tbl_Events WHERE QCFlag = 'DFO'`))

	res, err := store.Query(ctx, `SELECT * FROM qa_view`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Event_ID", "QCFlag"}, res.Columns)
	assert.Equal(t, [][]interface{}{{int64(2), "DFO"}}, res.Rows)

	require.NoError(t, store.AnnotateView(ctx, "qa_view", "first"))
	require.NoError(t, store.AnnotateView(ctx, "qa_view", "second"))
	desc, err := store.Query(ctx, `SELECT Description FROM _dbq_view_descriptions WHERE View_Name = ?`, "qa_view")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"second"}}, desc.Rows)
}

func TestSqlStore_CreateTableFromRows(t *testing.T) {
	ctx := context.Background()
	store := newTestSqliteStore(t, "")

	rows := &dbqflag.ResultSet{
		Columns: []string{"Event_ID", "Note"},
		Rows:    [][]interface{}{{int64(3), nil}, {int64(4), "x"}},
	}
	require.NoError(t, store.CreateTableFromRows(ctx, "tmp_flag_qa", rows))

	res, err := store.Query(ctx, `SELECT Event_ID, Note FROM tmp_flag_qa ORDER BY Event_ID`)
	require.NoError(t, err)
	assert.Equal(t, rows.Rows, res.Rows)

	kind, err := store.Query(ctx, SqliteDialect{}.ObjectKindQuery(), "tmp_flag_qa")
	require.NoError(t, err)
	assert.Equal(t, "table", kind.Rows[0][0])

	require.NoError(t, store.DropIfExists(ctx, "tmp_flag_qa"))
	kind, err = store.Query(ctx, SqliteDialect{}.ObjectKindQuery(), "tmp_flag_qa")
	require.NoError(t, err)
	assert.Equal(t, 0, kind.Len())
}

func TestSqlStore_ErrorsAreConnectivityErrors(t *testing.T) {
	_, err := newTestSqliteStore(t, "").Query(context.Background(), `SELECT * FROM missing`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbqflag.ErrConnectivity))
}

func TestSqliteStore_EnsureExclusive(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/snpl.db"
	store := newTestSqliteStore(t, path)
	require.NoError(t, store.EnsureExclusive(ctx))

	other := newTestSqliteStore(t, path)
	conn, err := other.DB().Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	defer func() { _, _ = conn.ExecContext(ctx, "ROLLBACK") }()

	err = store.EnsureExclusive(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbqflag.ErrStoreBusy))
	assert.True(t, dbqflag.IsFatal(err))
}

func TestSqlStore_Ping(t *testing.T) {
	info, err := newTestSqliteStore(t, "").Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", info)
}
