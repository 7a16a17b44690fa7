package dbqflag_test

import (
	"context"
	"testing"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/DataBridgeTech/dbqflag/adapters"
	"github.com/DataBridgeTech/dbqflag/cnn"
	"github.com/stretchr/testify/require"
)

func newSqliteStore(t *testing.T) *adapters.SqliteStore {
	t.Helper()
	db, err := cnn.NewSqliteConnection(dbqflag.ConnectionConfig{})
	require.NoError(t, err)

	store := adapters.NewSqliteStore(db, nil)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustExec(t *testing.T, store dbqflag.DbqStore, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := store.Execute(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

// widgetProtocol is a small catalog over a single "widgets" table.
type widgetProtocol struct{}

func (widgetProtocol) Name() string { return "WIDGETS" }

func (widgetProtocol) Register(r *dbqflag.Registry) error {
	checks := []struct {
		id    string
		where dbqflag.Expr
		flag  dbqflag.FlagPolicy
	}{
		{"qa_w1_Negative", dbqflag.Lt(dbqflag.Col("", "qty"), dbqflag.Int(0)), dbqflag.ApplyFlag("NEG", "widgets", "QCFlag", "QCFlag", "id")},
		{"qa_w2_Unnamed", dbqflag.IsNull(dbqflag.Col("", "name")), dbqflag.NoFlag},
		{"qa_w3_Broken", nil, dbqflag.NoFlag},
	}
	for _, c := range checks {
		where := c.where
		build := func(_ context.Context, yc *dbqflag.YearlyContext) (string, error) {
			return dbqflag.Select().From(yc.ControlView).Where(where).SQL(yc.Dialect()), nil
		}
		if where == nil {
			build = func(context.Context, *dbqflag.YearlyContext) (string, error) {
				return "SELECT * FROM widgets WHERE", nil
			}
		}
		if err := r.Register(c.id, "Widget check "+c.id+" for {{year}}", build, c.flag); err != nil {
			return err
		}
	}
	return nil
}

func (widgetProtocol) PrepareYear(ctx context.Context, yc *dbqflag.YearlyContext) error {
	query := dbqflag.Select().From("widgets").
		Where(dbqflag.Eq(dbqflag.Col("", "year"), dbqflag.Int(int64(yc.Year)))).
		SQL(yc.Dialect())
	if err := yc.PushView(ctx, "widgets_control", query); err != nil {
		return err
	}
	yc.ControlView = "widgets_control"
	return nil
}

func seedWidgets(t *testing.T, store dbqflag.DbqStore) {
	t.Helper()
	mustExec(t, store,
		`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT, qty INTEGER, year INTEGER, QCFlag TEXT)`,
		`INSERT INTO widgets VALUES (1, 'bolt', -2, 2024, NULL)`,
		`INSERT INTO widgets VALUES (2, NULL, 5, 2024, 'DFO')`,
		`INSERT INTO widgets VALUES (3, 'nut', -1, 2024, 'DFO')`,
		`INSERT INTO widgets VALUES (4, 'gear', -9, 2023, NULL)`,
	)
}

func widgetFlags(t *testing.T, store dbqflag.DbqStore) map[int64]string {
	t.Helper()
	res, err := store.Query(context.Background(), `SELECT id, COALESCE(QCFlag, '') AS f FROM widgets ORDER BY id`)
	require.NoError(t, err)

	flags := make(map[int64]string, res.Len())
	for i := 0; i < res.Len(); i++ {
		flags[res.Value(i, "id").(int64)] = res.Value(i, "f").(string)
	}
	return flags
}
