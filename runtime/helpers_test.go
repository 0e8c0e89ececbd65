package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown())
	})
	return rt
}

func openMemDB(t *testing.T, rt *Runtime) *DB {
	t.Helper()
	db, err := rt.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if db.IsOpen() {
			require.NoError(t, db.Close())
		}
	})
	return db
}

func openFileDB(t *testing.T, rt *Runtime, path string) *DB {
	t.Helper()
	db, err := rt.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if db.IsOpen() {
			require.NoError(t, db.Close())
		}
	})
	return db
}

func mustExec(t *testing.T, db *DB, sql string) {
	t.Helper()
	require.NoError(t, db.Exec(sql))
}

func queryInt(t *testing.T, db *DB, sql string) int64 {
	t.Helper()
	st, _, err := db.Prepare(sql)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Finalize()) }()

	row, err := st.Step()
	require.NoError(t, err)
	require.True(t, row, "query returned no rows: %s", sql)
	return st.ColumnInt64(0)
}

func queryText(t *testing.T, db *DB, sql string) string {
	t.Helper()
	st, _, err := db.Prepare(sql)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Finalize()) }()

	row, err := st.Step()
	require.NoError(t, err)
	require.True(t, row, "query returned no rows: %s", sql)
	return st.ColumnText(0)
}

func queryTextColumn(t *testing.T, db *DB, sql string) []string {
	t.Helper()
	st, _, err := db.Prepare(sql)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Finalize()) }()

	var out []string
	for {
		row, err := st.Step()
		require.NoError(t, err)
		if !row {
			return out
		}
		out = append(out, st.ColumnText(0))
	}
}
