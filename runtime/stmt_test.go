package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepareReportsTail(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, tail, err := db.Prepare("SELECT 1; SELECT 2")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, " SELECT 2", tail)
	require.NoError(t, st.Finalize())
}

func TestPrepareCommentOnlyYieldsNoStatement(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, tail, err := db.Prepare("-- nothing to run")
	require.NoError(t, err)
	require.Nil(t, st)
	require.Empty(t, tail)
}

func TestPrepareSyntaxError(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	_, _, err := db.Prepare("SELGECT 1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "syntax error")
}

func TestBindAndColumnRoundtrip(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)
	mustExec(t, db, "CREATE TABLE t (i INTEGER, f REAL, s TEXT, b BLOB, n)")

	st, _, err := db.Prepare("INSERT INTO t VALUES (?, ?, ?, ?, ?)")
	require.NoError(t, err)
	require.Equal(t, int32(5), st.BindParameterCount())

	require.NoError(t, st.BindInt64(1, 42))
	require.NoError(t, st.BindDouble(2, 2.5))
	require.NoError(t, st.BindText(3, "héllo"))
	require.NoError(t, st.BindBlob(4, []byte{0x00, 0xff, 0x10}))
	require.NoError(t, st.BindNull(5))

	more, err := st.Step()
	require.NoError(t, err)
	require.False(t, more)
	require.NoError(t, st.Finalize())

	st, _, err = db.Prepare("SELECT i, f, s, b, n FROM t")
	require.NoError(t, err)
	defer st.Finalize()

	more, err = st.Step()
	require.NoError(t, err)
	require.True(t, more)

	require.Equal(t, int32(5), st.ColumnCount())
	require.Equal(t, "i", st.ColumnName(0))
	require.Equal(t, TypeInteger, st.ColumnType(0))
	require.Equal(t, int64(42), st.ColumnInt64(0))
	require.Equal(t, TypeFloat, st.ColumnType(1))
	require.Equal(t, 2.5, st.ColumnDouble(1))
	require.Equal(t, TypeText, st.ColumnType(2))
	require.Equal(t, "héllo", st.ColumnText(2))
	require.Equal(t, TypeBlob, st.ColumnType(3))
	require.Equal(t, []byte{0x00, 0xff, 0x10}, st.ColumnBlob(3))
	require.Equal(t, TypeNull, st.ColumnType(4))

	more, err = st.Step()
	require.NoError(t, err)
	require.False(t, more)
}

func TestBindEmptyBlobIsZeroLengthNotNull(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)
	mustExec(t, db, "CREATE TABLE t (b BLOB)")

	st, _, err := db.Prepare("INSERT INTO t VALUES (?)")
	require.NoError(t, err)
	require.NoError(t, st.BindBlob(1, nil))
	_, err = st.Step()
	require.NoError(t, err)
	require.NoError(t, st.Finalize())

	require.Equal(t, int64(0), queryInt(t, db, "SELECT count(*) FROM t WHERE b IS NULL"))
	require.Equal(t, int64(1), queryInt(t, db, "SELECT count(*) FROM t WHERE length(b) = 0"))
}

func TestNamedParameters(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, _, err := db.Prepare("SELECT :a + :b")
	require.NoError(t, err)
	defer st.Finalize()

	require.Equal(t, int32(1), st.BindParameterIndex(":a"))
	require.Equal(t, int32(2), st.BindParameterIndex(":b"))
	require.Equal(t, int32(0), st.BindParameterIndex(":missing"))

	require.NoError(t, st.BindInt64(st.BindParameterIndex(":a"), 40))
	require.NoError(t, st.BindInt64(st.BindParameterIndex(":b"), 2))

	more, err := st.Step()
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, int64(42), st.ColumnInt64(0))
}

func TestResetAndClearBindings(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, _, err := db.Prepare("SELECT ?")
	require.NoError(t, err)
	defer st.Finalize()

	require.NoError(t, st.BindInt64(1, 7))
	more, err := st.Step()
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, int64(7), st.ColumnInt64(0))

	require.NoError(t, st.Reset())
	more, err = st.Step()
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, int64(7), st.ColumnInt64(0), "bindings survive reset")

	require.NoError(t, st.Reset())
	require.NoError(t, st.ClearBindings())
	more, err = st.Step()
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, TypeNull, st.ColumnType(0), "cleared binding reads as null")
}

func TestStatementSQLViews(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, _, err := db.Prepare("SELECT ?")
	require.NoError(t, err)
	defer st.Finalize()

	require.NoError(t, st.BindText(1, "x"))
	require.Equal(t, "SELECT ?", st.SQL())
	require.Equal(t, "SELECT 'x'", st.ExpandedSQL())
}

func TestStatementActivityFlags(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)
	mustExec(t, db, "CREATE TABLE t (x)")

	sel, _, err := db.Prepare("SELECT x FROM t")
	require.NoError(t, err)
	defer sel.Finalize()
	require.True(t, sel.IsReadOnly())
	require.False(t, sel.IsBusy())

	ins, _, err := db.Prepare("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	defer ins.Finalize()
	require.False(t, ins.IsReadOnly())

	_, err = ins.Step()
	require.NoError(t, err)

	more, err := sel.Step()
	require.NoError(t, err)
	require.True(t, more)
	require.True(t, sel.IsBusy())
	require.NoError(t, sel.Reset())
	require.False(t, sel.IsBusy())
}

func TestFinalizedStatementRejectsUse(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	st, _, err := db.Prepare("SELECT 1")
	require.NoError(t, err)
	require.NoError(t, st.Finalize())

	_, err = st.Step()
	require.Error(t, err)
	require.Error(t, st.Finalize())
}
