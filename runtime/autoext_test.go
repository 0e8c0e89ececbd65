package runtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type schemaExtension struct {
	opens   int
	sawOpen bool
	err     error
}

func (x *schemaExtension) OnOpen(db *DB) error {
	x.opens++
	if x.err != nil {
		return x.err
	}
	x.sawOpen = db.IsOpen()
	return db.Exec("CREATE TABLE IF NOT EXISTS ext_marker (x)")
}

type countingExtension struct {
	opens int
}

func (x *countingExtension) OnOpen(db *DB) error {
	x.opens++
	return nil
}

type orderedExtension struct {
	tag  string
	log  *[]string
	seen *DB
}

func (x *orderedExtension) OnOpen(db *DB) error {
	*x.log = append(*x.log, x.tag)
	x.seen = db
	return nil
}

func TestAutoExtensionSeesUsableConnection(t *testing.T) {
	rt := newTestRuntime(t)

	ext := &schemaExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	db := openMemDB(t, rt)
	require.Equal(t, 1, ext.opens)
	require.True(t, ext.sawOpen, "the wrapper handed to the extension is already bound")
	require.Equal(t, int64(0), queryInt(t, db, "SELECT count(*) FROM ext_marker"),
		"schema installed during open is visible afterwards")
}

func TestAutoExtensionRunsPerOpen(t *testing.T) {
	rt := newTestRuntime(t)

	ext := &countingExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	db1 := openMemDB(t, rt)
	db2 := openMemDB(t, rt)
	require.NoError(t, db1.Close())
	require.NoError(t, db2.Close())
	require.Equal(t, 2, ext.opens)
}

func TestAutoExtensionInvocationOrder(t *testing.T) {
	rt := newTestRuntime(t)

	var log []string
	first := &orderedExtension{tag: "first", log: &log}
	second := &orderedExtension{tag: "second", log: &log}
	require.NoError(t, rt.RegisterAutoExtension(first))
	require.NoError(t, rt.RegisterAutoExtension(second))
	t.Cleanup(rt.ResetAutoExtensions)

	db := openMemDB(t, rt)
	require.Equal(t, []string{"first", "second"}, log)
	require.Same(t, db, first.seen, "extensions get the wrapper the opener will receive")
	require.Same(t, db, second.seen)
	require.NoError(t, db.Close())
}

func TestAutoExtensionDuplicateRegistrationIsNoOp(t *testing.T) {
	rt := newTestRuntime(t)

	ext := &countingExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	db := openMemDB(t, rt)
	require.NoError(t, db.Close())
	require.Equal(t, 1, ext.opens)
}

func TestAutoExtensionNilRejected(t *testing.T) {
	rt := newTestRuntime(t)
	require.Error(t, rt.RegisterAutoExtension(nil))
}

func TestCancelAutoExtension(t *testing.T) {
	rt := newTestRuntime(t)

	keep := &countingExtension{}
	drop := &countingExtension{}
	require.NoError(t, rt.RegisterAutoExtension(keep))
	require.NoError(t, rt.RegisterAutoExtension(drop))
	t.Cleanup(rt.ResetAutoExtensions)

	require.True(t, rt.CancelAutoExtension(drop))
	require.False(t, rt.CancelAutoExtension(drop), "second cancel finds nothing")
	require.False(t, rt.CancelAutoExtension(&countingExtension{}))

	db := openMemDB(t, rt)
	require.NoError(t, db.Close())
	require.Equal(t, 1, keep.opens)
	require.Equal(t, 0, drop.opens)
}

func TestAutoExtensionErrorAbortsOpen(t *testing.T) {
	rt := newTestRuntime(t)

	ext := &schemaExtension{err: fmt.Errorf("refusing this database")}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	_, err := rt.Open(":memory:")
	require.Error(t, err)
	require.Contains(t, err.Error(), "auto-extension threw")
	require.Contains(t, err.Error(), "refusing this database")

	m := rt.Metrics()
	require.Equal(t, 0, m.OpenConnections, "failed open leaves nothing behind")
}

func TestResetAutoExtensionsClearsList(t *testing.T) {
	rt := newTestRuntime(t)

	ext := &countingExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	rt.ResetAutoExtensions()

	db := openMemDB(t, rt)
	require.NoError(t, db.Close())
	require.Equal(t, 0, ext.opens)

	// The list accepts registrations again afterwards.
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)
	db = openMemDB(t, rt)
	require.NoError(t, db.Close())
	require.Equal(t, 1, ext.opens)
}
