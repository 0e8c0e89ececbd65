package runtime

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sqlitebridge "github.com/wippyai/sqlite-bridge"
)

type upcaseFunc struct {
	destroyed bool
}

func (f *upcaseFunc) Apply(ctx *Context, args []*Value) error {
	return ctx.ResultText(strings.ToUpper(args[0].Text()))
}

func (f *upcaseFunc) Destroy() {
	f.destroyed = true
}

type joinFunc struct{}

func (f *joinFunc) Apply(ctx *Context, args []*Value) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Text()
	}
	return ctx.ResultText(strings.Join(parts, ","))
}

type failingFunc struct{}

func (f *failingFunc) Apply(ctx *Context, args []*Value) error {
	return fmt.Errorf("kaput")
}

type sumAggregate struct {
	groups map[uintptr]int64
}

func newSumAggregate() *sumAggregate {
	return &sumAggregate{groups: map[uintptr]int64{}}
}

func (f *sumAggregate) Step(ctx *Context, args []*Value) error {
	f.groups[ctx.AggregateContext()] += args[0].Int64()
	return nil
}

func (f *sumAggregate) Final(ctx *Context) error {
	key := ctx.AggregateContext()
	ctx.ResultInt64(f.groups[key])
	delete(f.groups, key)
	return nil
}

type windowSum struct {
	sumAggregate
}

func newWindowSum() *windowSum {
	return &windowSum{sumAggregate{groups: map[uintptr]int64{}}}
}

func (f *windowSum) Value(ctx *Context) error {
	ctx.ResultInt64(f.groups[ctx.AggregateContext()])
	return nil
}

func (f *windowSum) Inverse(ctx *Context, args []*Value) error {
	f.groups[ctx.AggregateContext()] -= args[0].Int64()
	return nil
}

type notAFunction struct{}

func TestScalarFunction(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	require.NoError(t, db.CreateFunction("upcase", 1, sqlitebridge.UTF8, &upcaseFunc{}))
	require.Equal(t, "HELLO", queryText(t, db, "SELECT upcase('hello')"))

	m := rt.Metrics()
	require.GreaterOrEqual(t, m.FuncCalls, uint64(1))
}

func TestScalarFunctionVariadic(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	require.NoError(t, db.CreateFunction("join_all", -1, sqlitebridge.UTF8, &joinFunc{}))
	require.Equal(t, "a,b,c", queryText(t, db, "SELECT join_all('a', 'b', 'c')"))
	require.Equal(t, "", queryText(t, db, "SELECT join_all()"))
}

func TestScalarFunctionDeterministic(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	enc := sqlitebridge.UTF8 | sqlitebridge.Deterministic
	require.NoError(t, db.CreateFunction("upcase", 1, enc, &upcaseFunc{}))
	mustExec(t, db, "CREATE TABLE t (x TEXT)")
	mustExec(t, db, "CREATE INDEX t_up ON t (upcase(x))")
	mustExec(t, db, "INSERT INTO t VALUES ('hi')")
	require.Equal(t, int64(1), queryInt(t, db, "SELECT count(*) FROM t WHERE upcase(x) = 'HI'"))
}

func TestScalarFunctionErrorBecomesStatementError(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	require.NoError(t, db.CreateFunction("boom", 1, sqlitebridge.UTF8, &failingFunc{}))
	err := db.Exec("SELECT boom(1)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Client-defined SQL function boom.Apply() threw")
	require.Contains(t, err.Error(), "kaput")
	require.NotEqual(t, int32(0), db.ErrCode(), "the failure lands on the connection")
}

func TestAggregateFunction(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)
	mustExec(t, db, "CREATE TABLE t (g TEXT, x INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES ('a', 1), ('a', 2), ('b', 5)")

	agg := newSumAggregate()
	require.NoError(t, db.CreateFunction("sum0", 1, sqlitebridge.UTF8, agg))

	require.Equal(t, []string{"3", "5"},
		queryTextColumn(t, db, "SELECT sum0(x) FROM t GROUP BY g ORDER BY g"))

	// An aggregate over no rows still finalizes, with no state cell.
	require.Equal(t, int64(0), queryInt(t, db, "SELECT sum0(x) FROM t WHERE g = 'z'"))
	require.Empty(t, agg.groups, "finalize retires every group's state")

	m := rt.Metrics()
	require.Equal(t, uint64(3), m.StepCalls)
	require.Equal(t, uint64(3), m.FinalCalls)
}

func TestWindowFunction(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)
	mustExec(t, db, "CREATE TABLE t (id INTEGER PRIMARY KEY, x INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES (1, 1), (2, 2), (3, 3)")

	require.NoError(t, db.CreateFunction("win_sum", 1, sqlitebridge.UTF8, newWindowSum()))

	got := queryTextColumn(t, db, `
		SELECT win_sum(x) OVER (ORDER BY id ROWS BETWEEN 1 PRECEDING AND CURRENT ROW)
		FROM t ORDER BY id`)
	require.Equal(t, []string{"1", "3", "5"}, got)

	m := rt.Metrics()
	require.Greater(t, m.ValueCalls, uint64(0))
	require.Greater(t, m.InverseCalls, uint64(0))
}

func TestFunctionClassificationRejectsUnknownShape(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	err := db.CreateFunction("nope", 0, sqlitebridge.UTF8, &notAFunction{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "implements no SQL function interface")
}

func TestFunctionEmptyNameRejected(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	err := db.CreateFunction("", 0, sqlitebridge.UTF8, &upcaseFunc{})
	require.Error(t, err)
}

func TestFunctionInvalidEncodingRejected(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	err := db.CreateFunction("enc", 1, 7, &upcaseFunc{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid function encoding option")

	// Flag bits on top of a valid base encoding are fine.
	err = db.CreateFunction("enc", 1, sqlitebridge.UTF8|sqlitebridge.Innocuous, &upcaseFunc{})
	require.NoError(t, err)
}

func TestRemoveFunction(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	f := &upcaseFunc{}
	require.NoError(t, db.CreateFunction("upcase", 1, sqlitebridge.UTF8, f))
	require.Equal(t, "HI", queryText(t, db, "SELECT upcase('hi')"))

	require.NoError(t, db.RemoveFunction("upcase", 1))
	require.True(t, f.destroyed, "removal runs the registration's teardown")

	err := db.Exec("SELECT upcase('hi')")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no such function")
}

func TestFunctionReplacementTearsDownOld(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	old := &upcaseFunc{}
	require.NoError(t, db.CreateFunction("f", 1, sqlitebridge.UTF8, old))
	require.NoError(t, db.CreateFunction("f", 1, sqlitebridge.UTF8, &joinFunc{}))
	require.True(t, old.destroyed)
	require.Equal(t, "x", queryText(t, db, "SELECT f('x')"))
}

func TestFunctionTeardownOnClose(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	f := &upcaseFunc{}
	require.NoError(t, db.CreateFunction("upcase", 1, sqlitebridge.UTF8, f))

	before := rt.Metrics().Destroys
	require.NoError(t, db.Close())
	require.True(t, f.destroyed)
	require.Equal(t, before+1, rt.Metrics().Destroys)
}

func TestFunctionDescriptorsMemoized(t *testing.T) {
	rt := newTestRuntime(t)
	db := openMemDB(t, rt)

	before := rt.Metrics()
	require.NoError(t, db.CreateFunction("up1", 1, sqlitebridge.UTF8, &upcaseFunc{}))
	require.NoError(t, db.CreateFunction("up2", 1, sqlitebridge.UTF8, &upcaseFunc{}))
	after := rt.Metrics()

	require.Equal(t, before.DescriptorMisses+1, after.DescriptorMisses,
		"first sighting of the concrete type classifies it")
	require.GreaterOrEqual(t, after.DescriptorHits, before.DescriptorHits+1)
}
