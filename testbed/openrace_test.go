package testbed

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	sqlitebridge "github.com/wippyai/sqlite-bridge"
	"github.com/wippyai/sqlite-bridge/runtime"
)

// tagFunc reports a fixed tag string.
type tagFunc struct {
	tag string
}

func (f tagFunc) Apply(ctx *runtime.Context, args []*runtime.Value) error {
	return ctx.ResultText(f.tag)
}

// templateExtension turns every new connection into a ready-to-use
// session before the opener gets the handle back.
type templateExtension struct {
	mu    sync.Mutex
	opens int
}

func (e *templateExtension) OnOpen(db *runtime.DB) error {
	if !db.IsOpen() {
		return fmt.Errorf("extension ran before the handle was bound")
	}
	if err := db.Exec("CREATE TABLE IF NOT EXISTS session_info (k TEXT, v TEXT)"); err != nil {
		return err
	}
	if err := db.CreateFunction("session_tag", 0, sqlitebridge.UTF8, tagFunc{tag: "ready"}); err != nil {
		return err
	}
	e.mu.Lock()
	e.opens++
	e.mu.Unlock()
	return nil
}

func TestExtensionPreparesConnectionBeforeOpenReturns(t *testing.T) {
	rt := newRuntime(t)
	ext := &templateExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	db, err := rt.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	// The opener never registered anything itself; the session was
	// stocked during the open call.
	require.Equal(t, "ready", queryTexts(t, db, "SELECT session_tag()")[0])
	exec(t, db, "INSERT INTO session_info VALUES ('state', 'fresh')")
	require.Equal(t, 1, ext.opens)
}

func TestConcurrentOpensKeepSessionsApart(t *testing.T) {
	rt := newRuntime(t)
	ext := &templateExtension{}
	require.NoError(t, rt.RegisterAutoExtension(ext))
	t.Cleanup(rt.ResetAutoExtensions)

	const openers = 6
	var wg sync.WaitGroup
	errs := make(chan error, openers)

	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			defer rt.ReleaseThread()

			db, err := rt.Open(":memory:")
			if err != nil {
				errs <- err
				return
			}
			defer db.Close()

			if err := db.Exec(fmt.Sprintf(
				"INSERT INTO session_info VALUES ('owner', '%d')", n)); err != nil {
				errs <- err
				return
			}

			st, _, err := db.Prepare("SELECT v FROM session_info WHERE k = 'owner'")
			if err != nil {
				errs <- err
				return
			}
			defer st.Finalize()

			var owners []string
			for {
				row, err := st.Step()
				if err != nil {
					errs <- err
					return
				}
				if !row {
					break
				}
				owners = append(owners, st.ColumnText(0))
			}
			if len(owners) != 1 || owners[0] != fmt.Sprint(n) {
				errs <- fmt.Errorf("opener %d sees owners %v, wants only itself", n, owners)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, openers, ext.opens)
	require.Zero(t, rt.Metrics().OpenConnections)
}
