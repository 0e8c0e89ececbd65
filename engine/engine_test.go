package engine

import (
	stderrors "errors"
	"strings"
	"testing"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/errors"
)

func newTestTLS(t *testing.T) *libc.TLS {
	t.Helper()
	tls := NewTLS()
	t.Cleanup(tls.Close)
	return tls
}

func openTestConn(t *testing.T, tls *libc.TLS) uintptr {
	t.Helper()

	out, err := Malloc(tls, int(unsafe.Sizeof(uintptr(0))))
	if err != nil {
		t.Fatalf("alloc out param: %v", err)
	}
	defer FreeCString(tls, out)

	name, err := CString(":memory:")
	if err != nil {
		t.Fatalf("alloc filename: %v", err)
	}
	defer FreeCString(tls, name)

	rc := lib.Xsqlite3_open_v2(tls, name, out,
		lib.SQLITE_OPEN_READWRITE|lib.SQLITE_OPEN_CREATE, 0)
	db := *(*uintptr)(unsafe.Pointer(out))
	if rc != lib.SQLITE_OK {
		t.Fatalf("open :memory:: rc=%d", rc)
	}

	t.Cleanup(func() {
		lib.Xsqlite3_close(tls, db)
	})
	return db
}

func TestThreadsafe(t *testing.T) {
	tls := newTestTLS(t)
	if !Threadsafe(tls) {
		t.Fatal("engine library compiled without mutex support")
	}
}

func TestInitializeIdempotent(t *testing.T) {
	tls := newTestTLS(t)
	if err := Initialize(tls); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := Initialize(tls); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestVersion(t *testing.T) {
	tls := newTestTLS(t)
	v := Version(tls)
	if !strings.HasPrefix(v, "3.") {
		t.Errorf("Version() = %q, want 3.x", v)
	}
	if n := VersionNumber(tls); n < 3000000 {
		t.Errorf("VersionNumber() = %d, want >= 3000000", n)
	}
}

func TestCStringRoundtrip(t *testing.T) {
	tls := newTestTLS(t)

	p, err := CString("hello, engine")
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	defer FreeCString(tls, p)

	if got := GoString(p); got != "hello, engine" {
		t.Errorf("GoString = %q", got)
	}
	if got := GoStringN(p, 5); got != "hello" {
		t.Errorf("GoStringN = %q", got)
	}
}

func TestGoStringZeroPointer(t *testing.T) {
	if got := GoString(0); got != "" {
		t.Errorf("GoString(0) = %q, want empty", got)
	}
	if got := GoStringN(0, 10); got != "" {
		t.Errorf("GoStringN(0, 10) = %q, want empty", got)
	}
	if got := GoBytes(0, 10); got != nil {
		t.Errorf("GoBytes(0, 10) = %v, want nil", got)
	}
}

func TestCopyToC(t *testing.T) {
	tls := newTestTLS(t)

	src := []byte{0x01, 0x00, 0xff, 0x7f}
	p, err := CopyToC(tls, src)
	if err != nil {
		t.Fatalf("CopyToC: %v", err)
	}
	defer FreeCString(tls, p)

	got := GoBytes(p, len(src))
	if string(got) != string(src) {
		t.Errorf("roundtrip = %v, want %v", got, src)
	}

	// Mutating the copy must not touch C memory.
	got[0] = 0xee
	again := GoBytes(p, len(src))
	if again[0] != 0x01 {
		t.Error("GoBytes should return an independent copy")
	}
}

func TestIsSuccess(t *testing.T) {
	for _, rc := range []int32{lib.SQLITE_OK, lib.SQLITE_ROW, lib.SQLITE_DONE} {
		if !IsSuccess(rc) {
			t.Errorf("IsSuccess(%d) = false", rc)
		}
	}
	for _, rc := range []int32{lib.SQLITE_ERROR, lib.SQLITE_MISUSE, lib.SQLITE_NOMEM} {
		if IsSuccess(rc) {
			t.Errorf("IsSuccess(%d) = true", rc)
		}
	}
}

func TestRCError(t *testing.T) {
	tls := newTestTLS(t)

	if err := RCError(tls, lib.SQLITE_OK, errors.PhaseOpen); err != nil {
		t.Errorf("RCError(OK) = %v, want nil", err)
	}

	err := RCError(tls, lib.SQLITE_NOMEM, errors.PhaseOpen)
	if err == nil {
		t.Fatal("RCError(NOMEM) = nil")
	}
	if got := errors.Code(err); got != lib.SQLITE_NOMEM {
		t.Errorf("Code = %d, want %d", got, lib.SQLITE_NOMEM)
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseOpen, Kind: errors.KindEngine}) {
		t.Errorf("wrong classification: %v", err)
	}
}

func TestConnError(t *testing.T) {
	tls := newTestTLS(t)
	db := openTestConn(t, tls)

	if err := ConnError(tls, db, errors.PhaseDispatch); err != nil {
		t.Errorf("fresh connection reports error: %v", err)
	}

	sql, err := CString("select * from no_such_table")
	if err != nil {
		t.Fatalf("alloc sql: %v", err)
	}
	defer FreeCString(tls, sql)

	if rc := lib.Xsqlite3_exec(tls, db, sql, 0, 0, 0); rc == lib.SQLITE_OK {
		t.Fatal("exec of bad SQL unexpectedly succeeded")
	}

	connErr := ConnError(tls, db, errors.PhaseDispatch)
	if connErr == nil {
		t.Fatal("ConnError = nil after failed exec")
	}
	if !strings.Contains(connErr.Error(), "no_such_table") {
		t.Errorf("ConnError message %q should name the missing table", connErr)
	}
}

func TestConnErrorNilHandle(t *testing.T) {
	tls := newTestTLS(t)

	err := ConnError(tls, 0, errors.PhaseDispatch)
	if errors.Code(err) != errors.CodeMisuse {
		t.Errorf("nil handle should report misuse, got %v", err)
	}
}

func TestCheckRC(t *testing.T) {
	tls := newTestTLS(t)
	db := openTestConn(t, tls)

	if err := CheckRC(tls, db, lib.SQLITE_ROW, errors.PhaseDispatch); err != nil {
		t.Errorf("CheckRC(ROW) = %v, want nil", err)
	}
	if err := CheckRC(tls, 0, lib.SQLITE_ERROR, errors.PhaseDispatch); err == nil {
		t.Error("CheckRC(ERROR) with no conn = nil")
	}
}
