package runtime

import (
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Open flags accepted by OpenV2
const (
	OpenReadOnly     int32 = lib.SQLITE_OPEN_READONLY
	OpenReadWrite    int32 = lib.SQLITE_OPEN_READWRITE
	OpenCreate       int32 = lib.SQLITE_OPEN_CREATE
	OpenURI          int32 = lib.SQLITE_OPEN_URI
	OpenMemory       int32 = lib.SQLITE_OPEN_MEMORY
	OpenNoMutex      int32 = lib.SQLITE_OPEN_NOMUTEX
	OpenFullMutex    int32 = lib.SQLITE_OPEN_FULLMUTEX
	OpenSharedCache  int32 = lib.SQLITE_OPEN_SHAREDCACHE
	OpenPrivateCache int32 = lib.SQLITE_OPEN_PRIVATECACHE
	OpenNoFollow     int32 = lib.SQLITE_OPEN_NOFOLLOW
)

// Open opens a database file with the default read-write-create flags
func (rt *Runtime) Open(filename string) (*DB, error) {
	return rt.OpenV2(filename, OpenReadWrite|OpenCreate, "")
}

// OpenV2 opens a database file. The returned wrapper is bound to an
// engine handle; registered auto extensions already ran against it.
//
// The record and wrapper exist before the engine call begins, parked on
// the goroutine's thread context row, so the auto-extension runner that
// fires inside the engine's open can find and bind them mid-call.
func (rt *Runtime) OpenV2(filename string, flags int32, vfs string) (*DB, error) {
	e := rt.env()
	tls := e.tls

	rec := rt.allocateRecord()
	prevPending := e.pendingOpen
	e.pendingOpen = rec
	defer func() { e.pendingOpen = prevPending }()

	fail := func(err error) (*DB, error) {
		rt.setAside(tls, rec)
		return nil, err
	}

	cname, err := engine.CString(filename)
	if err != nil {
		return fail(errors.Wrap(errors.PhaseOpen, errors.KindAllocation, err, "filename"))
	}
	defer engine.FreeCString(tls, cname)

	var cvfs uintptr
	if vfs != "" {
		cvfs, err = engine.CString(vfs)
		if err != nil {
			return fail(errors.Wrap(errors.PhaseOpen, errors.KindAllocation, err, "vfs name"))
		}
		defer engine.FreeCString(tls, cvfs)
	}

	out, err := engine.Malloc(tls, int(ptrSize))
	if err != nil {
		return fail(errors.Wrap(errors.PhaseOpen, errors.KindAllocation, err, "handle out-param"))
	}
	defer engine.Free(tls, out)
	*(*uintptr)(unsafe.Pointer(out)) = 0

	rc := lib.Xsqlite3_open_v2(tls, cname, out, flags, cvfs)
	handle := *(*uintptr)(unsafe.Pointer(out))

	if rc != lib.SQLITE_OK {
		var oerr error
		if handle != 0 {
			oerr = engine.CheckRC(tls, handle, rc, errors.PhaseOpen)
			lib.Xsqlite3_close(tls, handle)
		} else {
			oerr = engine.RCError(tls, rc, errors.PhaseOpen)
		}
		if rec.wrapper != nil {
			rec.wrapper.ptr = 0
		}
		return fail(oerr)
	}

	// The runner binds the handle when auto extensions are registered;
	// otherwise it is still unbound here.
	if rec.handle == 0 {
		rec.bind(handle)
	}
	return rec.wrapper, nil
}

// Close finalizes the connection. On engine refusal (for example with
// statements still unfinalized) the connection stays open and usable.
func (db *DB) Close() error {
	if db == nil || db.ptr == 0 || db.rec == nil {
		return errors.Misuse(errors.PhaseClose, "connection is not open")
	}

	rt := db.rt
	tls := rt.env().tls
	rec := db.rec

	if rc := lib.Xsqlite3_close(tls, db.ptr); rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseClose)
	}

	rt.setAside(tls, rec)

	// The wrapper goes inert only after the engine accepted the close.
	db.ptr = 0
	return nil
}

// CloseV2 finalizes the connection even with statements outstanding;
// the engine then defers its own teardown until the last one is
// finalized. The wrapper and record are retired immediately either way.
func (db *DB) CloseV2() error {
	if db == nil || db.ptr == 0 || db.rec == nil {
		return errors.Misuse(errors.PhaseClose, "connection is not open")
	}

	rt := db.rt
	tls := rt.env().tls
	rec := db.rec

	if rc := lib.Xsqlite3_close_v2(tls, db.ptr); rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseClose)
	}

	rt.setAside(tls, rec)
	db.ptr = 0
	return nil
}

// SetMainDBName renames the "main" schema. The engine keeps referencing
// the name for the connection's lifetime, so the bridge owns the C copy
// until the record is set aside.
func (db *DB) SetMainDBName(name string) error {
	rec, tls, err := db.use(errors.PhaseConfig)
	if err != nil {
		return err
	}

	cs, err := engine.CString(name)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindAllocation, err, "schema name")
	}

	va := libc.NewVaList(cs)
	rc := lib.Xsqlite3_db_config(tls, db.ptr, lib.SQLITE_DBCONFIG_MAINDBNAME, va)
	libc.Xfree(tls, va)

	if rc != lib.SQLITE_OK {
		engine.FreeCString(tls, cs)
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseConfig)
	}

	old := rec.mainDBName
	rec.mainDBName = cs
	if old != 0 {
		engine.FreeCString(tls, old)
	}
	return nil
}

// ConfigFlag sets a boolean connection configuration option and returns
// the resulting state. Pass -1 to query without changing.
func (db *DB) ConfigFlag(op int32, enable int32) (bool, error) {
	_, tls, err := db.use(errors.PhaseConfig)
	if err != nil {
		return false, err
	}

	out, err := engine.Malloc(tls, 4)
	if err != nil {
		return false, errors.Wrap(errors.PhaseConfig, errors.KindAllocation, err, "config out-param")
	}
	defer engine.Free(tls, out)
	*(*int32)(unsafe.Pointer(out)) = 0

	va := libc.NewVaList(enable, out)
	rc := lib.Xsqlite3_db_config(tls, db.ptr, op, va)
	libc.Xfree(tls, va)

	if rc != lib.SQLITE_OK {
		return false, engine.CheckRC(tls, db.ptr, rc, errors.PhaseConfig)
	}
	return *(*int32)(unsafe.Pointer(out)) != 0, nil
}

// Filename returns the file backing the given schema, or the empty
// string for temporary and in-memory databases.
func (db *DB) Filename(schema string) (string, error) {
	_, tls, err := db.use(errors.PhaseConfig)
	if err != nil {
		return "", err
	}
	if schema == "" {
		schema = "main"
	}

	cschema, err := engine.CString(schema)
	if err != nil {
		return "", errors.Wrap(errors.PhaseConfig, errors.KindAllocation, err, "schema name")
	}
	defer engine.FreeCString(tls, cschema)

	return engine.GoString(lib.Xsqlite3_db_filename(tls, db.ptr, cschema)), nil
}

// Interrupt asks the engine to abort any in-progress operation on the
// connection as soon as practical.
func (db *DB) Interrupt() {
	if db == nil || db.ptr == 0 {
		return
	}
	lib.Xsqlite3_interrupt(db.rt.env().tls, db.ptr)
}

// LastInsertRowID returns the rowid of the most recent successful insert
func (db *DB) LastInsertRowID() int64 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_last_insert_rowid(db.rt.env().tls, db.ptr)
}

// Changes returns the number of rows changed by the most recent statement
func (db *DB) Changes() int64 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_changes64(db.rt.env().tls, db.ptr)
}

// TotalChanges returns the number of rows changed since the connection opened
func (db *DB) TotalChanges() int64 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_total_changes64(db.rt.env().tls, db.ptr)
}

// IsAutocommit reports whether the connection is outside an explicit
// transaction
func (db *DB) IsAutocommit() bool {
	if db == nil || db.ptr == 0 {
		return false
	}
	return lib.Xsqlite3_get_autocommit(db.rt.env().tls, db.ptr) != 0
}

// ErrCode returns the primary result code of the most recent failed
// engine call on the connection
func (db *DB) ErrCode() int32 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_errcode(db.rt.env().tls, db.ptr)
}

// ExtendedErrCode returns the extended result code of the most recent
// failed engine call on the connection
func (db *DB) ExtendedErrCode() int32 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_extended_errcode(db.rt.env().tls, db.ptr)
}

// ErrMsg returns the engine's message for the most recent failure on
// the connection
func (db *DB) ErrMsg() string {
	if db == nil || db.ptr == 0 {
		return ""
	}
	return engine.GoString(lib.Xsqlite3_errmsg(db.rt.env().tls, db.ptr))
}

// use validates the wrapper and returns its record and the calling
// goroutine's thread context. Every operation on an open connection
// funnels through here.
func (db *DB) use(phase errors.Phase) (*connRecord, *libc.TLS, error) {
	if db == nil || db.ptr == 0 || db.rec == nil {
		return nil, nil, errors.Misuse(phase, "connection is not open")
	}
	return db.rec, db.rt.env().tls, nil
}
