package runtime

import (
	"unsafe"

	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

// Pre-update introspection. Only meaningful while an OnPreUpdate
// callback is executing on the connection; outside one the counters
// read zero and the column accessors fail with a misuse error from the
// engine.

// PreUpdateCount returns the number of columns in the row the pending
// change touches.
func (db *DB) PreUpdateCount() int32 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_preupdate_count(db.rt.env().tls, db.ptr)
}

// PreUpdateDepth reports the trigger nesting depth of the pending
// change: 0 for a direct statement, 1 for a change run by a top-level
// trigger.
func (db *DB) PreUpdateDepth() int32 {
	if db == nil || db.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_preupdate_depth(db.rt.env().tls, db.ptr)
}

// PreUpdateBlobWrite returns the index of the column being written by
// an incremental blob update, or -1 when the pending change is not one.
func (db *DB) PreUpdateBlobWrite() int32 {
	if db == nil || db.ptr == 0 {
		return -1
	}
	return lib.Xsqlite3_preupdate_blobwrite(db.rt.env().tls, db.ptr)
}

// PreUpdateOld returns column i of the row as it stands before the
// pending change. Valid for update and delete changes.
func (db *DB) PreUpdateOld(i int32) (*Value, error) {
	return db.preUpdateColumn(i, true)
}

// PreUpdateNew returns column i of the row as the pending change will
// leave it. Valid for update and insert changes.
func (db *DB) PreUpdateNew(i int32) (*Value, error) {
	return db.preUpdateColumn(i, false)
}

func (db *DB) preUpdateColumn(i int32, old bool) (*Value, error) {
	_, tls, err := db.use(errors.PhaseDispatch)
	if err != nil {
		return nil, err
	}

	out, err := engine.Malloc(tls, int(ptrSize))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindAllocation, err, "value out-param")
	}
	defer engine.Free(tls, out)
	*(*uintptr)(unsafe.Pointer(out)) = 0

	var rc int32
	if old {
		rc = lib.Xsqlite3_preupdate_old(tls, db.ptr, i, out)
	} else {
		rc = lib.Xsqlite3_preupdate_new(tls, db.ptr, i, out)
	}
	if rc != lib.SQLITE_OK {
		return nil, engine.CheckRC(tls, db.ptr, rc, errors.PhaseDispatch)
	}
	return db.rt.wrapValue(tls, *(*uintptr)(unsafe.Pointer(out))), nil
}
