package runtime

import (
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

// Stmt wraps a prepared statement. A statement belongs to the
// connection that prepared it and is not safe for concurrent use.
type Stmt struct {
	db  *DB
	ptr uintptr
}

func (rt *Runtime) wrapStmt(db *DB, ptr uintptr) *Stmt {
	rt.counters.add(func(m *Metrics) { m.WrapStmt++ })
	return &Stmt{db: db, ptr: ptr}
}

// Prepare compiles the first statement in sql. The second return value
// is the trailing SQL left uncompiled. Whitespace or comment-only input
// yields a nil statement and no error.
func (db *DB) Prepare(sql string) (*Stmt, string, error) {
	_, tls, err := db.use(errors.PhaseStatement)
	if err != nil {
		return nil, "", err
	}

	csql, err := engine.CString(sql)
	if err != nil {
		return nil, "", errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "sql text")
	}
	defer engine.FreeCString(tls, csql)

	outStmt, err := engine.Malloc(tls, int(ptrSize))
	if err != nil {
		return nil, "", errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "statement out-param")
	}
	defer engine.Free(tls, outStmt)
	*(*uintptr)(unsafe.Pointer(outStmt)) = 0

	outTail, err := engine.Malloc(tls, int(ptrSize))
	if err != nil {
		return nil, "", errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "tail out-param")
	}
	defer engine.Free(tls, outTail)
	*(*uintptr)(unsafe.Pointer(outTail)) = 0

	rc := lib.Xsqlite3_prepare_v2(tls, db.ptr, csql, int32(len(sql))+1, outStmt, outTail)
	if rc != lib.SQLITE_OK {
		return nil, "", engine.CheckRC(tls, db.ptr, rc, errors.PhaseStatement)
	}

	var tail string
	if tailPtr := *(*uintptr)(unsafe.Pointer(outTail)); tailPtr != 0 {
		if off := int(tailPtr - csql); off >= 0 && off < len(sql) {
			tail = sql[off:]
		}
	}

	stmtPtr := *(*uintptr)(unsafe.Pointer(outStmt))
	if stmtPtr == 0 {
		return nil, tail, nil
	}
	return db.rt.wrapStmt(db, stmtPtr), tail, nil
}

// Exec compiles and runs every statement in sql, discarding any rows
func (db *DB) Exec(sql string) error {
	_, tls, err := db.use(errors.PhaseStatement)
	if err != nil {
		return err
	}

	csql, err := engine.CString(sql)
	if err != nil {
		return errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "sql text")
	}
	defer engine.FreeCString(tls, csql)

	rc := lib.Xsqlite3_exec(tls, db.ptr, csql, 0, 0, 0)
	return engine.CheckRC(tls, db.ptr, rc, errors.PhaseStatement)
}

func (s *Stmt) use(phase errors.Phase) (*libc.TLS, error) {
	if s == nil || s.ptr == 0 || s.db == nil || s.db.ptr == 0 {
		return nil, errors.Misuse(phase, "statement is not live")
	}
	return s.db.rt.env().tls, nil
}

// Step advances the statement one row. True means a row is ready for
// the Column accessors, false means the statement is done.
func (s *Stmt) Step() (bool, error) {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return false, err
	}

	switch rc := lib.Xsqlite3_step(tls, s.ptr); rc {
	case lib.SQLITE_ROW:
		return true, nil
	case lib.SQLITE_DONE:
		return false, nil
	default:
		return false, engine.CheckRC(tls, s.db.ptr, rc, errors.PhaseStatement)
	}
}

// Reset rewinds the statement for re-execution, keeping its bindings
func (s *Stmt) Reset() error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	return engine.CheckRC(tls, s.db.ptr, lib.Xsqlite3_reset(tls, s.ptr), errors.PhaseStatement)
}

// ClearBindings sets every parameter back to null
func (s *Stmt) ClearBindings() error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	return engine.CheckRC(tls, s.db.ptr, lib.Xsqlite3_clear_bindings(tls, s.ptr), errors.PhaseStatement)
}

// Finalize destroys the statement. The returned error reflects the
// most recent evaluation failure, as the engine reports it.
func (s *Stmt) Finalize() error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	rc := lib.Xsqlite3_finalize(tls, s.ptr)
	s.ptr = 0
	if rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, s.db.ptr, rc, errors.PhaseStatement)
	}
	return nil
}

// BindNull binds null to the 1-based parameter i
func (s *Stmt) BindNull(i int32) error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	return engine.CheckRC(tls, s.db.ptr, lib.Xsqlite3_bind_null(tls, s.ptr, i), errors.PhaseStatement)
}

// BindInt64 binds an integer to the 1-based parameter i
func (s *Stmt) BindInt64(i int32, v int64) error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	return engine.CheckRC(tls, s.db.ptr, lib.Xsqlite3_bind_int64(tls, s.ptr, i, v), errors.PhaseStatement)
}

// BindDouble binds a float to the 1-based parameter i
func (s *Stmt) BindDouble(i int32, v float64) error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}
	return engine.CheckRC(tls, s.db.ptr, lib.Xsqlite3_bind_double(tls, s.ptr, i, v), errors.PhaseStatement)
}

// BindText binds a string to the 1-based parameter i
func (s *Stmt) BindText(i int32, v string) error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}

	cv, err := engine.CString(v)
	if err != nil {
		return errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "text binding")
	}
	rc := lib.Xsqlite3_bind_text(tls, s.ptr, i, cv, int32(len(v)), lib.SQLITE_TRANSIENT)
	engine.FreeCString(tls, cv)
	return engine.CheckRC(tls, s.db.ptr, rc, errors.PhaseStatement)
}

// BindBlob binds a byte slice to the 1-based parameter i. An empty
// slice binds a zero-length blob rather than null.
func (s *Stmt) BindBlob(i int32, v []byte) error {
	tls, err := s.use(errors.PhaseStatement)
	if err != nil {
		return err
	}

	if len(v) == 0 {
		rc := lib.Xsqlite3_bind_zeroblob(tls, s.ptr, i, 0)
		return engine.CheckRC(tls, s.db.ptr, rc, errors.PhaseStatement)
	}

	cv, err := engine.CopyToC(tls, v)
	if err != nil {
		return errors.Wrap(errors.PhaseStatement, errors.KindAllocation, err, "blob binding")
	}
	rc := lib.Xsqlite3_bind_blob(tls, s.ptr, i, cv, int32(len(v)), lib.SQLITE_TRANSIENT)
	engine.Free(tls, cv)
	return engine.CheckRC(tls, s.db.ptr, rc, errors.PhaseStatement)
}

// BindParameterCount returns the number of parameters in the statement
func (s *Stmt) BindParameterCount() int32 {
	if s == nil || s.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_bind_parameter_count(s.db.rt.env().tls, s.ptr)
}

// BindParameterIndex returns the 1-based index of a named parameter, or
// zero when the name is unknown
func (s *Stmt) BindParameterIndex(name string) int32 {
	if s == nil || s.ptr == 0 {
		return 0
	}
	tls := s.db.rt.env().tls
	cname, err := engine.CString(name)
	if err != nil {
		return 0
	}
	defer engine.FreeCString(tls, cname)
	return lib.Xsqlite3_bind_parameter_index(tls, s.ptr, cname)
}

// ColumnCount returns the number of result columns
func (s *Stmt) ColumnCount() int32 {
	if s == nil || s.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_column_count(s.db.rt.env().tls, s.ptr)
}

// ColumnName returns the name of the 0-based result column i
func (s *Stmt) ColumnName(i int32) string {
	if s == nil || s.ptr == 0 {
		return ""
	}
	return engine.GoString(lib.Xsqlite3_column_name(s.db.rt.env().tls, s.ptr, i))
}

// ColumnType returns the storage class of column i in the current row
func (s *Stmt) ColumnType(i int32) DataType {
	if s == nil || s.ptr == 0 {
		return TypeNull
	}
	return DataType(lib.Xsqlite3_column_type(s.db.rt.env().tls, s.ptr, i))
}

// ColumnInt64 reads column i of the current row as an integer
func (s *Stmt) ColumnInt64(i int32) int64 {
	if s == nil || s.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_column_int64(s.db.rt.env().tls, s.ptr, i)
}

// ColumnDouble reads column i of the current row as a float
func (s *Stmt) ColumnDouble(i int32) float64 {
	if s == nil || s.ptr == 0 {
		return 0
	}
	return lib.Xsqlite3_column_double(s.db.rt.env().tls, s.ptr, i)
}

// ColumnText reads column i of the current row as a string
func (s *Stmt) ColumnText(i int32) string {
	if s == nil || s.ptr == 0 {
		return ""
	}
	tls := s.db.rt.env().tls
	p := lib.Xsqlite3_column_text(tls, s.ptr, i)
	n := lib.Xsqlite3_column_bytes(tls, s.ptr, i)
	return engine.GoStringN(p, int(n))
}

// ColumnBlob reads column i of the current row as a fresh byte slice
func (s *Stmt) ColumnBlob(i int32) []byte {
	if s == nil || s.ptr == 0 {
		return nil
	}
	tls := s.db.rt.env().tls
	p := lib.Xsqlite3_column_blob(tls, s.ptr, i)
	n := lib.Xsqlite3_column_bytes(tls, s.ptr, i)
	return engine.GoBytes(p, int(n))
}

// SQL returns the text the statement was prepared from
func (s *Stmt) SQL() string {
	if s == nil || s.ptr == 0 {
		return ""
	}
	return engine.GoString(lib.Xsqlite3_sql(s.db.rt.env().tls, s.ptr))
}

// ExpandedSQL returns the statement text with bound parameters expanded
func (s *Stmt) ExpandedSQL() string {
	if s == nil || s.ptr == 0 {
		return ""
	}
	tls := s.db.rt.env().tls
	p := lib.Xsqlite3_expanded_sql(tls, s.ptr)
	if p == 0 {
		return ""
	}
	defer lib.Xsqlite3_free(tls, p)
	return engine.GoString(p)
}

// IsBusy reports whether the statement has been stepped and not yet
// reset to completion
func (s *Stmt) IsBusy() bool {
	if s == nil || s.ptr == 0 {
		return false
	}
	return lib.Xsqlite3_stmt_busy(s.db.rt.env().tls, s.ptr) != 0
}

// IsReadOnly reports whether the statement makes no direct changes to
// the database
func (s *Stmt) IsReadOnly() bool {
	if s == nil || s.ptr == 0 {
		return false
	}
	return lib.Xsqlite3_stmt_readonly(s.db.rt.env().tls, s.ptr) != 0
}
