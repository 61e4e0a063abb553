package engine

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/value"
	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	lib "modernc.org/sqlite/lib"
)

// Version is the version of the linked SQLite library, "X.Y.Z".
const Version = lib.SQLITE_VERSION

const ptrSize = types.Size_t(unsafe.Sizeof(uintptr(0)))

var initOnce sync.Once

type sqliteConn struct {
	tls *libc.TLS
	db  uintptr
	// mu serializes every call into the connection unless it was opened
	// multi-threaded.
	mu *sync.Mutex
}

type sqliteStmt struct {
	conn    *sqliteConn
	stmt    uintptr
	sql     string
	current []value.Value
}

// Open opens a new SQLite database connection with the given config.
//
// https://www.sqlite.org/c3ref/open.html
func Open(cfg Config) (Conn, error) {
	tls := libc.NewTLS()
	initOnce.Do(func() {
		lib.Xsqlite3_initialize(tls)
	})

	db, err := openDB(tls, cfg)
	if err != nil {
		tls.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &sqliteConn{tls: tls, db: db}
	if !cfg.MultiThreaded {
		c.mu = &sync.Mutex{}
	}

	lib.Xsqlite3_extended_result_codes(tls, db, 1)
	lib.Xsqlite3_busy_timeout(tls, db, int32(cfg.busyTimeout().Milliseconds()))

	for _, pragma := range cfg.pragmas() {
		if err := c.Exec(pragma); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	return c, nil
}

func openDB(tls *libc.TLS, cfg Config) (uintptr, error) {
	curi, err := libc.CString(cfg.URI())
	if err != nil {
		return 0, err
	}
	defer libc.Xfree(tls, curi)

	dbPtr, err := malloc(tls, ptrSize)
	if err != nil {
		return 0, err
	}
	defer libc.Xfree(tls, dbPtr)

	res := lib.Xsqlite3_open_v2(tls, curi, dbPtr, cfg.openFlags(), 0)
	db := *(*uintptr)(unsafe.Pointer(dbPtr))
	if db == 0 {
		return 0, sqlerr.NewEngineError(sqlerr.CodeNoMem, 0, "cannot allocate database handle")
	}
	if res != lib.SQLITE_OK {
		// open_v2 hands back a handle even on failure so the message can
		// be read from it.
		err := dbError(tls, db, lib.Xsqlite3_extended_errcode(tls, db))
		lib.Xsqlite3_close_v2(tls, db)
		return 0, err
	}
	return db, nil
}

// dbError builds the EngineError for result code res, taking the message
// from the connection.
func dbError(tls *libc.TLS, db uintptr, res int32) error {
	code := int(res)
	msg := libc.GoString(lib.Xsqlite3_errmsg(tls, db))
	return sqlerr.NewEngineError(code&0xff, code, msg)
}

func (c *sqliteConn) lock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *sqliteConn) resultError(res int32) error {
	return dbError(c.tls, c.db, res)
}

// Exec executes every statement in query from start to finish, without
// returning any data.
//
// https://www.sqlite.org/c3ref/exec.html
func (c *sqliteConn) Exec(query string) error {
	unlock := c.lock()
	defer unlock()

	cquery, err := libc.CString(query)
	if err != nil {
		return err
	}
	defer libc.Xfree(c.tls, cquery)

	stmtPtr, err := malloc(c.tls, ptrSize)
	if err != nil {
		return err
	}
	defer libc.Xfree(c.tls, stmtPtr)
	tailPtr, err := malloc(c.tls, ptrSize)
	if err != nil {
		return err
	}
	defer libc.Xfree(c.tls, tailPtr)

	next := cquery
	for *(*byte)(unsafe.Pointer(next)) != 0 {
		res := lib.Xsqlite3_prepare_v3(c.tls, c.db, next, -1, 0, stmtPtr, tailPtr)
		if res != lib.SQLITE_OK {
			return c.resultError(res)
		}
		stmt := *(*uintptr)(unsafe.Pointer(stmtPtr))
		tail := *(*uintptr)(unsafe.Pointer(tailPtr))

		// Whitespace and comments compile to nothing.
		if stmt == 0 {
			if tail == next {
				return nil
			}
			next = tail
			continue
		}
		next = tail

		res = lib.Xsqlite3_step(c.tls, stmt)
		for res == lib.SQLITE_ROW {
			res = lib.Xsqlite3_step(c.tls, stmt)
		}
		if res != lib.SQLITE_DONE {
			err := c.resultError(res)
			lib.Xsqlite3_finalize(c.tls, stmt)
			return err
		}
		if res := lib.Xsqlite3_finalize(c.tls, stmt); res != lib.SQLITE_OK {
			return c.resultError(res)
		}
	}

	return nil
}

// Prepare compiles the first statement in query into a prepared statement.
//
// https://www.sqlite.org/c3ref/prepare.html
func (c *sqliteConn) Prepare(query string) (Stmt, error) {
	unlock := c.lock()
	defer unlock()

	cquery, err := libc.CString(query)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(c.tls, cquery)

	stmtPtr, err := malloc(c.tls, ptrSize)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(c.tls, stmtPtr)

	res := lib.Xsqlite3_prepare_v3(c.tls, c.db, cquery, -1, 0, stmtPtr, 0)
	if res != lib.SQLITE_OK {
		return nil, c.resultError(res)
	}

	stmt := *(*uintptr)(unsafe.Pointer(stmtPtr))
	if stmt == 0 {
		return nil, sqlerr.NewEngineError(sqlerr.CodeMisuse, 0, "no SQL statement to prepare")
	}

	return &sqliteStmt{
		conn: c,
		stmt: stmt,
		sql:  strings.TrimSpace(libc.GoString(lib.Xsqlite3_sql(c.tls, stmt))),
	}, nil
}

// SetCollation registers a collating function.
//
// https://www.sqlite.org/c3ref/create_collation.html
func (c *sqliteConn) SetCollation(name string, cmp func(a, b string) int) error {
	unlock := c.lock()
	defer unlock()

	cname, err := libc.CString(name)
	if err != nil {
		return err
	}
	defer libc.Xfree(c.tls, cname)

	id := collations.register(cmp)
	res := lib.Xsqlite3_create_collation_v2(
		c.tls, c.db, cname, lib.SQLITE_UTF8, id,
		cFuncPointer(collationCallback), cFuncPointer(collationDestroy),
	)
	if res != lib.SQLITE_OK {
		// The destructor is not called when registration fails.
		collations.remove(id)
		return c.resultError(res)
	}
	return nil
}

// AutoCommit reports whether the connection is in autocommit mode.
//
// https://www.sqlite.org/c3ref/get_autocommit.html
func (c *sqliteConn) AutoCommit() bool {
	unlock := c.lock()
	defer unlock()

	return lib.Xsqlite3_get_autocommit(c.tls, c.db) != 0
}

// Close closes the connection. Every statement must be finalized first.
//
// https://www.sqlite.org/c3ref/close.html
func (c *sqliteConn) Close() error {
	unlock := c.lock()
	defer unlock()

	if c.db == 0 {
		return nil
	}
	if res := lib.Xsqlite3_close(c.tls, c.db); res != lib.SQLITE_OK {
		return c.resultError(res)
	}
	c.db = 0
	c.tls.Close()
	return nil
}

// SQL returns the text of the compiled statement.
//
// https://www.sqlite.org/c3ref/expanded_sql.html
func (s *sqliteStmt) SQL() string {
	return s.sql
}

// ExpandedSQL returns the statement text with bound parameters inlined as
// literals.
//
// https://www.sqlite.org/c3ref/expanded_sql.html
func (s *sqliteStmt) ExpandedSQL() string {
	unlock := s.conn.lock()
	defer unlock()

	p := lib.Xsqlite3_expanded_sql(s.conn.tls, s.stmt)
	if p == 0 {
		return s.sql
	}
	defer lib.Xsqlite3_free(s.conn.tls, p)
	return strings.TrimSpace(libc.GoString(p))
}

// ReadOnly returns true if the statement makes no direct changes to the
// database.
//
// https://www.sqlite.org/c3ref/stmt_readonly.html
func (s *sqliteStmt) ReadOnly() bool {
	unlock := s.conn.lock()
	defer unlock()

	return lib.Xsqlite3_stmt_readonly(s.conn.tls, s.stmt) != 0
}

// ParamCount returns the largest parameter index.
//
// https://www.sqlite.org/c3ref/bind_parameter_count.html
func (s *sqliteStmt) ParamCount() int {
	unlock := s.conn.lock()
	defer unlock()

	return int(lib.Xsqlite3_bind_parameter_count(s.conn.tls, s.stmt))
}

// paramPrefixes are tried in order for a name given without its prefix.
var paramPrefixes = []string{":", "@", "$", "?"}

// ParamIndex returns the index of the named parameter, 0 if not found.
//
// https://www.sqlite.org/c3ref/bind_parameter_index.html
func (s *sqliteStmt) ParamIndex(name string) int {
	if name == "" {
		return 0
	}

	unlock := s.conn.lock()
	defer unlock()

	if strings.ContainsAny(name[:1], ":@$?") {
		return s.paramIndex(name)
	}
	for _, prefix := range paramPrefixes {
		if index := s.paramIndex(prefix + name); index != 0 {
			return index
		}
	}
	return 0
}

func (s *sqliteStmt) paramIndex(name string) int {
	cname, err := libc.CString(name)
	if err != nil {
		return 0
	}
	defer libc.Xfree(s.conn.tls, cname)
	return int(lib.Xsqlite3_bind_parameter_index(s.conn.tls, s.stmt, cname))
}

// ParamName returns the name of the parameter at index, "" for an
// anonymous one.
//
// https://www.sqlite.org/c3ref/bind_parameter_name.html
func (s *sqliteStmt) ParamName(index int) string {
	unlock := s.conn.lock()
	defer unlock()

	return libc.GoString(lib.Xsqlite3_bind_parameter_name(s.conn.tls, s.stmt, int32(index)))
}

// ColumnCount returns the number of columns in the result set.
//
// https://www.sqlite.org/c3ref/column_count.html
func (s *sqliteStmt) ColumnCount() int {
	unlock := s.conn.lock()
	defer unlock()

	return int(lib.Xsqlite3_column_count(s.conn.tls, s.stmt))
}

// ColumnName returns the name of the column at the given index.
//
// https://www.sqlite.org/c3ref/column_name.html
func (s *sqliteStmt) ColumnName(i int) string {
	unlock := s.conn.lock()
	defer unlock()

	if i < 0 || i >= int(lib.Xsqlite3_column_count(s.conn.tls, s.stmt)) {
		return ""
	}
	return libc.GoString(lib.Xsqlite3_column_name(s.conn.tls, s.stmt, int32(i)))
}

// ColumnDeclType returns the declared type of the column at the given
// index, lower cased, "" for expressions.
//
// https://www.sqlite.org/c3ref/column_decltype.html
func (s *sqliteStmt) ColumnDeclType(i int) string {
	unlock := s.conn.lock()
	defer unlock()

	if i < 0 || i >= int(lib.Xsqlite3_column_count(s.conn.tls, s.stmt)) {
		return ""
	}
	return strings.ToLower(libc.GoString(lib.Xsqlite3_column_decltype(s.conn.tls, s.stmt, int32(i))))
}

// Bind binds v to the parameter at index.
//
// https://www.sqlite.org/c3ref/bind_blob.html
func (s *sqliteStmt) Bind(index int, v value.Value) error {
	unlock := s.conn.lock()
	defer unlock()

	tls, param := s.conn.tls, int32(index)

	var res int32
	switch v.Kind() {
	case value.KindInteger:
		i, _ := v.AsInt64()
		res = lib.Xsqlite3_bind_int64(tls, s.stmt, param, i)
	case value.KindReal:
		f, _ := v.AsFloat64()
		res = lib.Xsqlite3_bind_double(tls, s.stmt, param, f)
	case value.KindText:
		text, _ := v.AsText()
		p, err := cBytes(tls, unsafe.Slice(unsafe.StringData(text), len(text)))
		if err != nil {
			return err
		}
		res = lib.Xsqlite3_bind_text(tls, s.stmt, param, p, int32(len(text)), freeFuncPtr)
	case value.KindBlob:
		b, _ := v.AsBlob()
		if len(b) == 0 {
			// A zero length blob is still a blob, not NULL.
			res = lib.Xsqlite3_bind_blob(tls, s.stmt, param, emptyCString, 0, sqliteStatic)
			break
		}
		p, err := cBytes(tls, b)
		if err != nil {
			return err
		}
		res = lib.Xsqlite3_bind_blob(tls, s.stmt, param, p, int32(len(b)), freeFuncPtr)
	default:
		res = lib.Xsqlite3_bind_null(tls, s.stmt, param)
	}

	if res != lib.SQLITE_OK {
		return s.conn.resultError(res)
	}
	return nil
}

// ClearBindings sets every parameter back to NULL.
//
// https://www.sqlite.org/c3ref/clear_bindings.html
func (s *sqliteStmt) ClearBindings() {
	unlock := s.conn.lock()
	defer unlock()

	lib.Xsqlite3_clear_bindings(s.conn.tls, s.stmt)
}

// Step advances the statement to the next row of data, returning true if
// a new row is available, or false if there are no more rows. A finished
// or failed statement is reset, so the next Step runs it again.
//
// https://www.sqlite.org/c3ref/step.html
func (s *sqliteStmt) Step() (bool, error) {
	unlock := s.conn.lock()
	defer unlock()

	s.current = nil

	switch res := lib.Xsqlite3_step(s.conn.tls, s.stmt); res {
	case lib.SQLITE_ROW:
		s.current = s.readRow()
		return true, nil
	case lib.SQLITE_DONE:
		lib.Xsqlite3_reset(s.conn.tls, s.stmt)
		return false, nil
	default:
		err := s.conn.resultError(res)
		lib.Xsqlite3_reset(s.conn.tls, s.stmt)
		return false, err
	}
}

// readRow copies the current row out of the engine by storage class.
//
// https://www.sqlite.org/c3ref/column_blob.html
func (s *sqliteStmt) readRow() []value.Value {
	tls := s.conn.tls
	row := make([]value.Value, lib.Xsqlite3_data_count(tls, s.stmt))

	for i := range row {
		col := int32(i)
		switch lib.Xsqlite3_column_type(tls, s.stmt, col) {
		case lib.SQLITE_INTEGER:
			row[i] = value.Integer(lib.Xsqlite3_column_int64(tls, s.stmt, col))
		case lib.SQLITE_FLOAT:
			row[i] = value.Real(lib.Xsqlite3_column_double(tls, s.stmt, col))
		case lib.SQLITE_TEXT:
			p := lib.Xsqlite3_column_text(tls, s.stmt, col)
			n := lib.Xsqlite3_column_bytes(tls, s.stmt, col)
			row[i] = value.Text(goStringN(p, int(n)))
		case lib.SQLITE_BLOB:
			p := lib.Xsqlite3_column_blob(tls, s.stmt, col)
			n := lib.Xsqlite3_column_bytes(tls, s.stmt, col)
			b := make([]byte, n)
			if p != 0 {
				copy(b, unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
			}
			row[i] = value.Blob(b)
		default:
			row[i] = value.Null()
		}
	}

	return row
}

// Column returns the value of the current row at the given index.
//
// https://www.sqlite.org/c3ref/column_blob.html
func (s *sqliteStmt) Column(i int) value.Value {
	if i < 0 || i >= len(s.current) {
		return value.Null()
	}
	return s.current[i]
}

// Reset rewinds the statement so the next Step starts over. Bindings are
// kept.
//
// https://www.sqlite.org/c3ref/reset.html
func (s *sqliteStmt) Reset() error {
	unlock := s.conn.lock()
	defer unlock()

	s.current = nil
	if res := lib.Xsqlite3_reset(s.conn.tls, s.stmt); res != lib.SQLITE_OK {
		return s.conn.resultError(res)
	}
	return nil
}

// Finalize frees the resources associated with this statement.
//
// https://www.sqlite.org/c3ref/finalize.html
func (s *sqliteStmt) Finalize() error {
	unlock := s.conn.lock()
	defer unlock()

	s.current = nil
	if s.stmt == 0 {
		return nil
	}
	res := lib.Xsqlite3_finalize(s.conn.tls, s.stmt)
	s.stmt = 0
	if res != lib.SQLITE_OK {
		return s.conn.resultError(res)
	}
	return nil
}
