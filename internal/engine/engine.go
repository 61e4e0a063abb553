package engine

import "github.com/nsqlite/litebind/internal/value"

// Conn represents one open SQLite database connection.
//
// https://www.sqlite.org/c3ref/sqlite3.html
type Conn interface {
	// Prepare compiles the first statement of query.
	Prepare(query string) (Stmt, error)
	// Exec runs every statement in query, discarding rows. It takes no
	// parameters.
	Exec(query string) error
	// SetCollation registers a comparison function under name.
	SetCollation(name string, cmp func(a, b string) int) error
	// AutoCommit reports whether the connection is outside an explicit
	// transaction.
	AutoCommit() bool
	Close() error
}

// Stmt represents a prepared statement. Parameter indexes are 1-based and
// column indexes are 0-based, as in the C API.
//
// https://www.sqlite.org/c3ref/stmt.html
type Stmt interface {
	SQL() string
	ExpandedSQL() string
	ReadOnly() bool

	ParamCount() int
	// ParamIndex returns the index of a named parameter or 0 when there is
	// none. The name may be given with or without its prefix.
	ParamIndex(name string) int
	ParamName(index int) string

	ColumnCount() int
	ColumnName(i int) string
	ColumnDeclType(i int) string

	Bind(index int, v value.Value) error
	ClearBindings()

	// Step advances to the next row. It returns false once the statement
	// is done; a following Step runs the statement again.
	Step() (bool, error)
	// Column returns a column of the current row, NULL when no row is
	// current.
	Column(i int) value.Value

	Reset() error
	Finalize() error
}
