// Package sqlite is the typed access layer: a Connection prepares
// Statements, binds Go values into their parameters, steps them and reads
// Rows back into Go values. Transactions and savepoints wrap a body
// function and roll back when it fails.
//
// A Connection and its Statements are not safe for concurrent use.
package sqlite

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/nsqlite/litebind/internal/binding"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/sqlerr"
)

// Connection represents one open database connection.
type Connection struct {
	cfg        Config
	conn       engine.Conn
	logger     log.Logger
	codec      binding.Codec
	statements map[*Statement]struct{}
	collations map[string]struct{}
	tracer     *tracer
	// savepointDepth only names savepoints opened with an empty name.
	savepointDepth int
	closed         bool
}

// Open opens a connection with the given config.
func Open(cfg Config) (*Connection, error) {
	if !cfg.Logger.IsInitialized() {
		cfg.Logger = log.Discard()
	}
	if cfg.TimeFormat == nil {
		cfg.TimeFormat = binding.DefaultTimeFormat
	}

	conn, err := engine.Open(cfg.engineConfig())
	if err != nil {
		return nil, err
	}

	c := &Connection{
		cfg:        cfg,
		conn:       conn,
		logger:     cfg.Logger,
		codec:      binding.Codec{Time: cfg.TimeFormat},
		statements: map[*Statement]struct{}{},
		collations: map[string]struct{}{},
	}

	c.logger.DebugNs(log.NsConnection, "connection opened", log.KV{
		"location": cfg.Location.String(),
		"readOnly": cfg.ReadOnly,
	})

	return c, nil
}

// Close finalizes every live statement, emits the ConnectionClosed trace
// event and closes the connection. Closing twice is a no-op.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for stmt := range c.statements {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	c.emit(TraceClose, func() TraceEvent { return ConnectionClosed{} })
	c.tracer = nil

	if err := c.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
	}

	c.logger.DebugNs(log.NsConnection, "connection closed", log.KV{
		"location": c.cfg.Location.String(),
	})

	return errors.Join(errs...)
}

func (c *Connection) checkOpen(op string) error {
	if c.closed {
		return sqlerr.Usage(sqlerr.ErrClosed, op)
	}
	return nil
}

// Prepare compiles the first statement in sql.
func (c *Connection) Prepare(sql string) (*Statement, error) {
	if err := c.checkOpen("prepare"); err != nil {
		return nil, err
	}

	es, err := c.conn.Prepare(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	stmt := newStatement(c, es)
	c.statements[stmt] = struct{}{}
	return stmt, nil
}

// Execute runs every statement in sql. It takes no parameters and
// discards any rows, which makes it the call for schema changes and
// pragmas.
func (c *Connection) Execute(sql string) error {
	if err := c.checkOpen("execute"); err != nil {
		return err
	}

	c.emit(TraceStatement, func() TraceEvent { return StatementBegin{SQL: sql, ExpandedSQL: sql} })
	start := time.Now()

	err := c.conn.Exec(sql)

	elapsed := time.Since(start)
	c.emit(TraceProfile, func() TraceEvent { return ProfileComplete{ExpandedSQL: sql, Elapsed: elapsed} })

	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

// prepareBound prepares sql and binds args to it.
func (c *Connection) prepareBound(sql string, args []any) (*Statement, error) {
	stmt, err := c.Prepare(sql)
	if err != nil {
		return nil, err
	}
	if err := stmt.bindArgs(args); err != nil {
		_ = stmt.Close()
		return nil, err
	}
	return stmt, nil
}

// Run prepares sql, binds args and steps it to completion.
func (c *Connection) Run(sql string, args ...any) error {
	stmt, err := c.prepareBound(sql, args)
	if err != nil {
		return err
	}
	defer stmt.Close()

	return stmt.Run()
}

// Fetch returns the first row sql produces, nil when it produces none.
func (c *Connection) Fetch(sql string, args ...any) (*Row, error) {
	stmt, err := c.prepareBound(sql, args)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.Fetch()
}

// Select returns every row sql produces.
func (c *Connection) Select(sql string, args ...any) ([]*Row, error) {
	stmt, err := c.prepareBound(sql, args)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.All()
}

// Query returns the first column of the first row as a T. No row or a
// NULL value is an error wrapping sqlerr.ErrNoRows or sqlerr.ErrNullValue.
func Query[T any](c *Connection, sql string, args ...any) (T, error) {
	stmt, err := c.prepareBound(sql, args)
	if err != nil {
		var zero T
		return zero, err
	}
	defer stmt.Close()

	return QueryStmt[T](stmt)
}

// QueryOptional is Query that reports no row or a NULL value with
// ok == false instead of an error.
func QueryOptional[T any](c *Connection, sql string, args ...any) (T, bool, error) {
	stmt, err := c.prepareBound(sql, args)
	if err != nil {
		var zero T
		return zero, false, err
	}
	defer stmt.Close()

	return QueryStmtOptional[T](stmt)
}

// CreateCollation registers cmp as the collating function name. Strings
// that are not valid UTF-8 compare equal to everything.
//
// https://www.sqlite.org/datatype3.html#collation
func (c *Connection) CreateCollation(name string, cmp func(a, b string) int) error {
	if err := c.checkOpen("create collation"); err != nil {
		return err
	}

	err := c.conn.SetCollation(name, func(a, b string) int {
		if !utf8.ValidString(a) || !utf8.ValidString(b) {
			return 0
		}
		return cmp(a, b)
	})
	if err != nil {
		return fmt.Errorf("failed to create collation %q: %w", name, err)
	}

	c.collations[name] = struct{}{}
	return nil
}

// LastInsertRowID returns the rowid of the most recent successful INSERT
// on this connection.
//
// https://www.sqlite.org/c3ref/last_insert_rowid.html
func (c *Connection) LastInsertRowID() (int64, error) {
	return c.scalar("SELECT last_insert_rowid()")
}

// Changes returns the number of rows modified by the most recent INSERT,
// UPDATE or DELETE.
//
// https://www.sqlite.org/c3ref/changes.html
func (c *Connection) Changes() (int64, error) {
	return c.scalar("SELECT changes()")
}

// TotalChanges returns the number of rows modified since the connection
// was opened.
//
// https://www.sqlite.org/c3ref/total_changes.html
func (c *Connection) TotalChanges() (int64, error) {
	return c.scalar("SELECT total_changes()")
}

// scalar reads one integer straight from the engine, without tracing.
func (c *Connection) scalar(sql string) (int64, error) {
	if err := c.checkOpen("query"); err != nil {
		return 0, err
	}

	stmt, err := c.conn.Prepare(sql)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Finalize()

	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("failed to step statement: %w", err)
	}
	i, _ := stmt.Column(0).AsInt64()
	return i, nil
}

// InTransaction reports whether a transaction is open.
//
// https://www.sqlite.org/c3ref/get_autocommit.html
func (c *Connection) InTransaction() bool {
	if c.closed {
		return false
	}
	return !c.conn.AutoCommit()
}

// ReadOnly reports whether the connection was opened read-only.
func (c *Connection) ReadOnly() bool {
	return c.cfg.ReadOnly
}

// Location returns the database the connection was opened on.
func (c *Connection) Location() engine.Location {
	return c.cfg.Location
}

// ThreadSafe reports whether the connection was opened serialized, with
// the engine's own mutex.
func (c *Connection) ThreadSafe() bool {
	return !c.cfg.MultiThreaded
}

// Collations returns the names of the collations registered through
// CreateCollation.
func (c *Connection) Collations() []string {
	names := make([]string, 0, len(c.collations))
	for name := range c.collations {
		names = append(names, name)
	}
	return names
}
