package sqlite

import (
	"fmt"
	"iter"
	"time"

	"github.com/nsqlite/litebind/internal/binding"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/value"
)

// State is the cursor state of a Statement.
type State uint8

const (
	// StatePrepared means the statement has not produced a row since it was
	// compiled, bound or reset.
	StatePrepared State = iota
	// StateRowAvailable means the last Step produced a row.
	StateRowAvailable
	// StateDone means the last Step ran the statement to completion.
	StateDone
	// StateFinalized means the statement was closed.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "prepared"
	case StateRowAvailable:
		return "row available"
	case StateDone:
		return "done"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Statement is a compiled SQL statement.
//
// Bind and Reset move it back to StatePrepared. Step from StateDone runs
// it again with the same bindings. After Close, or after its Connection
// is closed, every call fails with an error wrapping sqlerr.ErrFinalized.
type Statement struct {
	conn       *Connection
	stmt       engine.Stmt
	state      State
	sql        string
	readOnly   bool
	paramCount int
	columns    []string
	row        *Row

	// running is set between the first Step of a run and its end, the
	// span covered by one StatementBegin/ProfileComplete pair.
	running bool
	started time.Time
}

func newStatement(c *Connection, es engine.Stmt) *Statement {
	columns := make([]string, es.ColumnCount())
	for i := range columns {
		columns[i] = es.ColumnName(i)
	}

	return &Statement{
		conn:       c,
		stmt:       es,
		state:      StatePrepared,
		sql:        es.SQL(),
		readOnly:   es.ReadOnly(),
		paramCount: es.ParamCount(),
		columns:    columns,
	}
}

func (s *Statement) checkLive(op string) error {
	if s.state == StateFinalized {
		return sqlerr.Usage(sqlerr.ErrFinalized, op)
	}
	return nil
}

// SQL returns the text the statement was compiled from.
func (s *Statement) SQL() string {
	return s.sql
}

// ExpandedSQL returns the statement text with the bound values inlined as
// SQL literals.
func (s *Statement) ExpandedSQL() string {
	if s.state == StateFinalized {
		return s.sql
	}
	return s.stmt.ExpandedSQL()
}

// ParameterCount returns the number of parameters.
func (s *Statement) ParameterCount() int {
	return s.paramCount
}

// ColumnCount returns the number of result columns.
func (s *Statement) ColumnCount() int {
	return len(s.columns)
}

// ColumnNames returns the result column names.
func (s *Statement) ColumnNames() []string {
	return append([]string(nil), s.columns...)
}

// ReadOnly reports whether the statement leaves the database unchanged.
//
// https://www.sqlite.org/c3ref/stmt_readonly.html
func (s *Statement) ReadOnly() bool {
	return s.readOnly
}

// State returns the cursor state.
func (s *Statement) State() State {
	return s.state
}

// Bind binds args to the parameters in order. The number of args must
// match ParameterCount. Every arg is converted before anything is bound,
// so a failed Bind leaves the previous bindings in place.
func (s *Statement) Bind(args ...any) error {
	if err := s.checkLive("bind"); err != nil {
		return err
	}

	if len(args) != s.paramCount {
		return sqlerr.Usage(sqlerr.ErrArity,
			fmt.Sprintf("statement has %d parameters, got %d arguments", s.paramCount, len(args)))
	}

	values := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := s.conn.codec.ToValue(arg)
		if err != nil {
			return fmt.Errorf("failed to bind parameter %d: %w", i+1, err)
		}
		values[i] = v
	}

	s.rewind()
	s.stmt.ClearBindings()
	for i, v := range values {
		if err := s.stmt.Bind(i+1, v); err != nil {
			return fmt.Errorf("failed to bind parameter %d: %w", i+1, err)
		}
	}

	return nil
}

// BindNamed binds parameters by name. Parameters not mentioned in params
// are bound to NULL.
func (s *Statement) BindNamed(params Named) error {
	if err := s.checkLive("bind"); err != nil {
		return err
	}

	values := make(map[int]value.Value, len(params))
	for name, arg := range params {
		index := s.stmt.ParamIndex(name)
		if index == 0 {
			return sqlerr.Bindingf("no parameter named %q in %q", name, s.sql)
		}
		if _, dup := values[index]; dup {
			return sqlerr.Bindingf("parameter %q is bound more than once", s.stmt.ParamName(index))
		}

		v, err := s.conn.codec.ToValue(arg)
		if err != nil {
			return fmt.Errorf("failed to bind parameter %q: %w", name, err)
		}
		values[index] = v
	}

	s.rewind()
	s.stmt.ClearBindings()
	for index, v := range values {
		if err := s.stmt.Bind(index, v); err != nil {
			return fmt.Errorf("failed to bind parameter %q: %w", s.stmt.ParamName(index), err)
		}
	}

	return nil
}

// bindArgs binds by name when args is a single Named, positionally
// otherwise.
func (s *Statement) bindArgs(args []any) error {
	if len(args) == 1 {
		switch named := args[0].(type) {
		case Named:
			return s.BindNamed(named)
		case map[string]any:
			return s.BindNamed(named)
		}
	}
	return s.Bind(args...)
}

// Step advances to the next row. It returns true when a row is available
// through Row, false when the statement is done.
//
// A busy or locked database is reported as an error for which
// sqlerr.IsBusy is true. The statement stays usable and the next Step
// starts it over.
func (s *Statement) Step() (bool, error) {
	if err := s.checkLive("step"); err != nil {
		return false, err
	}

	if !s.running {
		s.running = true
		s.started = time.Now()
		s.conn.emit(TraceStatement, func() TraceEvent {
			return StatementBegin{SQL: s.sql, ExpandedSQL: s.stmt.ExpandedSQL(), ReadOnly: s.readOnly}
		})
	}

	hasRow, err := s.stmt.Step()
	if err != nil {
		s.row = nil
		s.state = StatePrepared
		s.finishRun()
		return false, fmt.Errorf("failed to step statement: %w", err)
	}

	if !hasRow {
		s.row = nil
		s.state = StateDone
		s.finishRun()
		return false, nil
	}

	values := make([]value.Value, len(s.columns))
	for i := range values {
		values[i] = s.stmt.Column(i)
	}
	s.row = &Row{columns: s.columns, values: values, codec: s.conn.codec}
	s.state = StateRowAvailable
	s.conn.emit(TraceRow, func() TraceEvent {
		return RowProduced{ExpandedSQL: s.stmt.ExpandedSQL()}
	})

	return true, nil
}

// finishRun emits the profile event of the current run, if any.
func (s *Statement) finishRun() {
	if !s.running {
		return
	}
	s.running = false
	elapsed := time.Since(s.started)
	s.conn.emit(TraceProfile, func() TraceEvent {
		return ProfileComplete{ExpandedSQL: s.stmt.ExpandedSQL(), Elapsed: elapsed}
	})
}

// Row returns the current row. It fails unless the last Step produced
// one.
func (s *Statement) Row() (*Row, error) {
	if err := s.checkLive("row"); err != nil {
		return nil, err
	}
	if s.state != StateRowAvailable {
		return nil, sqlerr.Usage(sqlerr.ErrNoRow, fmt.Sprintf("statement is %s", s.state))
	}
	return s.row, nil
}

// Run steps the statement to completion, discarding rows.
func (s *Statement) Run() error {
	for {
		hasRow, err := s.Step()
		if err != nil {
			return err
		}
		if !hasRow {
			return nil
		}
	}
}

// Fetch runs the statement from the start and returns its first row, nil
// when it produces none. The statement is reset afterwards.
func (s *Statement) Fetch() (*Row, error) {
	if err := s.Reset(); err != nil {
		return nil, err
	}

	hasRow, err := s.Step()
	if err != nil {
		return nil, err
	}

	row := s.row
	if err := s.Reset(); err != nil {
		return nil, err
	}
	if !hasRow {
		return nil, nil
	}
	return row, nil
}

// Rows iterates over the rows of one run of the statement, starting from
// the first row. The statement is reset when the loop ends.
//
//	for row, err := range stmt.Rows() {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (s *Statement) Rows() iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		if err := s.Reset(); err != nil {
			yield(nil, err)
			return
		}
		defer func() {
			if s.state != StateFinalized {
				_ = s.Reset()
			}
		}()

		for {
			hasRow, err := s.Step()
			if err != nil {
				yield(nil, err)
				return
			}
			if !hasRow {
				return
			}
			if !yield(s.row, nil) {
				return
			}
		}
	}
}

// All returns every row of one run of the statement.
func (s *Statement) All() ([]*Row, error) {
	var rows []*Row
	for row, err := range s.Rows() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// rewind drops the cursor without touching the bindings.
func (s *Statement) rewind() {
	_ = s.stmt.Reset()
	s.row = nil
	s.state = StatePrepared
	s.finishRun()
}

// Reset rewinds the statement so the next Step returns the first row.
// Bindings are kept.
//
// https://www.sqlite.org/c3ref/reset.html
func (s *Statement) Reset() error {
	if err := s.checkLive("reset"); err != nil {
		return err
	}

	err := s.stmt.Reset()
	s.row = nil
	s.state = StatePrepared
	s.finishRun()
	if err != nil {
		return fmt.Errorf("failed to reset statement: %w", err)
	}
	return nil
}

// Close finalizes the statement. Closing twice is a no-op.
//
// https://www.sqlite.org/c3ref/finalize.html
func (s *Statement) Close() error {
	if s.state == StateFinalized {
		return nil
	}

	s.finishRun()
	s.row = nil
	s.state = StateFinalized
	delete(s.conn.statements, s)

	if err := s.stmt.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize statement: %w", err)
	}
	return nil
}

// QueryStmt runs s and returns the first column of its first row as a T.
// No row or a NULL value is an error wrapping sqlerr.ErrNoRows or
// sqlerr.ErrNullValue.
func QueryStmt[T any](s *Statement) (T, error) {
	var zero T

	row, err := s.Fetch()
	if err != nil {
		return zero, err
	}
	if row == nil {
		return zero, sqlerr.Usage(sqlerr.ErrNoRows, s.sql)
	}
	if row.Len() == 0 {
		return zero, &sqlerr.UsageError{Reason: "statement returns no columns: " + s.sql}
	}
	if row.At(0).IsNull() {
		return zero, sqlerr.Usage(sqlerr.ErrNullValue, s.sql)
	}

	return binding.ExtractWith[T](s.conn.codec, row.At(0))
}

// QueryStmtOptional is QueryStmt that reports no row or a NULL value with
// ok == false instead of an error.
func QueryStmtOptional[T any](s *Statement) (T, bool, error) {
	var zero T

	row, err := s.Fetch()
	if err != nil {
		return zero, false, err
	}
	if row == nil || row.Len() == 0 || row.At(0).IsNull() {
		return zero, false, nil
	}

	v, err := binding.ExtractWith[T](s.conn.codec, row.At(0))
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
