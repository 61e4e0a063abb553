// Package sqlerr is the error taxonomy shared by the binding layer, the
// engine wrapper and the connection API.
//
// Every failure returned by this module is one of four kinds:
//
//   - *EngineError: the engine rejected an operation (bad SQL, constraint
//     violation, busy, I/O, ...).
//   - *BindingError: a value could not be bound (unknown parameter name,
//     unsupported Go type).
//   - *UsageError: the API was used out of order (finalized statement,
//     wrong arity, missing row).
//   - *ConversionError: a stored value could not be extracted as the
//     requested Go type.
//
// Use errors.As to recover the kind and errors.Is for the sentinels.
package sqlerr

import (
	"errors"
	"fmt"

	lib "modernc.org/sqlite/lib"
)

// Primary result codes.
//
// https://www.sqlite.org/rescode.html
const (
	CodeOK         = lib.SQLITE_OK
	CodeError      = lib.SQLITE_ERROR
	CodeInternal   = lib.SQLITE_INTERNAL
	CodePerm       = lib.SQLITE_PERM
	CodeAbort      = lib.SQLITE_ABORT
	CodeBusy       = lib.SQLITE_BUSY
	CodeLocked     = lib.SQLITE_LOCKED
	CodeNoMem      = lib.SQLITE_NOMEM
	CodeReadOnly   = lib.SQLITE_READONLY
	CodeInterrupt  = lib.SQLITE_INTERRUPT
	CodeIOErr      = lib.SQLITE_IOERR
	CodeCorrupt    = lib.SQLITE_CORRUPT
	CodeNotFound   = lib.SQLITE_NOTFOUND
	CodeFull       = lib.SQLITE_FULL
	CodeCantOpen   = lib.SQLITE_CANTOPEN
	CodeProtocol   = lib.SQLITE_PROTOCOL
	CodeEmpty      = lib.SQLITE_EMPTY
	CodeSchema     = lib.SQLITE_SCHEMA
	CodeTooBig     = lib.SQLITE_TOOBIG
	CodeConstraint = lib.SQLITE_CONSTRAINT
	CodeMismatch   = lib.SQLITE_MISMATCH
	CodeMisuse     = lib.SQLITE_MISUSE
	CodeNoLFS      = lib.SQLITE_NOLFS
	CodeAuth       = lib.SQLITE_AUTH
	CodeFormat     = lib.SQLITE_FORMAT
	CodeRange      = lib.SQLITE_RANGE
	CodeNotADB     = lib.SQLITE_NOTADB
	CodeNotice     = lib.SQLITE_NOTICE
	CodeWarning    = lib.SQLITE_WARNING
	CodeRow        = lib.SQLITE_ROW
	CodeDone       = lib.SQLITE_DONE
)

var codeNames = map[int]string{
	CodeOK:         "SQLITE_OK",
	CodeError:      "SQLITE_ERROR",
	CodeInternal:   "SQLITE_INTERNAL",
	CodePerm:       "SQLITE_PERM",
	CodeAbort:      "SQLITE_ABORT",
	CodeBusy:       "SQLITE_BUSY",
	CodeLocked:     "SQLITE_LOCKED",
	CodeNoMem:      "SQLITE_NOMEM",
	CodeReadOnly:   "SQLITE_READONLY",
	CodeInterrupt:  "SQLITE_INTERRUPT",
	CodeIOErr:      "SQLITE_IOERR",
	CodeCorrupt:    "SQLITE_CORRUPT",
	CodeNotFound:   "SQLITE_NOTFOUND",
	CodeFull:       "SQLITE_FULL",
	CodeCantOpen:   "SQLITE_CANTOPEN",
	CodeProtocol:   "SQLITE_PROTOCOL",
	CodeEmpty:      "SQLITE_EMPTY",
	CodeSchema:     "SQLITE_SCHEMA",
	CodeTooBig:     "SQLITE_TOOBIG",
	CodeConstraint: "SQLITE_CONSTRAINT",
	CodeMismatch:   "SQLITE_MISMATCH",
	CodeMisuse:     "SQLITE_MISUSE",
	CodeNoLFS:      "SQLITE_NOLFS",
	CodeAuth:       "SQLITE_AUTH",
	CodeFormat:     "SQLITE_FORMAT",
	CodeRange:      "SQLITE_RANGE",
	CodeNotADB:     "SQLITE_NOTADB",
	CodeNotice:     "SQLITE_NOTICE",
	CodeWarning:    "SQLITE_WARNING",
	CodeRow:        "SQLITE_ROW",
	CodeDone:       "SQLITE_DONE",
}

// CodeName returns the symbolic name of a primary result code, for
// example "SQLITE_BUSY".
func CodeName(code int) string {
	if name, ok := codeNames[code&0xff]; ok {
		return name
	}
	return fmt.Sprintf("SQLITE_UNKNOWN(%d)", code)
}

var (
	// ErrFinalized is wrapped by every operation on a closed statement.
	ErrFinalized = errors.New("statement is finalized")
	// ErrClosed is wrapped by every operation on a closed connection.
	ErrClosed = errors.New("connection is closed")
	// ErrNoRows is returned by non-optional queries that produced no row.
	ErrNoRows = errors.New("query returned no rows")
	// ErrNullValue is returned by non-optional queries whose value is NULL.
	ErrNullValue = errors.New("query returned NULL")
	// ErrArity is wrapped when the number of positional arguments does not
	// match the number of parameters.
	ErrArity = errors.New("wrong number of arguments")
	// ErrNoRow is wrapped when a row is requested but none is current.
	ErrNoRow = errors.New("no current row")
)

// EngineError is a failure reported by the engine.
type EngineError struct {
	// Code is the primary result code.
	Code int
	// ExtendedCode is the extended result code, equal to Code when the
	// engine reported none.
	ExtendedCode int
	Message      string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return CodeName(e.Code)
	}
	return fmt.Sprintf("%s: %s", CodeName(e.Code), e.Message)
}

// NewEngineError builds an EngineError. An extended code of zero is
// replaced by the primary code.
func NewEngineError(code, extended int, message string) *EngineError {
	if extended == 0 {
		extended = code
	}
	return &EngineError{Code: code, ExtendedCode: extended, Message: message}
}

// BindingError means a value could not be bound to a parameter.
type BindingError struct {
	Reason string
}

func (e *BindingError) Error() string {
	return "binding error: " + e.Reason
}

// Bindingf formats a BindingError.
func Bindingf(format string, args ...any) *BindingError {
	return &BindingError{Reason: fmt.Sprintf(format, args...)}
}

// UsageError means the API was called in a state that does not allow it.
type UsageError struct {
	Reason string
	Err    error
}

func (e *UsageError) Error() string {
	if e.Err == nil {
		return "usage error: " + e.Reason
	}
	if e.Reason == "" {
		return "usage error: " + e.Err.Error()
	}
	return fmt.Sprintf("usage error: %s: %s", e.Reason, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Usage builds a UsageError around one of the sentinels.
func Usage(err error, reason string) *UsageError {
	return &UsageError{Reason: reason, Err: err}
}

// ConversionError means a stored value could not become the requested Go
// type: wrong storage class, out of range, NULL into a non-nullable
// destination, or an unparsable text form.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string {
	return "conversion error: " + e.Reason
}

// Conversionf formats a ConversionError.
func Conversionf(format string, args ...any) *ConversionError {
	return &ConversionError{Reason: fmt.Sprintf(format, args...)}
}

// IsBusy reports whether err is an engine busy or locked failure, the
// retryable contention results.
func IsBusy(err error) bool {
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		return false
	}
	return engErr.Code == CodeBusy || engErr.Code == CodeLocked
}

// IsConstraint reports whether err is an engine constraint violation.
func IsConstraint(err error) bool {
	var engErr *EngineError
	return errors.As(err, &engErr) && engErr.Code == CodeConstraint
}
