package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	lib "modernc.org/sqlite/lib"
)

func TestEngineError(t *testing.T) {
	t.Run("ExtendedDefaultsToPrimary", func(t *testing.T) {
		err := NewEngineError(CodeBusy, 0, "database is locked")
		assert.Equal(t, CodeBusy, err.ExtendedCode)
		assert.Equal(t, "SQLITE_BUSY: database is locked", err.Error())
	})

	t.Run("ExtendedKept", func(t *testing.T) {
		err := NewEngineError(CodeConstraint, 2067, "UNIQUE constraint failed")
		assert.Equal(t, 2067, err.ExtendedCode)
		assert.True(t, IsConstraint(err))
		assert.False(t, IsBusy(err))
	})

	t.Run("NoMessage", func(t *testing.T) {
		assert.Equal(t, "SQLITE_MISUSE", NewEngineError(CodeMisuse, 0, "").Error())
	})
}

func TestCodeName(t *testing.T) {
	assert.Equal(t, "SQLITE_LOCKED", CodeName(CodeLocked))
	assert.Equal(t, "SQLITE_BUSY", CodeName(517)) // SQLITE_BUSY_SNAPSHOT
	assert.Equal(t, "SQLITE_UNKNOWN(99)", CodeName(99))
}

func TestExtendedCodeName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{lib.SQLITE_BUSY_SNAPSHOT, "SQLITE_BUSY"},
		{lib.SQLITE_LOCKED_SHAREDCACHE, "SQLITE_LOCKED"},
		{lib.SQLITE_CONSTRAINT_UNIQUE, "SQLITE_CONSTRAINT"},
		{lib.SQLITE_CONSTRAINT_FOREIGNKEY, "SQLITE_CONSTRAINT"},
		{lib.SQLITE_IOERR_READ, "SQLITE_IOERR"},
		{lib.SQLITE_READONLY_DBMOVED, "SQLITE_READONLY"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeName(tt.code))
		})
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "busy", err: NewEngineError(CodeBusy, 0, ""), want: true},
		{name: "locked", err: NewEngineError(CodeLocked, 0, ""), want: true},
		{name: "wrapped busy", err: fmt.Errorf("failed to step: %w", NewEngineError(CodeBusy, 0, "")), want: true},
		{name: "other engine", err: NewEngineError(CodeError, 0, "syntax"), want: false},
		{name: "plain", err: errors.New("busy"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusy(tt.err))
		})
	}
}

func TestUsageError(t *testing.T) {
	err := Usage(ErrFinalized, "step")
	assert.ErrorIs(t, err, ErrFinalized)
	assert.Equal(t, "usage error: step: statement is finalized", err.Error())

	var usageErr *UsageError
	wrapped := fmt.Errorf("query: %w", err)
	assert.ErrorAs(t, wrapped, &usageErr)
	assert.ErrorIs(t, wrapped, ErrFinalized)
	assert.NotErrorIs(t, wrapped, ErrClosed)

	assert.Equal(t, "usage error: query returned no rows", Usage(ErrNoRows, "").Error())
}

func TestFormattedErrors(t *testing.T) {
	assert.Equal(t, "binding error: no parameter named :x", Bindingf("no parameter named %s", ":x").Error())
	assert.Equal(t, "conversion error: 300 out of range for uint8", Conversionf("%d out of range for %s", 300, "uint8").Error())
}
