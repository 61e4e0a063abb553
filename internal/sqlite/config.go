package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/nsqlite/litebind/internal/binding"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/log"
	"github.com/orsinium-labs/enum"
)

// Config represents the configuration a Connection is opened with.
type Config struct {
	// Location is the database to open. The zero Location is a private
	// in-memory database.
	Location engine.Location
	// ReadOnly opens the database without write access.
	ReadOnly bool
	// MultiThreaded drops the engine's per-connection mutex. The caller must
	// then never use the connection from two goroutines at once.
	MultiThreaded bool
	// SharedCache enables SQLite's shared cache mode.
	SharedCache bool
	// BusyTimeout is how long the engine waits on a locked database before
	// failing with SQLITE_BUSY. Zero means engine.DefaultBusyTimeout, a
	// negative value fails immediately.
	BusyTimeout time.Duration
	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
	// JournalMode sets the journal mode on open; the zero value leaves it
	// unchanged.
	JournalMode engine.JournalMode
	// TimeFormat is how time.Time values are stored as TEXT. Nil means
	// binding.DefaultTimeFormat.
	TimeFormat binding.TimeFormat
	// Logger receives connection and transaction diagnostics. The zero
	// Logger discards everything.
	Logger log.Logger
}

func (cfg Config) engineConfig() engine.Config {
	return engine.Config{
		Location:      cfg.Location,
		ReadOnly:      cfg.ReadOnly,
		MultiThreaded: cfg.MultiThreaded,
		SharedCache:   cfg.SharedCache,
		BusyTimeout:   cfg.BusyTimeout,
		ForeignKeys:   cfg.ForeignKeys,
		JournalMode:   cfg.JournalMode,
	}
}

// Named holds named parameters. Keys are placeholder names with or
// without their ':', '@' or '$' prefix.
//
// Passing a single Named as the argument list of Run, Fetch, Select,
// Query or QueryOptional binds by name.
type Named map[string]any

// TransactionKind is the locking behavior of a transaction.
//
// https://www.sqlite.org/lang_transaction.html
type TransactionKind enum.Member[string]

var (
	// Deferred acquires locks on first use.
	Deferred = TransactionKind{Value: "DEFERRED"}
	// Immediate starts a write transaction right away.
	Immediate = TransactionKind{Value: "IMMEDIATE"}
	// Exclusive also keeps readers out in rollback journal modes.
	Exclusive = TransactionKind{Value: "EXCLUSIVE"}

	TransactionKinds = enum.New(Deferred, Immediate, Exclusive)
)

// ParseTransactionKind parses a transaction kind name, case insensitive.
func ParseTransactionKind(s string) (TransactionKind, error) {
	kind := TransactionKinds.Parse(strings.ToUpper(strings.TrimSpace(s)))
	if kind == nil {
		return TransactionKind{}, fmt.Errorf("invalid transaction kind %q, expected one of %v", s, TransactionKinds.Values())
	}
	return *kind, nil
}
