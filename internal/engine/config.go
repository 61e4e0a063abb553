package engine

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/orsinium-labs/enum"
	lib "modernc.org/sqlite/lib"
)

// DefaultBusyTimeout is how long the engine waits on a locked database
// before reporting SQLITE_BUSY, unless configured otherwise.
const DefaultBusyTimeout = 5 * time.Second

// Config represents the options a connection is opened with.
type Config struct {
	// Location is the storage the connection opens. The zero Location is a
	// private in-memory database.
	Location Location
	// ReadOnly opens the database without write access.
	ReadOnly bool
	// MultiThreaded opens the connection without its own mutex
	// (SQLITE_OPEN_NOMUTEX). Otherwise it is serialized
	// (SQLITE_OPEN_FULLMUTEX).
	MultiThreaded bool
	// SharedCache enables the shared cache for the connection.
	SharedCache bool
	// BusyTimeout is how long to wait on a locked database. Zero selects
	// DefaultBusyTimeout, a negative value disables waiting.
	BusyTimeout time.Duration
	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
	// JournalMode sets the journal mode. The zero value keeps the
	// database's current mode.
	JournalMode JournalMode
}

func (cfg Config) busyTimeout() time.Duration {
	switch {
	case cfg.BusyTimeout == 0:
		return DefaultBusyTimeout
	case cfg.BusyTimeout < 0:
		return 0
	default:
		return cfg.BusyTimeout
	}
}

// URI returns the URI filename the connection is opened with.
//
// https://www.sqlite.org/uri.html
func (cfg Config) URI() string {
	return cfg.uri(url.Values{})
}

// openFlags returns the sqlite3_open_v2 flags for cfg.
//
// https://www.sqlite.org/c3ref/open.html
func (cfg Config) openFlags() int32 {
	flags := int32(lib.SQLITE_OPEN_URI)

	if cfg.ReadOnly && cfg.Location.kind == locationOnDisk {
		flags |= lib.SQLITE_OPEN_READONLY
	} else {
		flags |= lib.SQLITE_OPEN_READWRITE | lib.SQLITE_OPEN_CREATE
	}

	if cfg.MultiThreaded {
		flags |= lib.SQLITE_OPEN_NOMUTEX
	} else {
		flags |= lib.SQLITE_OPEN_FULLMUTEX
	}

	return flags
}

// pragmas returns the statements run right after the connection opens.
func (cfg Config) pragmas() []string {
	var pragmas []string

	if cfg.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if cfg.JournalMode.Value != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+cfg.JournalMode.Value)
	}
	if cfg.ReadOnly && cfg.Location.kind != locationOnDisk {
		pragmas = append(pragmas, "PRAGMA query_only = ON")
	}

	return pragmas
}

// DSN returns the go-sqlite3 data source name for cfg, for opening the
// same database through database/sql.
//
// https://github.com/mattn/go-sqlite3#connection-string
func (cfg Config) DSN() string {
	qp := url.Values{}
	qp.Add("_busy_timeout", strconv.FormatInt(cfg.busyTimeout().Milliseconds(), 10))

	if cfg.MultiThreaded {
		qp.Add("_mutex", "no")
	} else {
		qp.Add("_mutex", "full")
	}

	if cfg.ForeignKeys {
		qp.Add("_foreign_keys", "true")
	}

	if cfg.JournalMode.Value != "" {
		qp.Add("_journal_mode", cfg.JournalMode.Value)
	}

	if cfg.ReadOnly && cfg.Location.kind != locationOnDisk {
		qp.Add("_query_only", "true")
	}

	return cfg.uri(qp)
}

// uri adds the location parameters to qp and renders the URI filename.
func (cfg Config) uri(qp url.Values) string {
	loc := cfg.Location
	switch loc.kind {
	case locationNamedMemory:
		qp.Add("mode", "memory")
		qp.Add("cache", "shared")
	case locationOnDisk:
		if cfg.ReadOnly {
			qp.Add("mode", "ro")
		} else {
			qp.Add("mode", "rwc")
		}
	}

	if loc.kind != locationNamedMemory {
		if cfg.SharedCache {
			qp.Add("cache", "shared")
		} else {
			qp.Add("cache", "private")
		}
	}

	path := loc.path
	if loc.kind == locationInMemory {
		path = ":memory:"
	}

	return fmt.Sprintf("file:%s?%s", escapePath(path), qp.Encode())
}

var pathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func escapePath(p string) string {
	return pathEscaper.Replace(p)
}

type locationKind uint8

const (
	locationInMemory locationKind = iota
	locationTemporary
	locationOnDisk
	locationNamedMemory
)

// Location is where a database lives.
type Location struct {
	kind locationKind
	path string
}

// InMemory is a private in-memory database, gone when the connection
// closes.
func InMemory() Location {
	return Location{kind: locationInMemory}
}

// Temporary is a private on-disk database deleted when the connection
// closes.
func Temporary() Location {
	return Location{kind: locationTemporary}
}

// OnDisk is a database file at path.
func OnDisk(path string) Location {
	return Location{kind: locationOnDisk, path: path}
}

// NamedMemory is an in-memory database shared by every connection in the
// process that opens the same name.
func NamedMemory(name string) Location {
	return Location{kind: locationNamedMemory, path: name}
}

// ParseLocation maps the command line forms to a Location: ":memory:" is
// InMemory, the empty string is Temporary and anything else is a path.
func ParseLocation(s string) Location {
	switch s {
	case ":memory:":
		return InMemory()
	case "":
		return Temporary()
	default:
		return OnDisk(s)
	}
}

// IsMemory reports whether the location is held in memory.
func (l Location) IsMemory() bool {
	return l.kind == locationInMemory || l.kind == locationNamedMemory
}

// Path returns the file path of an OnDisk location, otherwise "".
func (l Location) Path() string {
	if l.kind != locationOnDisk {
		return ""
	}
	return l.path
}

// Filename returns the name SQLite is given for this location in an
// ATTACH statement.
func (l Location) Filename() string {
	switch l.kind {
	case locationInMemory:
		return ":memory:"
	case locationTemporary:
		return ""
	case locationNamedMemory:
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", escapePath(l.path))
	default:
		return l.path
	}
}

func (l Location) String() string {
	switch l.kind {
	case locationInMemory:
		return ":memory:"
	case locationTemporary:
		return "<temporary>"
	case locationNamedMemory:
		return "memory:" + l.path
	default:
		return l.path
	}
}

// JournalMode represents a SQLite journal mode.
//
// https://www.sqlite.org/pragma.html#pragma_journal_mode
type JournalMode enum.Member[string]

var (
	JournalModeDelete   = JournalMode{Value: "DELETE"}
	JournalModeTruncate = JournalMode{Value: "TRUNCATE"}
	JournalModePersist  = JournalMode{Value: "PERSIST"}
	JournalModeMemory   = JournalMode{Value: "MEMORY"}
	JournalModeWAL      = JournalMode{Value: "WAL"}
	JournalModeOff      = JournalMode{Value: "OFF"}

	JournalModes = enum.New(
		JournalModeDelete,
		JournalModeTruncate,
		JournalModePersist,
		JournalModeMemory,
		JournalModeWAL,
		JournalModeOff,
	)
)

// ParseJournalMode parses a journal mode name, case insensitive.
func ParseJournalMode(s string) (JournalMode, error) {
	mode := JournalModes.Parse(strings.ToUpper(strings.TrimSpace(s)))
	if mode == nil {
		return JournalMode{}, fmt.Errorf("invalid journal mode %q, expected one of %v", s, JournalModes.Values())
	}
	return *mode, nil
}
