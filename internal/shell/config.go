package shell

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/nsqlite/litebind/internal/version"
)

// Config represents the configuration for the litebind shell.
type Config struct {
	Location      string        `arg:"positional" help:"Database to open: a file path, :memory: for a private in-memory database or an empty string for a temporary one" default:":memory:"`
	ReadOnly      bool          `arg:"--read-only,env:LITEBIND_READ_ONLY" help:"Open the database without write access"`
	SharedCache   bool          `arg:"--shared-cache,env:LITEBIND_SHARED_CACHE" help:"Enable SQLite's shared cache"`
	MultiThreaded bool          `arg:"--multi-threaded,env:LITEBIND_MULTI_THREADED" help:"Open the connection without its own mutex"`
	BusyTimeout   time.Duration `arg:"--busy-timeout,env:LITEBIND_BUSY_TIMEOUT" help:"How long to wait on a locked database, negative to fail right away" default:"5s"`
	JournalMode   string        `arg:"--journal-mode,env:LITEBIND_JOURNAL_MODE" help:"Journal mode to set on open (delete, truncate, persist, memory, wal, off)"`
	ForeignKeys   bool          `arg:"--foreign-keys,env:LITEBIND_FOREIGN_KEYS" help:"Enforce foreign keys"`
	Verbose       bool          `arg:"-v,--verbose,env:LITEBIND_VERBOSE" help:"Write debug logs to stderr"`
	HistoryPath   string        `arg:"--history,env:LITEBIND_HISTORY" help:"History file (default: .litebind_history in the temp dir)"`

	ParsedJournalMode engine.JournalMode `arg:"-"`
}

func (Config) Version() string {
	return fmt.Sprintf("%s\n", version.String("Shell"))
}

func (Config) Description() string {
	return "Interactive shell over a litebind connection"
}

// MustParse parses and validates the configuration from the command
// line arguments. It returns a Config struct or exits the program
// with an error.
func MustParse(args []string) Config {
	cfg := Config{}

	parser, err := arg.NewParser(
		arg.Config{},
		&cfg,
	)
	if err != nil {
		log.Fatal(err)
	}
	parser.MustParse(args[1:])

	if err := cfg.validate(); err != nil {
		parser.Fail(err.Error())
	}

	return cfg
}

// validate checks the values go-arg cannot and fills the parsed fields.
func (cfg *Config) validate() error {
	if cfg.JournalMode != "" {
		mode, err := engine.ParseJournalMode(cfg.JournalMode)
		if err != nil {
			return err
		}
		cfg.ParsedJournalMode = mode
	}

	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(os.TempDir(), ".litebind_history")
	}

	return nil
}

// SQLiteConfig returns the connection config described by cfg.
func (cfg Config) SQLiteConfig() sqlite.Config {
	return sqlite.Config{
		Location:      engine.ParseLocation(cfg.Location),
		ReadOnly:      cfg.ReadOnly,
		MultiThreaded: cfg.MultiThreaded,
		SharedCache:   cfg.SharedCache,
		BusyTimeout:   cfg.BusyTimeout,
		ForeignKeys:   cfg.ForeignKeys,
		JournalMode:   cfg.ParsedJournalMode,
	}
}
