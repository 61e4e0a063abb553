package bench

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/nsqlite/litebind/internal/version"
)

// Config represents the configuration for the litebind benchmark.
type Config struct {
	Dir              string        `arg:"--dir,env:LITEBIND_BENCH_DIR" help:"Directory for the benchmark databases (default: a new temporary directory, removed afterwards)"`
	Users            int           `arg:"--users,env:LITEBIND_BENCH_USERS" help:"Users inserted by each benchmark" default:"10000"`
	ArticlesPerUser  int           `arg:"--articles-per-user,env:LITEBIND_BENCH_ARTICLES_PER_USER" help:"Articles written per user in the savepoint benchmark" default:"5"`
	FailEvery        int           `arg:"--fail-every,env:LITEBIND_BENCH_FAIL_EVERY" help:"Roll back every Nth savepoint in the savepoint benchmark, 0 to never" default:"10"`
	ReadTimes        int           `arg:"--read-times,env:LITEBIND_BENCH_READ_TIMES" help:"How many times the read benchmark reads every user" default:"20"`
	Readers          int           `arg:"--readers,env:LITEBIND_BENCH_READERS" help:"Connections reading at the same time" default:"4"`
	Writers          int           `arg:"--writers,env:LITEBIND_BENCH_WRITERS" help:"Connections writing at the same time" default:"4"`
	PayloadBytes     int           `arg:"--payload-bytes,env:LITEBIND_BENCH_PAYLOAD_BYTES" help:"Size of the blob stored with every user" default:"256"`
	BusyTimeout      time.Duration `arg:"--busy-timeout,env:LITEBIND_BENCH_BUSY_TIMEOUT" help:"Engine busy timeout of every connection, negative to fail right away" default:"10ms"`
	BusyRetries      int           `arg:"--busy-retries,env:LITEBIND_BENCH_BUSY_RETRIES" help:"Retries of a write that found the database busy" default:"100"`
	BusyRetryBackoff time.Duration `arg:"--busy-retry-backoff,env:LITEBIND_BENCH_BUSY_RETRY_BACKOFF" help:"Initial wait before retrying a busy write, doubled on every retry" default:"1ms"`
	Verbose          bool          `arg:"-v,--verbose,env:LITEBIND_BENCH_VERBOSE" help:"Write debug logs to stderr"`
}

func (Config) Version() string {
	return fmt.Sprintf("%s\n", version.String("Bench"))
}

func (Config) Description() string {
	return "Benchmarks transactions, savepoints, typed reads and concurrent writers over litebind connections"
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

func (cfg Config) validate() error {
	if cfg.Users <= 0 {
		return errors.New("users must be greater than 0")
	}
	if cfg.ArticlesPerUser <= 0 {
		return errors.New("articles-per-user must be greater than 0")
	}
	if cfg.FailEvery < 0 {
		return errors.New("fail-every must be 0 or greater")
	}
	if cfg.ReadTimes <= 0 {
		return errors.New("read-times must be greater than 0")
	}
	if cfg.Readers <= 0 {
		return errors.New("readers must be greater than 0")
	}
	if cfg.Writers <= 0 {
		return errors.New("writers must be greater than 0")
	}
	if cfg.PayloadBytes < 0 {
		return errors.New("payload-bytes must be 0 or greater")
	}
	if cfg.BusyRetries < 0 {
		return errors.New("busy-retries must be 0 or greater")
	}
	if cfg.BusyRetryBackoff < 0 {
		return errors.New("busy-retry-backoff must be 0 or greater")
	}

	return nil
}
