package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nsqlite/litebind/internal/bench/benchbar"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/log"
)

// openBaseline opens the benchmark database through database/sql and
// mattn/go-sqlite3, with the same settings as the litebind connections.
func (r *runner) openBaseline() (*sqlx.DB, error) {
	cfg := engine.Config{
		Location:    engine.OnDisk(r.path),
		BusyTimeout: r.conf.BusyTimeout,
		ForeignKeys: true,
		JournalMode: engine.JournalModeWAL,
	}

	db, err := sqlx.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s with go-sqlite3: %w", r.path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s with go-sqlite3: %w", r.path, err)
	}
	return db, nil
}

// runBenchmarkBaseline repeats the transaction benchmark through
// database/sql so the two can be compared.
func runBenchmarkBaseline(ctx context.Context, r *runner) (benchmarkResult, error) {
	start := time.Now()

	db, err := r.openBaseline()
	if err != nil {
		return benchmarkResult{}, err
	}
	defer db.Close()

	bar := benchbar.NewBar(r.out, fmt.Sprintf("Inserting %d users (go-sqlite3)", r.conf.Users), r.conf.Users)
	writes, err := r.insertUsersBaseline(ctx, db, r.conf.Users, bar)
	bar.Finish()
	if err != nil {
		return benchmarkResult{}, err
	}

	var count uint64
	if err := db.GetContext(ctx, &count, "SELECT count(*) FROM users"); err != nil {
		return benchmarkResult{}, fmt.Errorf("error when counting: %w", err)
	}
	if count != writes {
		return benchmarkResult{}, fmt.Errorf("inserted %d users but found %d", writes, count)
	}

	return benchmarkResult{
		Name:        "Transaction (go-sqlite3 baseline)",
		Duration:    time.Since(start),
		TotalReads:  1,
		TotalWrites: writes,
	}, nil
}

func (r *runner) insertUsersBaseline(
	ctx context.Context, db *sqlx.DB, n int, bar *benchbar.Bar,
) (uint64, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error when beginning: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err == nil {
			r.logger.DebugNs(log.NsBench, "baseline transaction rolled back")
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertUserSQL)
	if err != nil {
		return 0, fmt.Errorf("error when preparing: %w", err)
	}
	defer stmt.Close()

	var writes uint64
	for idx := range n {
		if _, err := stmt.ExecContext(ctx, newUser(idx, r.payload)); err != nil {
			return 0, fmt.Errorf("error when inserting: %w", err)
		}
		writes++
		bar.Inc()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error when committing: %w", err)
	}
	return writes, nil
}
