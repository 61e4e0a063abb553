package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/nsqlite/litebind/internal/bench/benchbar"
	"github.com/nsqlite/litebind/internal/sqlite"
)

// runBenchmarkTransaction inserts X users in a single transaction through
// one prepared statement and then counts them.
func runBenchmarkTransaction(ctx context.Context, r *runner) (benchmarkResult, error) {
	start := time.Now()

	conn, err := r.open()
	if err != nil {
		return benchmarkResult{}, err
	}
	defer conn.Close()

	bar := benchbar.NewBar(r.out, fmt.Sprintf("Inserting %d users", r.conf.Users), r.conf.Users)
	writes, err := r.insertUsers(ctx, conn, r.conf.Users, bar)
	bar.Finish()
	if err != nil {
		return benchmarkResult{}, err
	}

	count, err := sqlite.Query[uint64](conn, "SELECT count(*) FROM users")
	if err != nil {
		return benchmarkResult{}, fmt.Errorf("error when counting: %w", err)
	}
	if count != writes {
		return benchmarkResult{}, fmt.Errorf("inserted %d users but found %d", writes, count)
	}

	return benchmarkResult{
		Name:        "Transaction",
		Duration:    time.Since(start),
		TotalReads:  1,
		TotalWrites: writes,
	}, nil
}

// insertUsers inserts n users in one IMMEDIATE transaction and returns how
// many rows were written.
func (r *runner) insertUsers(
	ctx context.Context, conn *sqlite.Connection, n int, bar *benchbar.Bar,
) (uint64, error) {
	var writes uint64

	err := conn.Transaction(sqlite.Immediate, func() error {
		stmt, err := conn.Prepare(insertUserSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for idx := range n {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := stmt.BindNamed(newUserParams(idx, r.payload)); err != nil {
				return fmt.Errorf("error when binding: %w", err)
			}
			if err := stmt.Run(); err != nil {
				return fmt.Errorf("error when inserting: %w", err)
			}

			writes++
			bar.Inc()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return writes, nil
}
