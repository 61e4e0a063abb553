package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsqlite/litebind/internal/bench/benchbar"
	"github.com/nsqlite/litebind/internal/sqlite"
)

var errDiscardUser = errors.New("user discarded")

// runBenchmarkSavepoint inserts X users with Y articles each inside one
// transaction. Every user gets a savepoint and every article a nested
// one. Every Nth user is rolled back to its savepoint after all of its
// articles were written.
func runBenchmarkSavepoint(ctx context.Context, r *runner) (benchmarkResult, error) {
	conf := r.conf
	start := time.Now()
	var writes, rollbacks uint64

	conn, err := r.open()
	if err != nil {
		return benchmarkResult{}, err
	}
	defer conn.Close()

	bar := benchbar.NewBar(r.out,
		fmt.Sprintf("Inserting %d users with %d articles each", conf.Users, conf.ArticlesPerUser),
		conf.Users,
	)

	err = conn.Transaction(sqlite.Immediate, func() error {
		for idx := range conf.Users {
			if err := ctx.Err(); err != nil {
				return err
			}

			var userWrites uint64
			err := conn.Savepoint(fmt.Sprintf("user %d", idx), func() error {
				if err := conn.Run(insertUserSQL, newUserParams(idx, r.payload)); err != nil {
					return err
				}
				userID, err := conn.LastInsertRowID()
				if err != nil {
					return err
				}
				userWrites++

				for a := range conf.ArticlesPerUser {
					err := conn.Savepoint("", func() error {
						return conn.Run(
							"INSERT INTO articles (created, userId, title, score) VALUES (?, ?, ?, ?)",
							time.Now(), userID, fmt.Sprintf("Article %d of user %d", a, idx), float64(a)/2,
						)
					})
					if err != nil {
						return err
					}
					userWrites++
				}

				if conf.FailEvery > 0 && (idx+1)%conf.FailEvery == 0 {
					return errDiscardUser
				}
				return nil
			})

			switch {
			case errors.Is(err, errDiscardUser):
				rollbacks++
			case err != nil:
				return fmt.Errorf("error when inserting user %d: %w", idx, err)
			default:
				writes += userWrites
			}
			bar.Inc()
		}
		return nil
	})
	bar.Finish()
	if err != nil {
		return benchmarkResult{}, err
	}

	articles, err := sqlite.Query[uint64](conn, "SELECT count(*) FROM articles")
	if err != nil {
		return benchmarkResult{}, fmt.Errorf("error when counting: %w", err)
	}
	want := (uint64(conf.Users) - rollbacks) * uint64(conf.ArticlesPerUser)
	if articles != want {
		return benchmarkResult{}, fmt.Errorf("expected %d articles after rollbacks, found %d", want, articles)
	}

	return benchmarkResult{
		Name:        "Savepoint",
		Duration:    time.Since(start),
		TotalReads:  1,
		TotalWrites: writes,
		Rollbacks:   rollbacks,
	}, nil
}
