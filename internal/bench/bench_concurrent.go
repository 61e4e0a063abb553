package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsqlite/litebind/internal/bench/benchbar"
	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/sqlite"
)

const maxBusyBackoff = 100 * time.Millisecond

// runBenchmarkConcurrent inserts X users, each in its own transaction,
// from several connections at once. Writes that find the database busy
// are retried with a growing backoff.
func runBenchmarkConcurrent(ctx context.Context, r *runner) (benchmarkResult, error) {
	conf := r.conf
	start := time.Now()
	var totalWrites, busyRetries uint64

	pool, err := r.newConnPool(conf.Writers)
	if err != nil {
		return benchmarkResult{}, err
	}
	defer pool.Close()

	wg := sync.WaitGroup{}
	wgch := make(chan bool, conf.Writers)
	errChan := make(chan error, conf.Users)
	bar := benchbar.NewBar(r.out,
		fmt.Sprintf("Inserting %d users from %d connections", conf.Users, conf.Writers), conf.Users,
	)

	for idx := range conf.Users {
		wg.Add(1)
		wgch <- true

		go func() {
			defer func() {
				wg.Done()
				<-wgch
			}()

			retries, err := r.retryBusy(ctx, func() error {
				return pool.With(ctx, func(conn *sqlite.Connection) error {
					return conn.Transaction(sqlite.Immediate, func() error {
						return conn.Run(insertUserSQL, newUserParams(idx, r.payload))
					})
				})
			})
			atomic.AddUint64(&busyRetries, uint64(retries))
			if err != nil {
				errChan <- err
				return
			}

			bar.Inc()
			atomic.AddUint64(&totalWrites, 1)
		}()
	}

	wg.Wait()
	close(wgch)
	close(errChan)

	for e := range errChan {
		if e != nil {
			return benchmarkResult{}, fmt.Errorf("error when inserting: %w", e)
		}
	}
	bar.Finish()

	return benchmarkResult{
		Name:        "Concurrent",
		Duration:    time.Since(start),
		TotalWrites: totalWrites,
		BusyRetries: busyRetries,
	}, nil
}

// retryBusy runs fn until it succeeds, fails with anything but a busy
// database, or BusyRetries retries were spent. It returns the number of
// retries.
func (r *runner) retryBusy(ctx context.Context, fn func() error) (int, error) {
	backoff := r.conf.BusyRetryBackoff
	retries := 0

	for {
		err := fn()
		if err == nil || !sqlerr.IsBusy(err) || retries >= r.conf.BusyRetries {
			return retries, err
		}

		retries++
		r.trace.ObserveBusyRetry()
		r.logger.DebugNs(log.NsBench, "database busy, retrying", log.KV{
			"retry":   retries,
			"backoff": backoff.String(),
		})

		select {
		case <-ctx.Done():
			return retries, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBusyBackoff)
	}
}
