package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsqlite/litebind/internal/bench/benchbar"
	"github.com/nsqlite/litebind/internal/sqlite"
)

// runBenchmarkRead inserts X users and then reads all of them Y times into
// structs, from several connections at once. This simulates a read-heavy
// workload.
func runBenchmarkRead(ctx context.Context, r *runner) (benchmarkResult, error) {
	conf := r.conf
	start := time.Now()
	var totalReads uint64

	seed, err := r.open()
	if err != nil {
		return benchmarkResult{}, err
	}
	bar := benchbar.NewBar(r.out, fmt.Sprintf("Inserting %d users", conf.Users), conf.Users)
	writes, err := r.insertUsers(ctx, seed, conf.Users, bar)
	bar.Finish()
	seed.Close()
	if err != nil {
		return benchmarkResult{}, err
	}

	pool, err := r.newConnPool(conf.Readers)
	if err != nil {
		return benchmarkResult{}, err
	}
	defer pool.Close()

	wg := sync.WaitGroup{}
	wgch := make(chan bool, conf.Readers)
	errChan := make(chan error, conf.ReadTimes)
	bar = benchbar.NewBar(r.out,
		fmt.Sprintf("Reading all users %d times", conf.ReadTimes), conf.ReadTimes,
	)

	for range conf.ReadTimes {
		wg.Add(1)
		wgch <- true

		go func() {
			defer func() {
				wg.Done()
				<-wgch
			}()

			err := pool.With(ctx, func(conn *sqlite.Connection) error {
				n, err := r.readUsers(conn)
				atomic.AddUint64(&totalReads, n)
				return err
			})
			if err != nil {
				errChan <- err
				return
			}

			bar.Inc()
		}()
	}

	wg.Wait()
	close(wgch)
	close(errChan)

	for e := range errChan {
		if e != nil {
			return benchmarkResult{}, fmt.Errorf("error when reading: %w", e)
		}
	}
	bar.Finish()

	if want := writes * uint64(conf.ReadTimes); totalReads != want {
		return benchmarkResult{}, fmt.Errorf("expected %d reads, got %d", want, totalReads)
	}

	return benchmarkResult{
		Name:        "Read",
		Duration:    time.Since(start),
		TotalReads:  totalReads,
		TotalWrites: writes,
	}, nil
}

// readUsers reads every user into a struct and checks it came back whole.
func (r *runner) readUsers(conn *sqlite.Connection) (uint64, error) {
	stmt, err := conn.Prepare("SELECT id, uuid, created, email, active, payload FROM users ORDER BY id")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var reads uint64
	for row, err := range stmt.Rows() {
		if err != nil {
			return reads, err
		}

		var u user
		if err := row.ScanStruct(&u); err != nil {
			return reads, fmt.Errorf("error when scanning: %w", err)
		}
		if len(u.Payload) != len(r.payload) || u.Created.IsZero() {
			return reads, fmt.Errorf("user %d came back incomplete", u.ID)
		}
		reads++
	}

	return reads, nil
}
