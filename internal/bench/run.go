// Package bench measures litebind connections under transactional,
// savepoint, read and concurrent write workloads.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/metrics"
	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/nsqlite/litebind/internal/styled"
	"github.com/nsqlite/litebind/internal/util/numutil"
	"github.com/nsqlite/litebind/internal/version"
	"github.com/prometheus/client_golang/prometheus"
)

// benchmarkResult stores the outcome of a benchmark.
type benchmarkResult struct {
	Name        string
	Duration    time.Duration
	TotalReads  uint64
	TotalWrites uint64
	Rollbacks   uint64
	BusyRetries uint64
}

type benchmark func(ctx context.Context, r *runner) (benchmarkResult, error)

// runner holds what every benchmark shares.
type runner struct {
	conf     Config
	path     string
	payload  []byte
	trace    *metrics.Trace
	registry *prometheus.Registry
	logger   log.Logger
	out      io.Writer
}

// Run executes the benchmarks and prints the results.
func Run(ctx context.Context) error {
	conf := MustParse(os.Args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(version.BenchVersion())

	logger := log.NewLoggerWithLevel(os.Stderr, slog.LevelWarn)
	if conf.Verbose {
		logger = log.NewLoggerWithLevel(os.Stderr, slog.LevelDebug)
	}

	dir := conf.Dir
	if dir == "" {
		tmpDir, err := os.MkdirTemp("", "litebindbench_*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmpDir)
		dir = tmpDir
	}

	r, err := newRunner(conf, filepath.Join(dir, "bench.db"), logger, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Println("Database path:", r.path)

	results, err := r.runAll(ctx)
	if err != nil {
		return err
	}

	r.printResults(results)
	return r.printMetrics()
}

func newRunner(conf Config, path string, logger log.Logger, out io.Writer) (*runner, error) {
	r := &runner{
		conf:     conf,
		path:     path,
		payload:  make([]byte, conf.PayloadBytes),
		trace:    metrics.NewTrace(prometheus.Labels{"database": filepath.Base(path)}),
		registry: prometheus.NewRegistry(),
		logger:   logger,
		out:      out,
	}
	for i := range r.payload {
		r.payload[i] = byte(i)
	}

	if err := r.trace.Register(r.registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return r, nil
}

// open opens a new traced connection to the benchmark database.
func (r *runner) open() (*sqlite.Connection, error) {
	conn, err := sqlite.Open(sqlite.Config{
		Location:    engine.OnDisk(r.path),
		BusyTimeout: r.conf.BusyTimeout,
		ForeignKeys: true,
		JournalMode: engine.JournalModeWAL,
		Logger:      r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.path, err)
	}

	conn.TraceEvent(0, r.trace.Observe)
	return conn, nil
}

// runAll executes all benchmarks, and returns results.
//
// It recreates the schema before each benchmark.
func (r *runner) runAll(ctx context.Context) ([]benchmarkResult, error) {
	benchs := []benchmark{
		runBenchmarkTransaction,
		runBenchmarkBaseline,
		runBenchmarkSavepoint,
		runBenchmarkRead,
		runBenchmarkConcurrent,
	}

	var results []benchmarkResult

	for _, bench := range benchs {
		if err := r.recreateSchema(); err != nil {
			return nil, err
		}

		res, err := bench(ctx, r)
		if err != nil {
			return nil, err
		}
		r.logger.DebugNs(log.NsBench, "benchmark finished", log.KV{
			"name":     res.Name,
			"duration": res.Duration.String(),
		})
		results = append(results, res)
	}

	return results, nil
}

func (r *runner) recreateSchema() error {
	conn, err := r.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := recreateSchema(conn); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}
	return nil
}

func (r *runner) printResults(results []benchmarkResult) {
	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Name", "Reads", "Writes", "Rollbacks", "Busy Retries", "Duration"})

	for _, res := range results {
		tw.AppendRow(table.Row{
			res.Name,
			numutil.IntWithCommas(res.TotalReads),
			numutil.IntWithCommas(res.TotalWrites),
			numutil.IntWithCommas(res.Rollbacks),
			numutil.IntWithCommas(res.BusyRetries),
			res.Duration.Round(time.Millisecond),
		})
	}

	fmt.Fprintln(r.out, tw.Render())
}

// printMetrics prints what the connections reported through their trace
// events over all benchmarks.
func (r *runner) printMetrics() error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Metric", "Labels", "Value"})

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}

			var val string
			switch {
			case m.GetCounter() != nil:
				val = numutil.IntWithCommas(int64(m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				val = fmt.Sprintf("%s samples, %s total",
					numutil.IntWithCommas(h.GetSampleCount()),
					time.Duration(h.GetSampleSum()*float64(time.Second)).Round(time.Millisecond))
			default:
				continue
			}

			tw.AppendRow(table.Row{mf.GetName(), labels, val})
		}
	}

	fmt.Fprintln(r.out, tw.Render())
	return nil
}
