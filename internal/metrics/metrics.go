// Package metrics exposes a connection's trace events as Prometheus
// collectors.
package metrics

import (
	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/nsqlite/litebind/internal/tracestats"
	"github.com/prometheus/client_golang/prometheus"
)

// Keys for litebind metrics.
const (
	StatementsTotalKey   = "litebind_statements_total"
	RowsTotalKey         = "litebind_rows_total"
	StatementDurationKey = "litebind_statement_duration_seconds"
	ConnectionsClosedKey = "litebind_connections_closed_total"
	BusyRetriesTotalKey  = "litebind_busy_retries_total"
)

const statementKindLabel = "kind"

// durationBuckets spans 10µs to about 2.6s.
var durationBuckets = prometheus.ExponentialBuckets(0.00001, 4, 10)

// Trace holds the collectors fed by one or more connections.
type Trace struct {
	StatementsTotal   *prometheus.CounterVec
	RowsTotal         prometheus.Counter
	StatementDuration prometheus.Histogram
	ConnectionsClosed prometheus.Counter
	BusyRetriesTotal  prometheus.Counter
}

// NewTrace creates unregistered collectors. constLabels are attached to
// every series, e.g. to tell databases apart.
func NewTrace(constLabels prometheus.Labels) *Trace {
	return &Trace{
		StatementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        StatementsTotalKey,
			Help:        "Cumulative number of statements started, by kind.",
			ConstLabels: constLabels,
		}, []string{statementKindLabel}),
		RowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        RowsTotalKey,
			Help:        "Cumulative number of result rows produced.",
			ConstLabels: constLabels,
		}),
		StatementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        StatementDurationKey,
			Help:        "Wall clock time of each statement run.",
			ConstLabels: constLabels,
			Buckets:     durationBuckets,
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        ConnectionsClosedKey,
			Help:        "Cumulative number of traced connections closed.",
			ConstLabels: constLabels,
		}),
		BusyRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        BusyRetriesTotalKey,
			Help:        "Cumulative number of operations retried after SQLITE_BUSY.",
			ConstLabels: constLabels,
		}),
	}
}

// Collectors lists every collector of t.
func (t *Trace) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		t.StatementsTotal,
		t.RowsTotal,
		t.StatementDuration,
		t.ConnectionsClosed,
		t.BusyRetriesTotal,
	}
}

// Register registers every collector of t with reg.
func (t *Trace) Register(reg prometheus.Registerer) error {
	for _, c := range t.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one trace event. It is safe to share one Trace between
// connections used from different goroutines.
func (t *Trace) Observe(ev sqlite.TraceEvent) {
	switch e := ev.(type) {
	case sqlite.StatementBegin:
		kind := tracestats.Classify(e.SQL, e.ReadOnly)
		t.StatementsTotal.WithLabelValues(kind.Value).Inc()
	case sqlite.RowProduced:
		t.RowsTotal.Inc()
	case sqlite.ProfileComplete:
		t.StatementDuration.Observe(e.Seconds())
	case sqlite.ConnectionClosed:
		t.ConnectionsClosed.Inc()
	}
}

// ObserveBusyRetry counts one retry after a busy or locked database.
func (t *Trace) ObserveBusyRetry() {
	t.BusyRetriesTotal.Inc()
}
