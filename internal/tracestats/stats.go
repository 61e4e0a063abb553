// Package tracestats keeps per-minute counters of what a connection runs,
// fed by its trace events.
package tracestats

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/nsqlite/litebind/internal/util/syncutil"
)

// Retention is how long per-minute counters are kept.
const Retention = 24 * time.Hour

const cleanupInterval = 10 * time.Second

// Counters holds the counts for one minute, or for the whole lifetime of
// a Stats.
type Counters struct {
	All        int64         `json:"all"`
	Reads      int64         `json:"reads"`
	Writes     int64         `json:"writes"`
	Begins     int64         `json:"begins"`
	Commits    int64         `json:"commits"`
	Rollbacks  int64         `json:"rollbacks"`
	Savepoints int64         `json:"savepoints"`
	Rows       int64         `json:"rows"`
	Elapsed    time.Duration `json:"elapsed"`
}

func (c *Counters) count(kind Kind) {
	c.All++
	switch kind {
	case KindRead:
		c.Reads++
	case KindWrite:
		c.Writes++
	case KindBegin:
		c.Begins++
	case KindCommit:
		c.Commits++
	case KindRollback:
		c.Rollbacks++
	case KindSavepoint:
		c.Savepoints++
	}
}

// Minute links a minute (RFC3339, UTC) with its counters.
type Minute struct {
	Minute string `json:"minute"`
	Counters
}

// Snapshot is a consistent copy of a Stats.
type Snapshot struct {
	StartedAt     string   `json:"startedAt"`
	Uptime        string   `json:"uptime"`
	LastStatement string   `json:"lastStatement"`
	Totals        Counters `json:"totals"`
	// Minutes are sorted newest first.
	Minutes []Minute `json:"minutes"`
}

// Stats counts statements, rows and run time per minute.
//
// Observe is meant to be registered as a connection's trace handler,
// alone or through sqlite.MultiTrace. A Stats may be read from other
// goroutines while it is fed.
type Stats struct {
	mu      sync.Mutex
	minutes map[string]Counters
	totals  Counters

	startedAt     *syncutil.AtomicTime
	lastStatement *syncutil.AtomicString

	now         func() time.Time
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New creates a Stats and starts a background worker that drops minutes
// older than Retention every 10 seconds. Close stops it.
func New() *Stats {
	s := newStats(time.Now)
	go s.runCleanupWorker()
	return s
}

func newStats(now func() time.Time) *Stats {
	return &Stats{
		minutes:       map[string]Counters{},
		startedAt:     syncutil.NewAtomicTime(now().UTC()),
		lastStatement: syncutil.NewAtomicString(""),
		now:           now,
		stopCleanup:   make(chan struct{}),
	}
}

// Close stops the background cleanup worker.
func (s *Stats) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *Stats) runCleanupWorker() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// minuteKey returns the current minute in RFC3339 (UTC).
func (s *Stats) minuteKey() string {
	return s.now().UTC().Truncate(time.Minute).Format(time.RFC3339)
}

func (s *Stats) update(fn func(*Counters)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.minuteKey()
	current := s.minutes[key]
	fn(&current)
	s.minutes[key] = current

	fn(&s.totals)
}

// cleanup removes minutes older than Retention.
func (s *Stats) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-Retention)
	for key := range s.minutes {
		parsed, err := time.Parse(time.RFC3339, key)
		if err != nil || parsed.Before(cutoff) {
			delete(s.minutes, key)
		}
	}
}

// Observe counts one trace event.
func (s *Stats) Observe(ev sqlite.TraceEvent) {
	switch e := ev.(type) {
	case sqlite.StatementBegin:
		kind := Classify(e.SQL, e.ReadOnly)
		s.lastStatement.Store(e.ExpandedSQL)
		s.update(func(c *Counters) { c.count(kind) })
	case sqlite.RowProduced:
		s.update(func(c *Counters) { c.Rows++ })
	case sqlite.ProfileComplete:
		s.update(func(c *Counters) { c.Elapsed += e.Elapsed })
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	minutes := make([]Minute, 0, len(s.minutes))
	for key, c := range s.minutes {
		minutes = append(minutes, Minute{Minute: key, Counters: c})
	}
	sort.Slice(minutes, func(i, j int) bool {
		return minutes[i].Minute > minutes[j].Minute
	})

	startedAt := s.startedAt.Load()
	return Snapshot{
		StartedAt:     startedAt.Format(time.RFC3339),
		Uptime:        s.now().Sub(startedAt).Round(time.Second).String(),
		LastStatement: s.lastStatement.Load(),
		Totals:        s.totals,
		Minutes:       minutes,
	}
}

// MarshalJSON encodes the current Snapshot.
func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}
