package tracestats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sql      string
		readOnly bool
		want     Kind
	}{
		{"SELECT 1", true, KindRead},
		{"  pragma table_info(t)", true, KindRead},
		{"INSERT INTO t VALUES (1)", false, KindWrite},
		{"CREATE TABLE t(x)", false, KindWrite},
		{"BEGIN IMMEDIATE TRANSACTION", false, KindBegin},
		{"commit", false, KindCommit},
		{"END TRANSACTION", false, KindCommit},
		{"ROLLBACK", false, KindRollback},
		{"ROLLBACK TO SAVEPOINT 'a'", false, KindRollback},
		{"SAVEPOINT 'a'", false, KindSavepoint},
		{"RELEASE SAVEPOINT 'a'", false, KindSavepoint},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sql, tt.readOnly))
		})
	}
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func TestStats(t *testing.T) {
	t.Run("CountsPerMinute", func(t *testing.T) {
		clk := &clock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
		s := newStats(clk.Now)

		s.Observe(sqlite.StatementBegin{SQL: "SELECT 1", ExpandedSQL: "SELECT 1", ReadOnly: true})
		s.Observe(sqlite.RowProduced{ExpandedSQL: "SELECT 1"})
		s.Observe(sqlite.ProfileComplete{ExpandedSQL: "SELECT 1", Elapsed: 3 * time.Millisecond})

		clk.now = clk.now.Add(time.Minute)
		s.Observe(sqlite.StatementBegin{SQL: "INSERT INTO t VALUES (?)", ExpandedSQL: "INSERT INTO t VALUES (1)"})
		s.Observe(sqlite.ProfileComplete{ExpandedSQL: "INSERT INTO t VALUES (1)", Elapsed: time.Millisecond})
		s.Observe(sqlite.ConnectionClosed{})

		snap := s.Snapshot()
		assert.Equal(t, Counters{
			All: 2, Reads: 1, Writes: 1, Rows: 1, Elapsed: 4 * time.Millisecond,
		}, snap.Totals)
		assert.Equal(t, "INSERT INTO t VALUES (1)", snap.LastStatement)
		assert.Equal(t, "2025-01-02T03:04:05Z", snap.StartedAt)
		assert.Equal(t, "1m0s", snap.Uptime)

		require.Len(t, snap.Minutes, 2)
		assert.Equal(t, "2025-01-02T03:05:00Z", snap.Minutes[0].Minute)
		assert.Equal(t, int64(1), snap.Minutes[0].Writes)
		assert.Equal(t, "2025-01-02T03:04:00Z", snap.Minutes[1].Minute)
		assert.Equal(t, int64(1), snap.Minutes[1].Reads)
	})

	t.Run("Cleanup", func(t *testing.T) {
		clk := &clock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
		s := newStats(clk.Now)
		s.Observe(sqlite.StatementBegin{SQL: "SELECT 1", ReadOnly: true})

		clk.now = clk.now.Add(Retention + time.Hour)
		s.Observe(sqlite.StatementBegin{SQL: "SELECT 2", ReadOnly: true})
		s.cleanup()

		snap := s.Snapshot()
		assert.Len(t, snap.Minutes, 1)
		assert.Equal(t, int64(2), snap.Totals.Reads)
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		s := New()
		defer s.Close()
		s.Observe(sqlite.StatementBegin{SQL: "BEGIN"})

		b, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(b, &decoded))
		totals, ok := decoded["totals"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 1, totals["begins"])
		assert.Len(t, decoded["minutes"], 1)
	})

	t.Run("FedByConnection", func(t *testing.T) {
		conn, err := sqlite.Open(sqlite.Config{})
		require.NoError(t, err)
		defer conn.Close()

		s := New()
		defer s.Close()
		conn.TraceEvent(0, s.Observe)

		require.NoError(t, conn.Execute("CREATE TABLE t(x)"))
		err = conn.Transaction(sqlite.Deferred, func() error {
			return conn.Savepoint("sp", func() error {
				return conn.Run("INSERT INTO t VALUES (?), (?)", 1, 2)
			})
		})
		require.NoError(t, err)
		rows, err := conn.Select("SELECT x FROM t")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		totals := s.Snapshot().Totals
		assert.Equal(t, int64(1), totals.Begins)
		assert.Equal(t, int64(1), totals.Commits)
		assert.Equal(t, int64(2), totals.Savepoints)
		assert.Equal(t, int64(2), totals.Writes, "create and insert")
		assert.Equal(t, int64(1), totals.Reads)
		assert.Equal(t, int64(2), totals.Rows)
		assert.Equal(t, int64(7), totals.All)
	})

	t.Run("CloseTwice", func(t *testing.T) {
		s := New()
		s.Close()
		s.Close()
	})
}
