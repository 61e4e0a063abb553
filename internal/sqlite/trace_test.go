package sqlite

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// describe flattens events so sequences compare without timings.
func describe(ev TraceEvent) string {
	switch e := ev.(type) {
	case StatementBegin:
		return "begin " + e.ExpandedSQL
	case ProfileComplete:
		return "profile " + e.ExpandedSQL
	case RowProduced:
		return "row " + e.ExpandedSQL
	case ConnectionClosed:
		return "close"
	default:
		return fmt.Sprintf("unknown %T", ev)
	}
}

func TestTrace(t *testing.T) {
	t.Run("EventOrder", func(t *testing.T) {
		conn, err := Open(Config{})
		require.NoError(t, err)
		require.NoError(t, conn.Execute("CREATE TABLE numbers(n INTEGER); INSERT INTO numbers VALUES (1), (2);"))

		var events []string
		conn.TraceEvent(0, func(ev TraceEvent) {
			events = append(events, describe(ev))
		})

		stmt, err := conn.Prepare("SELECT n FROM numbers WHERE n > ? ORDER BY n")
		require.NoError(t, err)
		require.NoError(t, stmt.Bind(0))
		_, err = stmt.All()
		require.NoError(t, err)
		require.NoError(t, conn.Close())

		const sql = "SELECT n FROM numbers WHERE n > 0 ORDER BY n"
		assert.Equal(t, []string{
			"begin " + sql,
			"row " + sql,
			"row " + sql,
			"profile " + sql,
			"close",
		}, events)
	})

	t.Run("Mask", func(t *testing.T) {
		conn := openNumbers(t, 2)

		var events []string
		conn.TraceEvent(TraceRow|TraceClose, func(ev TraceEvent) {
			events = append(events, describe(ev))
		})

		_, err := conn.Select("SELECT n FROM numbers")
		require.NoError(t, err)
		assert.Equal(t, []string{"row SELECT n FROM numbers", "row SELECT n FROM numbers"}, events)
	})

	t.Run("ProfileOnResetAndError", func(t *testing.T) {
		conn := openNumbers(t, 3)

		var profiles []ProfileComplete
		conn.TraceEvent(TraceProfile, func(ev TraceEvent) {
			profiles = append(profiles, ev.(ProfileComplete))
		})

		stmt, err := conn.Prepare("SELECT n FROM numbers")
		require.NoError(t, err)
		_, err = stmt.Step()
		require.NoError(t, err)
		require.NoError(t, stmt.Reset())
		require.NoError(t, stmt.Reset())
		require.Len(t, profiles, 1)
		assert.GreaterOrEqual(t, profiles[0].Seconds(), 0.0)

		assert.Error(t, conn.Run("SELECT abs(?)", int64(math.MinInt64)))
		assert.Len(t, profiles, 2)
	})

	t.Run("SimpleTrace", func(t *testing.T) {
		conn := openTest(t, Config{})

		var traced []string
		conn.Trace(func(sql string) {
			traced = append(traced, sql)
		})
		require.NoError(t, conn.Run("SELECT ?, :name", 1, "x"))
		require.NoError(t, conn.Run("SELECT :v", Named{"v": 2}))

		conn.Trace(nil)
		require.NoError(t, conn.Run("SELECT 3"))

		assert.Equal(t, []string{"SELECT 1, 'x'", "SELECT 2"}, traced)
	})

	t.Run("SingleRegistration", func(t *testing.T) {
		conn := openTest(t, Config{})

		var first, second int
		conn.TraceEvent(0, func(TraceEvent) { first++ })
		conn.TraceEvent(0, func(TraceEvent) { second++ })
		require.NoError(t, conn.Execute("SELECT 1"))

		assert.Zero(t, first)
		assert.Equal(t, 2, second)
	})

	t.Run("MultiTrace", func(t *testing.T) {
		conn := openTest(t, Config{})

		var a, b []string
		conn.TraceEvent(TraceStatement, MultiTrace(
			func(ev TraceEvent) { a = append(a, describe(ev)) },
			nil,
			func(ev TraceEvent) { b = append(b, describe(ev)) },
		))
		require.NoError(t, conn.Execute("SELECT 1"))

		assert.Equal(t, []string{"begin SELECT 1"}, a)
		assert.Equal(t, a, b)
	})
}
