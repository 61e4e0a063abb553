package engine

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nsqlite/litebind/internal/sqlerr"
	"github.com/nsqlite/litebind/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lib "modernc.org/sqlite/lib"
)

func TestSQLite(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, conn.Close())
	}()

	err = conn.Exec(`
		CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, score REAL, data BLOB);
		CREATE TABLE dated (at DATETIME, flag BOOLEAN);
	`)
	require.NoError(t, err)

	t.Run("Prepare", func(t *testing.T) {
		stmt, err := conn.Prepare("SELECT id, name AS label, score FROM test WHERE id = ?")
		require.NoError(t, err)
		defer stmt.Finalize()

		assert.Equal(t, 1, stmt.ParamCount())
		assert.Equal(t, 3, stmt.ColumnCount())
		assert.Equal(t, "id", stmt.ColumnName(0))
		assert.Equal(t, "label", stmt.ColumnName(1))
		assert.Equal(t, "", stmt.ColumnName(7))
		assert.Equal(t, "integer", stmt.ColumnDeclType(0))
		assert.Equal(t, "real", stmt.ColumnDeclType(2))
		assert.True(t, stmt.ReadOnly())
	})

	t.Run("PrepareError", func(t *testing.T) {
		_, err := conn.Prepare("SELEC 1")
		var engErr *sqlerr.EngineError
		require.ErrorAs(t, err, &engErr)
		assert.Equal(t, sqlerr.CodeError, engErr.Code)
		assert.Contains(t, engErr.Message, "syntax error")

		_, err = conn.Prepare("  -- nothing here\n")
		require.ErrorAs(t, err, &engErr)
		assert.Equal(t, sqlerr.CodeMisuse, engErr.Code)
	})

	t.Run("BindStepColumn", func(t *testing.T) {
		insert, err := conn.Prepare("INSERT INTO test (name, score, data) VALUES (:name, :score, :data)")
		require.NoError(t, err)
		defer insert.Finalize()

		assert.Equal(t, 3, insert.ParamCount())
		assert.False(t, insert.ReadOnly())
		assert.Equal(t, 2, insert.ParamIndex("score"))
		assert.Equal(t, 2, insert.ParamIndex(":score"))
		assert.Equal(t, ":data", insert.ParamName(3))
		assert.Equal(t, 0, insert.ParamIndex("missing"))

		name := uuid.NewString()
		require.NoError(t, insert.Bind(1, value.Text(name)))
		require.NoError(t, insert.Bind(2, value.Real(9.5)))
		require.NoError(t, insert.Bind(3, value.Blob(nil)))
		assert.Equal(t, "INSERT INTO test (name, score, data) VALUES ('"+name+"', 9.5, x'')", insert.ExpandedSQL())

		hasRow, err := insert.Step()
		require.NoError(t, err)
		assert.False(t, hasRow)

		var engErr *sqlerr.EngineError
		require.ErrorAs(t, insert.Bind(4, value.Null()), &engErr)
		assert.Equal(t, sqlerr.CodeRange, engErr.Code)

		sel, err := conn.Prepare("SELECT name, score, data, typeof(data) FROM test WHERE name = ?")
		require.NoError(t, err)
		defer sel.Finalize()
		require.NoError(t, sel.Bind(1, value.Text(name)))

		hasRow, err = sel.Step()
		require.NoError(t, err)
		require.True(t, hasRow)
		assert.True(t, value.Text(name).Equal(sel.Column(0)))
		assert.True(t, value.Real(9.5).Equal(sel.Column(1)))
		assert.True(t, value.Blob(nil).Equal(sel.Column(2)))
		assert.True(t, value.Text("blob").Equal(sel.Column(3)))
		assert.True(t, sel.Column(42).IsNull())

		hasRow, err = sel.Step()
		require.NoError(t, err)
		assert.False(t, hasRow)
		assert.True(t, sel.Column(0).IsNull())
	})

	t.Run("StepAfterDoneRestarts", func(t *testing.T) {
		stmt, err := conn.Prepare("SELECT 1 UNION ALL SELECT 2")
		require.NoError(t, err)
		defer stmt.Finalize()

		for round := 0; round < 2; round++ {
			var got []int64
			for {
				hasRow, err := stmt.Step()
				require.NoError(t, err)
				if !hasRow {
					break
				}
				i, _ := stmt.Column(0).AsInt64()
				got = append(got, i)
			}
			assert.Equal(t, []int64{1, 2}, got)
		}
	})

	t.Run("ResetAndClearBindings", func(t *testing.T) {
		stmt, err := conn.Prepare("SELECT ?")
		require.NoError(t, err)
		defer stmt.Finalize()

		require.NoError(t, stmt.Bind(1, value.Integer(5)))
		hasRow, err := stmt.Step()
		require.NoError(t, err)
		require.True(t, hasRow)
		assert.True(t, value.Integer(5).Equal(stmt.Column(0)))

		require.NoError(t, stmt.Reset())
		stmt.ClearBindings()
		hasRow, err = stmt.Step()
		require.NoError(t, err)
		require.True(t, hasRow)
		assert.True(t, stmt.Column(0).IsNull())
	})

	t.Run("DeclaredTypesKeepStoredValues", func(t *testing.T) {
		require.NoError(t, conn.Exec(`
			INSERT INTO dated VALUES ('1973-11-29T21:33:09.000', 1);
			INSERT INTO dated VALUES (5, -1);
			INSERT INTO dated VALUES ('hello', 2.5);
		`))

		stmt, err := conn.Prepare("SELECT at, flag FROM dated ORDER BY rowid")
		require.NoError(t, err)
		defer stmt.Finalize()

		want := [][2]value.Value{
			{value.Text("1973-11-29T21:33:09.000"), value.Integer(1)},
			{value.Integer(5), value.Integer(-1)},
			{value.Text("hello"), value.Real(2.5)},
		}
		for _, w := range want {
			hasRow, err := stmt.Step()
			require.NoError(t, err)
			require.True(t, hasRow)
			assert.True(t, w[0].Equal(stmt.Column(0)), stmt.Column(0).String())
			assert.True(t, w[1].Equal(stmt.Column(1)), stmt.Column(1).String())
		}

		assert.Equal(t, "datetime", stmt.ColumnDeclType(0))
		assert.Equal(t, "boolean", stmt.ColumnDeclType(1))
	})

	t.Run("StatementText", func(t *testing.T) {
		require.NoError(t, conn.Exec("CREATE TABLE audit (price INTEGER, name TEXT)"))

		const trigger = `CREATE TRIGGER audit_fix AFTER INSERT ON audit BEGIN
			UPDATE audit SET price = CASE WHEN new.price < 0 THEN 0 ELSE new.price END;
			UPDATE audit SET name = 'z';
		END`
		stmt, err := conn.Prepare(trigger)
		require.NoError(t, err)
		assert.Equal(t, trigger, stmt.SQL())
		assert.Equal(t, trigger, stmt.ExpandedSQL())
		hasRow, err := stmt.Step()
		require.NoError(t, err)
		assert.False(t, hasRow)
		require.NoError(t, stmt.Finalize())

		first, err := conn.Prepare("SELECT 1; SELECT 2")
		require.NoError(t, err)
		defer first.Finalize()
		assert.Equal(t, "SELECT 1;", first.SQL())

		quoted, err := conn.Prepare(`SELECT ':not_a_param', ? -- and ?
			/* :nor_this */`)
		require.NoError(t, err)
		defer quoted.Finalize()
		assert.Equal(t, 1, quoted.ParamCount())
		assert.Equal(t, 0, quoted.ParamIndex("not_a_param"))
	})

	t.Run("ParamNames", func(t *testing.T) {
		stmt, err := conn.Prepare("SELECT :a, @b, $c, ?5, ?, :a")
		require.NoError(t, err)
		defer stmt.Finalize()

		assert.Equal(t, 6, stmt.ParamCount())
		tests := []struct {
			name  string
			index int
		}{
			{"a", 1},
			{":a", 1},
			{"b", 2},
			{"@b", 2},
			{"$c", 3},
			{"5", 5},
			{"?5", 5},
			{":b", 0},
			{"", 0},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.index, stmt.ParamIndex(tt.name), tt.name)
		}

		assert.Equal(t, ":a", stmt.ParamName(1))
		assert.Equal(t, "?5", stmt.ParamName(5))
		assert.Equal(t, "", stmt.ParamName(6))
		assert.Equal(t, "", stmt.ParamName(7))
	})

	t.Run("ExecScript", func(t *testing.T) {
		require.NoError(t, conn.Exec(`
			CREATE TABLE script (v INTEGER);;
			-- a comment between statements
			INSERT INTO script VALUES (1);
			/* and a block */ INSERT INTO script VALUES (2);
			SELECT * FROM script;
		`))

		stmt, err := conn.Prepare("SELECT count(*) FROM script")
		require.NoError(t, err)
		defer stmt.Finalize()
		hasRow, err := stmt.Step()
		require.NoError(t, err)
		require.True(t, hasRow)
		assert.True(t, value.Integer(2).Equal(stmt.Column(0)))

		err = conn.Exec("INSERT INTO script VALUES (3); INSERT INTO nowhere VALUES (4); INSERT INTO script VALUES (5)")
		var engErr *sqlerr.EngineError
		require.ErrorAs(t, err, &engErr)
		assert.Contains(t, engErr.Message, "no such table")

		require.NoError(t, stmt.Reset())
		_, err = stmt.Step()
		require.NoError(t, err)
		assert.True(t, value.Integer(3).Equal(stmt.Column(0)))
	})

	t.Run("StepErrorResets", func(t *testing.T) {
		stmt, err := conn.Prepare("SELECT abs(?)")
		require.NoError(t, err)
		defer stmt.Finalize()

		require.NoError(t, stmt.Bind(1, value.Integer(math.MinInt64)))
		_, err = stmt.Step()
		var engErr *sqlerr.EngineError
		require.ErrorAs(t, err, &engErr)
		assert.Equal(t, sqlerr.CodeError, engErr.Code)
		assert.Contains(t, engErr.Message, "integer overflow")

		require.NoError(t, stmt.Bind(1, value.Integer(-3)))
		hasRow, err := stmt.Step()
		require.NoError(t, err)
		require.True(t, hasRow)
		assert.True(t, value.Integer(3).Equal(stmt.Column(0)))
	})

	t.Run("ConstraintError", func(t *testing.T) {
		require.NoError(t, conn.Exec("CREATE TABLE uniq (v TEXT UNIQUE); INSERT INTO uniq VALUES ('a')"))
		err := conn.Exec("INSERT INTO uniq VALUES ('a')")
		assert.True(t, sqlerr.IsConstraint(err))
	})

	t.Run("AutoCommit", func(t *testing.T) {
		assert.True(t, conn.AutoCommit())
		require.NoError(t, conn.Exec("BEGIN"))
		assert.False(t, conn.AutoCommit())
		require.NoError(t, conn.Exec("ROLLBACK"))
		assert.True(t, conn.AutoCommit())
	})

	t.Run("Collation", func(t *testing.T) {
		require.NoError(t, conn.SetCollation("reverse", func(a, b string) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}))

		stmt, err := conn.Prepare("SELECT v FROM (SELECT 'a' AS v UNION ALL SELECT 'c' UNION ALL SELECT 'b') ORDER BY v COLLATE reverse")
		require.NoError(t, err)
		defer stmt.Finalize()

		var got []string
		for {
			hasRow, err := stmt.Step()
			require.NoError(t, err)
			if !hasRow {
				break
			}
			s, _ := stmt.Column(0).AsText()
			got = append(got, s)
		}
		assert.Equal(t, []string{"c", "b", "a"}, got)
	})
}

func TestCollationRelease(t *testing.T) {
	before := collations.len()

	conn, err := Open(Config{})
	require.NoError(t, err)
	require.NoError(t, conn.SetCollation("nocase_len", func(a, b string) int { return len(a) - len(b) }))
	require.NoError(t, conn.SetCollation("nocase_len", func(a, b string) int { return len(b) - len(a) }))
	assert.Equal(t, before+1, collations.len())

	require.NoError(t, conn.Close())
	assert.Equal(t, before, collations.len())
	assert.NoError(t, conn.Close())
}

func TestMultiThreaded(t *testing.T) {
	conn, err := Open(Config{MultiThreaded: true, ForeignKeys: true, JournalMode: JournalModeMemory})
	require.NoError(t, err)
	defer conn.Close()

	stmt, err := conn.Prepare("PRAGMA foreign_keys")
	require.NoError(t, err)
	defer stmt.Finalize()

	hasRow, err := stmt.Step()
	require.NoError(t, err)
	require.True(t, hasRow)
	assert.True(t, value.Integer(1).Equal(stmt.Column(0)))
}

func TestBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.sqlite")

	first, err := Open(Config{Location: OnDisk(path)})
	require.NoError(t, err)
	defer first.Close()

	second, err := Open(Config{Location: OnDisk(path), BusyTimeout: -1})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Exec("CREATE TABLE t (v INTEGER)"))
	require.NoError(t, first.Exec("BEGIN EXCLUSIVE"))

	err = second.Exec("INSERT INTO t VALUES (1)")
	assert.True(t, sqlerr.IsBusy(err), "got %v", err)

	require.NoError(t, first.Exec("COMMIT"))
	assert.NoError(t, second.Exec("INSERT INTO t VALUES (1)"))
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.sqlite")

	rw, err := Open(Config{Location: OnDisk(path)})
	require.NoError(t, err)
	require.NoError(t, rw.Exec("CREATE TABLE t (v INTEGER)"))
	require.NoError(t, rw.Close())

	ro, err := Open(Config{Location: OnDisk(path), ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	err = ro.Exec("INSERT INTO t VALUES (1)")
	var engErr *sqlerr.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, sqlerr.CodeReadOnly, engErr.Code)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{},
			want: "file::memory:?_busy_timeout=5000&_mutex=full&cache=private",
		},
		{
			name: "on disk read only",
			cfg:  Config{Location: OnDisk("/tmp/a?b.db"), ReadOnly: true, BusyTimeout: -1},
			want: "file:/tmp/a%3fb.db?_busy_timeout=0&_mutex=full&cache=private&mode=ro",
		},
		{
			name: "on disk tuned",
			cfg: Config{
				Location:      OnDisk("data.db"),
				MultiThreaded: true,
				SharedCache:   true,
				BusyTimeout:   time.Second,
				ForeignKeys:   true,
				JournalMode:   JournalModeWAL,
			},
			want: "file:data.db?_busy_timeout=1000&_foreign_keys=true&_journal_mode=WAL&_mutex=no&cache=shared&mode=rwc",
		},
		{
			name: "temporary",
			cfg:  Config{Location: Temporary()},
			want: "file:?_busy_timeout=5000&_mutex=full&cache=private",
		},
		{
			name: "named memory read only",
			cfg:  Config{Location: NamedMemory("shared"), ReadOnly: true},
			want: "file:shared?_busy_timeout=5000&_mutex=full&_query_only=true&cache=shared&mode=memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestURI(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		uri   string
		flags int32
	}{
		{
			name:  "defaults",
			cfg:   Config{},
			uri:   "file::memory:?cache=private",
			flags: lib.SQLITE_OPEN_URI | lib.SQLITE_OPEN_READWRITE | lib.SQLITE_OPEN_CREATE | lib.SQLITE_OPEN_FULLMUTEX,
		},
		{
			name:  "on disk read only",
			cfg:   Config{Location: OnDisk("/tmp/a#b.db"), ReadOnly: true, MultiThreaded: true},
			uri:   "file:/tmp/a%23b.db?cache=private&mode=ro",
			flags: lib.SQLITE_OPEN_URI | lib.SQLITE_OPEN_READONLY | lib.SQLITE_OPEN_NOMUTEX,
		},
		{
			name:  "named memory read only",
			cfg:   Config{Location: NamedMemory("shared"), ReadOnly: true},
			uri:   "file:shared?cache=shared&mode=memory",
			flags: lib.SQLITE_OPEN_URI | lib.SQLITE_OPEN_READWRITE | lib.SQLITE_OPEN_CREATE | lib.SQLITE_OPEN_FULLMUTEX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.uri, tt.cfg.URI())
			assert.Equal(t, tt.flags, tt.cfg.openFlags())
		})
	}

	t.Run("pragmas", func(t *testing.T) {
		assert.Empty(t, Config{}.pragmas())
		assert.Equal(t, []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA query_only = ON",
		}, Config{ForeignKeys: true, JournalMode: JournalModeWAL, ReadOnly: true}.pragmas())
		assert.Empty(t, Config{Location: OnDisk("x.db"), ReadOnly: true}.pragmas())
	})
}

func TestLocation(t *testing.T) {
	assert.Equal(t, InMemory(), ParseLocation(":memory:"))
	assert.Equal(t, Temporary(), ParseLocation(""))
	assert.Equal(t, OnDisk("x.db"), ParseLocation("x.db"))

	assert.True(t, InMemory().IsMemory())
	assert.True(t, NamedMemory("n").IsMemory())
	assert.False(t, Temporary().IsMemory())
	assert.Equal(t, "x.db", OnDisk("x.db").Path())
	assert.Equal(t, "", InMemory().Path())
	assert.Equal(t, "file:n?mode=memory&cache=shared", NamedMemory("n").Filename())
	assert.Equal(t, ":memory:", InMemory().Filename())
}

func TestParseJournalMode(t *testing.T) {
	mode, err := ParseJournalMode("wal")
	require.NoError(t, err)
	assert.Equal(t, JournalModeWAL, mode)

	_, err = ParseJournalMode("fast")
	assert.Error(t, err)
}
