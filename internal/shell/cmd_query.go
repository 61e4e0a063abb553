package shell

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nsqlite/litebind/internal/styled"
	"github.com/nsqlite/litebind/internal/util/numutil"
	"github.com/nsqlite/litebind/internal/value"
)

// cmdQuery prepares input and prints its rows, or the number of changed
// rows when the statement returns no columns.
func (s *Shell) cmdQuery(input string, args ...any) {
	stmt, err := s.conn.Prepare(input)
	if err != nil {
		s.printError(err)
		return
	}
	defer stmt.Close()

	if err := stmt.Bind(args...); err != nil {
		s.printError(err)
		return
	}

	if stmt.ColumnCount() == 0 {
		s.runWrite(stmt.Run)
		return
	}

	rows, err := stmt.All()
	if err != nil {
		s.printError(err)
		return
	}

	tw := styled.NewTableWriter()
	header := table.Row{}
	for _, col := range stmt.ColumnNames() {
		header = append(header, col)
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		cells := table.Row{}
		for _, v := range row.Values() {
			cells = append(cells, formatCell(v))
		}
		tw.AppendRow(cells)
	}

	fmt.Fprintln(s.out, tw.Render())
	styled.DimmedColor().Fprintf(s.out, "%s rows\n", numutil.IntWithCommas(len(rows)))
}

func (s *Shell) runWrite(run func() error) {
	if err := run(); err != nil {
		s.printError(err)
		return
	}

	changes, err := s.conn.Changes()
	if err != nil {
		s.printError(err)
		return
	}
	lastID, err := s.conn.LastInsertRowID()
	if err != nil {
		s.printError(err)
		return
	}

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"-", "Rows Affected", "Last Insert ID"})
	tw.AppendRow(table.Row{"OK", changes, lastID})
	fmt.Fprintln(s.out, tw.Render())
}

func formatCell(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return styled.Null()
	case value.KindBlob:
		return v.Literal()
	default:
		return v.String()
	}
}
