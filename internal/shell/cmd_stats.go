package shell

import (
	"fmt"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nsqlite/litebind/internal/styled"
	"github.com/nsqlite/litebind/internal/util/numutil"
)

func (s *Shell) printStats(minutes int) {
	snap := s.stats.Snapshot()

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Minute (UTC)", "Reads", "Writes", "Begins", "Commits", "Rollbacks", "Savepoints", "Rows"})

	rows := []table.Row{}
	for i, stat := range snap.Minutes {
		if i >= minutes {
			break
		}

		minute, err := time.Parse(time.RFC3339, stat.Minute)
		if err != nil {
			continue
		}

		rows = append(rows, table.Row{
			minute.Format("2006-01-02 15:04"),
			numutil.IntWithCommas(stat.Reads),
			numutil.IntWithCommas(stat.Writes),
			numutil.IntWithCommas(stat.Begins),
			numutil.IntWithCommas(stat.Commits),
			numutil.IntWithCommas(stat.Rollbacks),
			numutil.IntWithCommas(stat.Savepoints),
			numutil.IntWithCommas(stat.Rows),
		})
	}
	slices.Reverse(rows)
	tw.AppendRows(rows)

	tw.AppendFooter(table.Row{
		"Total",
		numutil.IntWithCommas(snap.Totals.Reads),
		numutil.IntWithCommas(snap.Totals.Writes),
		numutil.IntWithCommas(snap.Totals.Begins),
		numutil.IntWithCommas(snap.Totals.Commits),
		numutil.IntWithCommas(snap.Totals.Rollbacks),
		numutil.IntWithCommas(snap.Totals.Savepoints),
		numutil.IntWithCommas(snap.Totals.Rows),
	})

	fmt.Fprintln(s.out, tw.Render())
	styled.DimmedColor().Fprintf(s.out, "Showing the last %d minutes of stats\n", minutes)
	styled.DimmedColor().Fprintf(s.out, "Uptime: %s\n", snap.Uptime)
	if snap.LastStatement != "" {
		styled.DimmedColor().Fprintf(s.out, "Last statement: %s\n", snap.LastStatement)
	}
	fmt.Fprintln(s.out)
}
