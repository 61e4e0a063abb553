package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nsqlite/litebind/internal/engine"
	"github.com/nsqlite/litebind/internal/quote"
	"github.com/nsqlite/litebind/internal/styled"
	"github.com/nsqlite/litebind/internal/util/sysutil"
)

type dotCmd struct {
	name         string
	autocomplete string
	help         string
	args         string
}

func cmdHelpCommands() []dotCmd {
	cmds := []dotCmd{
		{name: ".count [table_name]", autocomplete: ".count", help: "Count the number of rows in a table", args: "table_name (required)"},
		{name: ".columns [table_name]", autocomplete: ".columns", help: "List all columns in a table", args: "table_name (required)"},
		{name: ".attach [path] [name]", autocomplete: ".attach", help: "Attach a database file (or :memory:) under a schema name", args: "path, name (required)"},
		{name: ".detach [name]", autocomplete: ".detach", help: "Detach an attached database", args: "name (required)"},
		{name: ".trace [on|off]", autocomplete: ".trace", help: "Print every statement as it runs, with its duration", args: "on or off (required)"},
		{name: ".stats [minutes]", autocomplete: ".stats", help: "Shows the statement stats of the last minutes", args: "minutes (optional, default 5)"},

		{name: ".tables", autocomplete: ".tables", help: "List all tables in the database"},
		{name: ".schema", autocomplete: ".schema", help: "List all schema in the database"},
		{name: ".clear", autocomplete: ".clear", help: "Clear the terminal screen"},
		{name: ".help", autocomplete: ".help", help: "Show the help message"},
		{name: ".quit", autocomplete: ".quit", help: "Exit the application"},
		{name: ".exit", autocomplete: ".exit", help: "Exit the application"},
		{name: "CTRL+c", help: "Exit the application"},
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].name < cmds[j].name
	})

	return cmds
}

func cmdHelpCompleter(line string) []string {
	suggestions := []string{
		"SELECT ",
		"SELECT * FROM ",
		"SELECT COUNT(*) FROM ",
		"INSERT INTO ",
		"UPDATE ",
		"DELETE FROM ",
		"CREATE TABLE ",
		"DROP TABLE ",
		"ALTER TABLE ",
		"BEGIN",
		"COMMIT",
		"ROLLBACK",
		"SAVEPOINT ",
		"RELEASE ",
	}

	for _, cmd := range cmdHelpCommands() {
		if cmd.autocomplete != "" {
			suggestions = append(suggestions, cmd.autocomplete)
		}
	}

	results := []string{}
	for _, suggestion := range suggestions {
		if strings.HasPrefix(strings.ToLower(suggestion), strings.ToLower(line)) {
			results = append(results, suggestion)
		}
	}

	return results
}

var errUsage = errors.New("wrong arguments, type .help for usage hints")

// runDotCommand runs a dot command and reports whether it asks to quit.
func (s *Shell) runDotCommand(input string) bool {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case ".quit", ".exit":
		return true
	case ".help":
		s.cmdHelp()
	case ".clear":
		sysutil.ClearTerminal(s.out)
	case ".tables":
		s.cmdQuery(`SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	case ".schema":
		s.cmdQuery(`SELECT type, name, sql FROM sqlite_schema WHERE sql IS NOT NULL ORDER BY type DESC, name`)
	case ".columns":
		err = s.withTable(args, func(table string) {
			s.cmdQuery("SELECT name, type, \"notnull\", dflt_value, pk FROM pragma_table_info(?)", table)
		})
	case ".count":
		err = s.withTable(args, func(table string) {
			s.cmdQuery("SELECT count(*) AS count FROM " + quote.Identifier(table))
		})
	case ".attach":
		err = s.cmdAttach(args)
	case ".detach":
		err = s.cmdDetach(args)
	case ".trace":
		err = s.cmdTrace(args)
	case ".stats":
		err = s.cmdStats(args)
	default:
		fmt.Fprintln(s.out, "Unknown command, type .help for usage hints")
	}

	if err != nil {
		s.printError(err)
	}
	return false
}

func (s *Shell) cmdHelp() {
	fmt.Fprintln(s.out, "Available commands:")

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Command", "Description", "Arguments"})
	for _, cmd := range cmdHelpCommands() {
		tw.AppendRow(table.Row{cmd.name, cmd.help, cmd.args})
	}

	fmt.Fprintln(s.out, tw.Render())
}

func (s *Shell) withTable(args []string, fn func(table string)) error {
	if len(args) != 1 {
		return errUsage
	}
	fn(args[0])
	return nil
}

func (s *Shell) cmdAttach(args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	location := engine.ParseLocation(args[0])
	if err := s.conn.AttachDatabase(location, args[1]); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Attached %s as %s\n", location, quote.Literal(args[1]))
	return nil
}

func (s *Shell) cmdDetach(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	if err := s.conn.DetachDatabase(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Detached %s\n", quote.Literal(args[0]))
	return nil
}

func (s *Shell) cmdTrace(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	switch strings.ToLower(args[0]) {
	case "on":
		s.tracing = true
	case "off":
		s.tracing = false
	default:
		return errUsage
	}

	styled.DimmedColor().Fprintf(s.out, "Tracing %s\n", strings.ToLower(args[0]))
	return nil
}

func (s *Shell) cmdStats(args []string) error {
	minutes := 5
	if len(args) > 1 {
		return errUsage
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errUsage
		}
		minutes = n
	}

	s.printStats(minutes)
	return nil
}
