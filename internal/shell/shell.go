// Package shell is an interactive SQL shell over a sqlite.Connection.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/sqlite"
	"github.com/nsqlite/litebind/internal/styled"
	"github.com/nsqlite/litebind/internal/tracestats"
	"github.com/peterh/liner"
)

// Shell reads commands from the terminal and runs them on one connection.
type Shell struct {
	conf    Config
	conn    *sqlite.Connection
	stats   *tracestats.Stats
	logger  log.Logger
	out     io.Writer
	ctx     context.Context
	stop    context.CancelFunc
	tracing bool
}

// New opens the connection described by conf. Output goes to out.
func New(
	ctx context.Context,
	stop context.CancelFunc,
	conf Config,
	logger log.Logger,
	out io.Writer,
) (*Shell, error) {
	sqliteConf := conf.SQLiteConfig()
	sqliteConf.Logger = logger

	conn, err := sqlite.Open(sqliteConf)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", sqliteConf.Location, err)
	}

	s := &Shell{
		conf:   conf,
		conn:   conn,
		stats:  tracestats.New(),
		logger: logger,
		out:    out,
		ctx:    ctx,
		stop:   stop,
	}
	conn.TraceEvent(0, sqlite.MultiTrace(s.stats.Observe, s.printTrace))

	return s, nil
}

// Start runs the prompt loop until the user quits or the context is done.
func (s *Shell) Start() error {
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "Connected to %s\n", s.conn.Location())
	fmt.Fprintln(s.out, `Enter ".help" for usage hints and ".quit" or "CTRL+C" to quit`)
	fmt.Fprintln(s.out)

	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
			input := s.prompt()
			if input == "" {
				continue
			}
			if quit := s.Exec(input); quit {
				s.Shutdown()
				return nil
			}
		}
	}
}

// Exec runs one line of input, a dot command or SQL, and reports whether
// the user asked to quit.
func (s *Shell) Exec(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	if input == "exit" || input == "quit" {
		return true
	}
	if input == "help" || input == "clear" {
		input = "." + input
	}

	if strings.HasPrefix(input, ".") {
		return s.runDotCommand(input)
	}

	s.cmdQuery(input)
	return false
}

// Shutdown stops the shell.
func (s *Shell) Shutdown() {
	s.stop()
}

// Close closes the connection and stops the stats worker.
func (s *Shell) Close() error {
	s.stats.Close()
	return s.conn.Close()
}

func (s *Shell) printTrace(ev sqlite.TraceEvent) {
	if !s.tracing {
		return
	}

	switch e := ev.(type) {
	case sqlite.StatementBegin:
		styled.DimmedColor().Fprintf(s.out, "-- %s\n", e.ExpandedSQL)
	case sqlite.ProfileComplete:
		styled.DimmedColor().Fprintf(s.out, "-- %s\n", e.Elapsed)
	}
}

func (s *Shell) printError(err error) {
	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Error"})
	tw.AppendRow(table.Row{cleanError(err)})
	fmt.Fprintln(s.out, tw.Render())
}

// cleanError drops the wrapping added on the way up, so the engine's
// message is what the user reads.
func cleanError(err error) string {
	msg := err.Error()
	for _, prefix := range []string{
		"failed to prepare statement: ",
		"failed to step statement: ",
		"failed to execute query: ",
	} {
		msg = strings.ReplaceAll(msg, prefix, "")
	}
	return strings.TrimSpace(msg)
}

// prompt shows the prompt and reads the input from the user.
func (s *Shell) prompt() string {
	label := "litebind> "
	if s.conn.InTransaction() {
		label = "litebind(tx)> "
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(cmdHelpCompleter)

	if file, err := os.Open(s.conf.HistoryPath); err == nil {
		_, _ = line.ReadHistory(file)
		file.Close()
	}

	input, err := line.Prompt(label)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out, "Exiting...")
			return ".quit"
		}
		s.logger.WarnNs(log.NsShell, "failed to read input", log.KV{"error": err.Error()})
		return ""
	}

	line.AppendHistory(input)
	if file, err := os.Create(s.conf.HistoryPath); err == nil {
		_, _ = line.WriteHistory(file)
		file.Close()
	}

	return strings.TrimSpace(input)
}
