package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqlite/litebind/internal/log"
	"github.com/nsqlite/litebind/internal/version"
)

// Run runs the litebind shell.
func Run(ctx context.Context) error {
	conf := MustParse(os.Args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(version.ShellVersion())

	logger := log.NewLoggerWithLevel(os.Stderr, slog.LevelWarn)
	if conf.Verbose {
		logger = log.NewLoggerWithLevel(os.Stderr, slog.LevelDebug)
	}

	sh, err := New(ctx, stop, conf, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := sh.Close(); err != nil {
			logger.ErrorNs(log.NsShell, "failed to close the connection", log.KV{"error": err.Error()})
		}
	}()

	go func() {
		if err := sh.Start(); err != nil {
			fmt.Println(err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Printf("\nGoodbye!\n\n")
	return nil
}
