package sysutil

import (
	"io"
	"os/exec"
	"runtime"
)

// clearSequence moves the cursor home and erases the screen on ANSI
// terminals.
const clearSequence = "\033[H\033[2J"

// ClearTerminal clears the terminal screen that w is attached to. It runs
// the system's clear command when there is one and writes the ANSI clear
// sequence otherwise.
func ClearTerminal(w io.Writer) {
	clearTerminal(w, runtime.GOOS)
}

func clearTerminal(w io.Writer, goos string) {
	if cmd := clearCommand(goos); cmd != nil {
		cmd.Stdout = w
		if err := cmd.Run(); err == nil {
			return
		}
	}

	_, _ = io.WriteString(w, clearSequence)
}

func clearCommand(goos string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/c", "cls")
	case "linux", "darwin", "freebsd", "openbsd", "netbsd":
		if path, err := exec.LookPath("clear"); err == nil {
			return exec.Command(path)
		}
	}
	return nil
}
