package version

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/nsqlite/litebind/internal/engine"
)

const Version = "v0.1.0"

// banner is the ASCII art shown when a CLI starts; %s is the tool name.
const banner = `
    ___ __       __    _           __
   / (_) /____  / /_  (_)___  ____/ /
  / / / __/ _ \/ __ \/ / __ \/ __  /
 / / / /_/  __/ /_/ / / / / / /_/ /
/_/_/\__/\___/_.___/_/_/ /_/\__,_/
%s ` + Version + ` (SQLite %s)`

func render(tool string) string {
	return color.New(color.FgCyan, color.Bold).Sprintf(banner[1:], tool, engine.Version)
}

// ShellVersion returns the banner of the litebind shell.
func ShellVersion() string {
	return render("Shell")
}

// BenchVersion returns the banner of the litebind benchmark.
func BenchVersion() string {
	return render("Bench")
}

// String returns the one line version of tool, for --version output.
func String(tool string) string {
	return fmt.Sprintf("litebind %s %s (SQLite %s)", tool, Version, engine.Version)
}
