// Package styled holds the terminal styles shared by the shell and the
// benchmark.
package styled

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DimmedColor returns a dimmed *color.Color to print secondary information.
func DimmedColor() *color.Color {
	return color.RGB(128, 128, 128)
}

// ErrorColor returns the *color.Color used for error messages.
func ErrorColor() *color.Color {
	return color.New(color.FgRed, color.Bold)
}

// NewTableWriter returns a new table.Writer with the custom styles for the
// litebind CLIs.
func NewTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	tw.Style().Color.Footer = text.Colors{text.FgCyan, text.Bold}

	return tw
}

// Null is how NULL cells are shown.
func Null() string {
	return DimmedColor().Sprint("NULL")
}
