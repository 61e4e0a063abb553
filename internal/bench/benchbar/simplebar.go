// Package benchbar provides a really simple progress bar for the benchmarking
// process.
package benchbar

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar counts finished items of one benchmark step. It is safe to use from
// several goroutines.
type Bar struct {
	pb *progressbar.ProgressBar
}

// NewBar starts a bar that expects maxItems increments and draws to w.
func NewBar(w io.Writer, description string, maxItems int) *Bar {
	pb := progressbar.NewOptions(maxItems,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	)

	return &Bar{pb: pb}
}

// Inc marks one item as done.
func (b *Bar) Inc() {
	_ = b.pb.Add(1)
}

// Finish fills the bar and releases it.
func (b *Bar) Finish() {
	_ = b.pb.Finish()
	_ = b.pb.Close()
}
