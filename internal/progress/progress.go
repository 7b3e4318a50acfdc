// Package progress reports the advancement of long-running phases.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Reporter receives progress updates.
// A negative fraction means the total is unknown (indeterminate progress).
type Reporter interface {
	Report(description string, fraction float64)
}

// Func adapts a plain function to Reporter.
type Func func(description string, fraction float64)

// Report calls f.
func (f Func) Report(description string, fraction float64) { f(description, fraction) }

// Nop is a Reporter that discards updates.
var Nop Reporter = Func(func(string, float64) {})

// Bar wraps progressbar with enabled/disabled handling.
// All methods are no-ops when disabled.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New creates a progress bar.
// If enabled=false, returns a Bar where all methods are no-ops.
// Use total=-1 for spinner mode, or total>0 for determinate progress.
func New(enabled bool, total int64) *Bar {
	if !enabled {
		return &Bar{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(false),
		)
		return &Bar{bar: progressbar.NewOptions(-1, opts...)}
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	return &Bar{bar: progressbar.NewOptions64(total, opts...)}
}

// Report implements Reporter. A determinate bar is expected to have total=100.
func (b *Bar) Report(description string, fraction float64) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(description)
	if fraction >= 0 {
		_ = b.bar.Set64(int64(fraction * 100))
	}
}

// Finish completes the progress bar and prints a final message.
func (b *Bar) Finish(s fmt.Stringer) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr, "✔ "+s.String())
	}
}
