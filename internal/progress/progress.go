// Package progress reports how many frames have been processed.
// Reporting is a side channel: it never influences the results.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives frame progress updates.
type Reporter interface {
	// Start announces the expected number of frames (0 if unknown).
	Start(total int)

	// Advance records n more processed frames.
	Advance(n int)

	// Finish marks the end of processing with a closing message.
	Finish(msg string)
}

// Nop is a Reporter that discards all updates.
type Nop struct{}

func (Nop) Start(int)     {}
func (Nop) Advance(int)   {}
func (Nop) Finish(string) {}

// Bar renders progress as a terminal progress bar.
type Bar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBar creates a Bar writing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

// Start creates the underlying bar. An unknown total shows a spinner.
func (b *Bar) Start(total int) {
	if total <= 0 {
		total = -1
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription("Extracting colours"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerHead:    ">",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Advance moves the bar forward.
func (b *Bar) Advance(n int) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Add(n)
}

// Finish completes the bar and prints msg on its own line.
func (b *Bar) Finish(msg string) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	fmt.Fprintln(b.out)
	if msg != "" {
		fmt.Fprintln(b.out, msg)
	}
	b.bar = nil
}

// ForTerminal returns a Bar on stderr when it is a terminal and enabled is
// true, and Nop otherwise.
func ForTerminal(enabled bool) Reporter {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return Nop{}
	}
	return NewBar(os.Stderr)
}
