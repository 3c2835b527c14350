// Package progress renders download progress on the terminal.
package progress

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// CLIProgress shows a single progress bar for a foreground download.
// It satisfies download.Progress.
type CLIProgress struct {
	bar         *progressbar.ProgressBar
	out         io.Writer
	description string
	written     int64
}

// NewCLIProgress creates a progress bar writing to stderr.
func NewCLIProgress(description string) *CLIProgress {
	return NewCLIProgressTo(os.Stderr, description)
}

// NewCLIProgressTo creates a progress bar writing to out.
func NewCLIProgressTo(out io.Writer, description string) *CLIProgress {
	return &CLIProgress{out: out, description: description}
}

// Start creates the bar. A size <= 0 means the server sent no length and
// the bar degrades to a spinner with a byte counter.
func (p *CLIProgress) Start(size int64) {
	if size <= 0 {
		size = -1
	}
	p.bar = progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the cumulative byte count.
func (p *CLIProgress) Update(written int64) {
	p.written = written
	if p.bar != nil {
		_ = p.bar.Set64(written)
	}
}

// Finish completes the bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error leaves the bar where it stopped and moves to a fresh line.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
		_, _ = io.WriteString(p.out, "\n")
	}
}

// Bytes reports the last count passed to Update.
func (p *CLIProgress) Bytes() int64 {
	return p.written
}

// NoOpProgress discards all updates. Used with --quiet.
type NoOpProgress struct{}

// NewNoOpProgress creates a no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(size int64)     {}
func (p *NoOpProgress) Update(written int64) {}
func (p *NoOpProgress) Finish()              {}
func (p *NoOpProgress) Error(err error)      {}
