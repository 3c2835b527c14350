package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/folderlink/folderlink/internal/events"
)

// DownloadUI renders one bar per background download, driven by transfer
// events from the bus. On a non-terminal writer it prints one line per
// state change instead.
type DownloadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool

	mu        sync.Mutex
	bars      map[string]*downloadBar // task ID -> bar
	completed int
	failed    int
}

type downloadBar struct {
	bar        *mpb.Bar
	name       string
	dest       string
	size       int64
	startTime  time.Time
	lastUpdate time.Time
}

// NewDownloadUI creates a UI writing to out. Bars are drawn only when out
// is a terminal.
func NewDownloadUI(out io.Writer) *DownloadUI {
	isTerminal := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		isTerminal = true
		enableWindowsANSI(f)
	}

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	}

	return &DownloadUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		bars:       make(map[string]*downloadBar),
	}
}

// Run applies transfer events from ch until ctx is done or ch is closed.
// Subscribe before starting downloads so no event is missed.
func (u *DownloadUI) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if te, ok := ev.(*events.TransferEvent); ok {
				u.Handle(te)
			}
		}
	}
}

// Handle applies one transfer event.
func (u *DownloadUI) Handle(ev *events.TransferEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch ev.Type() {
	case events.EventTransferQueued:
		u.printf("Queued: %s\n", ev.Name)

	case events.EventTransferStarted:
		u.startLocked(ev)

	case events.EventTransferProgress:
		fb, ok := u.bars[ev.TaskID]
		if !ok {
			fb = u.startLocked(ev)
		}
		if fb.bar != nil {
			now := time.Now()
			fb.bar.EwmaSetCurrent(ev.Bytes, now.Sub(fb.lastUpdate))
			fb.lastUpdate = now
		}

	case events.EventTransferCompleted:
		fb, ok := u.bars[ev.TaskID]
		if !ok {
			fb = u.startLocked(ev)
		}
		if fb.bar != nil {
			fb.bar.SetCurrent(ev.Bytes)
			fb.bar.SetTotal(-1, true)
		}
		elapsed := time.Since(fb.startTime)
		u.completed++
		u.printf("✓ %s (%s, %s)\n", truncatePath(ev.Dest, 2), formatBytes(ev.Bytes), elapsed.Round(time.Second))
		delete(u.bars, ev.TaskID)

	case events.EventTransferFailed, events.EventTransferCancelled:
		if fb, ok := u.bars[ev.TaskID]; ok && fb.bar != nil {
			fb.bar.Abort(false)
		}
		delete(u.bars, ev.TaskID)
		if ev.Type() == events.EventTransferCancelled {
			u.printf("✗ %s: cancelled\n", ev.Name)
			return
		}
		u.failed++
		u.printf("✗ %s: %v\n", ev.Name, ev.Error)
	}
}

func (u *DownloadUI) startLocked(ev *events.TransferEvent) *downloadBar {
	if fb, ok := u.bars[ev.TaskID]; ok {
		return fb
	}

	now := time.Now()
	fb := &downloadBar{
		name:       ev.Name,
		dest:       ev.Dest,
		size:       ev.Size,
		startTime:  now,
		lastUpdate: now,
	}
	u.bars[ev.TaskID] = fb

	if !u.isTerminal {
		u.printf("Downloading: %s → %s (%s)\n", ev.Name, truncatePath(ev.Dest, 2), sizeLabel(ev.Size))
		return fb
	}

	total := ev.Size
	if total <= 0 {
		total = 0
	}
	fb.bar = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(ev.Name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
			decor.Name("  "),
			decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 60), "done"),
		),
		mpb.BarRemoveOnComplete(),
	)
	return fb
}

// printf writes above the bars when they are active.
func (u *DownloadUI) printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if u.isTerminal && u.progress != nil {
		_, _ = u.progress.Write([]byte(msg))
		return
	}
	_, _ = io.WriteString(u.out, msg)
}

// Wait blocks until every bar has been drawn for the last time.
func (u *DownloadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Results returns how many downloads completed and failed so far.
func (u *DownloadUI) Results() (completed, failed int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.completed, u.failed
}

// IsTerminal returns whether bars are being drawn.
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath keeps the last n components of a path.
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, n int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= n {
		return path
	}
	return "…/" + strings.Join(parts[len(parts)-n:], "/")
}

func sizeLabel(size int64) string {
	if size <= 0 {
		return "unknown size"
	}
	return formatBytes(size)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
