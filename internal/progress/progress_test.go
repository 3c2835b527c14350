package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folderlink/folderlink/internal/events"
)

func transferEvent(t events.EventType, id, name string) *events.TransferEvent {
	return &events.TransferEvent{
		BaseEvent: events.BaseEvent{EventType: t, Time: time.Now()},
		TaskID:    id,
		Name:      name,
		Dest:      "/home/u/Downloads/" + name,
		Size:      2048,
	}
}

func TestCLIProgressTracksBytes(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgressTo(&buf, "clip.mkv")

	p.Update(10) // before Start must not panic
	p.Start(100)
	p.Update(40)
	p.Update(100)
	p.Finish()

	assert.Equal(t, int64(100), p.Bytes())
	assert.Contains(t, buf.String(), "clip.mkv")
}

func TestCLIProgressUnknownSize(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgressTo(&buf, "stream")

	p.Start(-1)
	p.Update(4096)
	p.Error(errors.New("boom"))

	assert.Equal(t, int64(4096), p.Bytes())
}

func TestDownloadUIPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	ui := NewDownloadUI(&buf)
	require.False(t, ui.IsTerminal())

	ui.Handle(transferEvent(events.EventTransferQueued, "dl-1", "a.mkv"))
	ui.Handle(transferEvent(events.EventTransferStarted, "dl-1", "a.mkv"))
	progress := transferEvent(events.EventTransferProgress, "dl-1", "a.mkv")
	progress.Bytes = 1024
	ui.Handle(progress)
	done := transferEvent(events.EventTransferCompleted, "dl-1", "a.mkv")
	done.Bytes = 2048
	ui.Handle(done)

	failed := transferEvent(events.EventTransferFailed, "dl-2", "b.zip")
	failed.Error = errors.New("status 404")
	ui.Handle(failed)

	ui.Handle(transferEvent(events.EventTransferCancelled, "dl-3", "c.zip"))
	ui.Wait()

	out := buf.String()
	assert.Contains(t, out, "Queued: a.mkv")
	assert.Contains(t, out, "Downloading: a.mkv")
	assert.Contains(t, out, "✓ …/Downloads/a.mkv (2.0 KiB")
	assert.Contains(t, out, "✗ b.zip: status 404")
	assert.Contains(t, out, "✗ c.zip: cancelled")
	assert.Equal(t, 1, strings.Count(out, "Downloading: a.mkv"))

	completed, failedCount := ui.Results()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failedCount)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "…/c/d/file.txt", truncatePath("/a/b/c/d/file.txt", 3))
	assert.Equal(t, "d/file.txt", truncatePath("d/file.txt", 2))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "3.0 MiB", formatBytes(3*1024*1024))
	assert.Equal(t, "unknown size", sizeLabel(0))
}

func TestDownloadUIRunDrainsBus(t *testing.T) {
	var buf bytes.Buffer
	ui := NewDownloadUI(&buf)
	bus := events.NewEventBus(16)
	sub := bus.SubscribeAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.Run(context.Background(), sub)
	}()

	bus.PublishNotice(events.NoticeInfo, "ignored", nil)
	bus.Publish(transferEvent(events.EventTransferStarted, "dl-1", "a.mkv"))
	bus.Publish(transferEvent(events.EventTransferCompleted, "dl-1", "a.mkv"))
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the bus closed")
	}

	completed, _ := ui.Results()
	assert.Equal(t, 1, completed)
	assert.NotContains(t, buf.String(), "ignored")
}
