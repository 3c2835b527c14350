// Package transfer tracks background downloads and publishes their
// progress on the event bus.
package transfer

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// TaskState represents the current state of a download task.
type TaskState string

const (
	TaskQueued    TaskState = "queued"    // Waiting for a worker slot
	TaskActive    TaskState = "active"    // Bytes are flowing
	TaskCompleted TaskState = "completed" // File renamed into place
	TaskFailed    TaskState = "failed"    // Failed with error
	TaskCancelled TaskState = "cancelled" // Cancelled by user or shutdown
)

// Task is a single download in the queue.
// Thread-safe: use the provided methods or Clone to read it.
type Task struct {
	ID     string
	Name   string // Display name (filename)
	Source string // Proxy address the bytes come from
	Dest   string // Final local path
	Size   int64  // Total bytes, 0 when the server did not say

	// State tracking
	State    TaskState
	Progress float64 // 0.0 to 1.0, stays 0 when Size is unknown
	Bytes    int64   // Bytes written so far
	Speed    float64 // bytes/sec (smoothed with EMA)
	Error    error

	// Speed calculation internals (for EMA smoothing)
	lastBytes      int64
	lastUpdateTime time.Time
	lastPublish    time.Time

	// Timestamps
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	mu sync.RWMutex
}

// NewTask creates a task in TaskQueued state.
func NewTask(name, source, dest string) *Task {
	return &Task{
		ID:        generateTaskID(),
		Name:      name,
		Source:    source,
		Dest:      dest,
		State:     TaskQueued,
		CreatedAt: time.Now(),
	}
}

// GetState returns the current state (thread-safe).
func (t *Task) GetState() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// Relocate points the task at a new destination and renames it to match.
func (t *Task) Relocate(dest string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Dest = dest
	t.Name = filepath.Base(dest)
}

// speedSmoothingAlpha weights a new sample against the running speed.
const speedSmoothingAlpha = 0.25

// updateBytesLocked records bytes written and refreshes progress and
// speed (must hold lock).
func (t *Task) updateBytesLocked(written int64, now time.Time) {
	t.Bytes = written
	if t.Size > 0 {
		t.Progress = float64(written) / float64(t.Size)
		if t.Progress > 1 {
			t.Progress = 1
		}
	}

	if t.lastUpdateTime.IsZero() {
		t.lastUpdateTime = now
		t.lastBytes = written
		return
	}

	elapsed := now.Sub(t.lastUpdateTime).Seconds()
	if elapsed < 0.1 || written <= t.lastBytes {
		return
	}

	instantRate := float64(written-t.lastBytes) / elapsed
	if t.Speed > 0 {
		t.Speed = speedSmoothingAlpha*instantRate + (1-speedSmoothingAlpha)*t.Speed
	} else {
		t.Speed = instantRate
	}
	t.lastBytes = written
	t.lastUpdateTime = now
}

// Clone returns a copy of the task (for safe external use).
func (t *Task) Clone() Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Task{
		ID:          t.ID,
		Name:        t.Name,
		Source:      t.Source,
		Dest:        t.Dest,
		Size:        t.Size,
		State:       t.State,
		Progress:    t.Progress,
		Bytes:       t.Bytes,
		Speed:       t.Speed,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

// IsTerminal returns true if the task is completed, failed or cancelled.
func (t *Task) IsTerminal() bool {
	state := t.GetState()
	return state == TaskCompleted || state == TaskFailed || state == TaskCancelled
}

// CanRetry returns true if the task can be retried (failed or cancelled).
func (t *Task) CanRetry() bool {
	state := t.GetState()
	return state == TaskFailed || state == TaskCancelled
}

// ID generation
var (
	taskCounter uint64
	taskMu      sync.Mutex
)

func generateTaskID() string {
	taskMu.Lock()
	defer taskMu.Unlock()
	taskCounter++
	return fmt.Sprintf("dl-%d-%d", time.Now().UnixNano(), taskCounter)
}
