package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/events"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotRunning = errors.New("task is not queued or active")
	ErrCannotRetry    = errors.New("task cannot be retried")
	ErrNoRetrier      = errors.New("no retry executor configured")
)

// RetryExecutor is implemented by components that can rerun a download.
// The task has been reset to TaskQueued when ExecuteRetry is called.
type RetryExecutor interface {
	ExecuteRetry(task *Task)
}

// QueueStats holds statistics about the download queue.
type QueueStats struct {
	Queued    int
	Active    int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns total number of tasks in queue.
func (s QueueStats) Total() int {
	return s.Queued + s.Active + s.Completed + s.Failed + s.Cancelled
}

// Running returns the number of queued and active tasks.
func (s QueueStats) Running() int {
	return s.Queued + s.Active
}

// Queue is a passive download tracker that publishes events for UI updates.
// It does not execute downloads; the caller registers tasks with Track,
// reports bytes with UpdateBytes and settles them with Complete or Fail.
type Queue struct {
	tasks     []*Task          // All tasks in creation order
	tasksByID map[string]*Task // Index by ID for quick lookup
	mu        sync.RWMutex

	// Cancel functions for running tasks
	cancelFuncs map[string]context.CancelFunc

	retryExecutor RetryExecutor

	eventBus *events.EventBus
}

// NewQueue creates a queue publishing on eventBus (may be nil).
func NewQueue(eventBus *events.EventBus) *Queue {
	return &Queue{
		tasks:       make([]*Task, 0),
		tasksByID:   make(map[string]*Task),
		cancelFuncs: make(map[string]context.CancelFunc),
		eventBus:    eventBus,
	}
}

// SetRetryExecutor sets the executor that handles retry requests.
func (q *Queue) SetRetryExecutor(executor RetryExecutor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retryExecutor = executor
}

// Track registers a download that will be executed elsewhere.
func (q *Queue) Track(name, source, dest string) *Task {
	task := NewTask(name, source, dest)

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.tasksByID[task.ID] = task
	q.mu.Unlock()

	q.publishTransferEvent(events.EventTransferQueued, task)
	return task
}

// SetCancel stores the cancel function for a running task.
func (q *Queue) SetCancel(taskID string, cancelFn context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelFuncs[taskID] = cancelFn
}

// Start marks a queued task active once the response headers arrived.
// size is the Content-Length, or a value <= 0 when unknown.
func (q *Queue) Start(taskID string, size int64) {
	q.mu.Lock()
	task, exists := q.tasksByID[taskID]
	started := false
	if exists {
		task.mu.Lock()
		if task.State == TaskQueued {
			task.State = TaskActive
			task.StartedAt = time.Now()
			if size > 0 {
				task.Size = size
			}
			started = true
		}
		task.mu.Unlock()
	}
	q.mu.Unlock()

	if started {
		q.publishTransferEvent(events.EventTransferStarted, task)
	}
}

// UpdateBytes records the bytes written so far. Progress events are
// throttled to constants.ProgressUpdateInterval.
func (q *Queue) UpdateBytes(taskID string, written int64) {
	q.mu.RLock()
	task, exists := q.tasksByID[taskID]
	q.mu.RUnlock()
	if !exists {
		return
	}

	now := time.Now()
	task.mu.Lock()
	task.updateBytesLocked(written, now)
	publish := now.Sub(task.lastPublish) >= constants.ProgressUpdateInterval
	if publish {
		task.lastPublish = now
	}
	task.mu.Unlock()

	if publish {
		q.publishTransferEvent(events.EventTransferProgress, task)
	}
}

// Complete marks a task as successfully completed.
func (q *Queue) Complete(taskID string) {
	q.settle(taskID, TaskCompleted, nil, events.EventTransferCompleted)
}

// Fail marks a task as failed with an error.
func (q *Queue) Fail(taskID string, err error) {
	q.settle(taskID, TaskFailed, err, events.EventTransferFailed)
}

func (q *Queue) settle(taskID string, state TaskState, err error, eventType events.EventType) {
	q.mu.Lock()
	task, exists := q.tasksByID[taskID]
	delete(q.cancelFuncs, taskID)
	q.mu.Unlock()
	if !exists {
		return
	}

	task.mu.Lock()
	if task.State == TaskCancelled {
		// Cancel already published the outcome.
		task.mu.Unlock()
		return
	}
	task.State = state
	task.Error = err
	if state == TaskCompleted {
		task.Progress = 1.0
	}
	task.CompletedAt = time.Now()
	task.mu.Unlock()

	q.publishTransferEvent(eventType, task)
}

// Cancel cancels a queued or active task.
func (q *Queue) Cancel(taskID string) error {
	q.mu.Lock()
	task, exists := q.tasksByID[taskID]
	cancelFn := q.cancelFuncs[taskID]
	delete(q.cancelFuncs, taskID)
	q.mu.Unlock()

	if !exists {
		return ErrTaskNotFound
	}

	task.mu.Lock()
	if task.State != TaskQueued && task.State != TaskActive {
		task.mu.Unlock()
		return ErrTaskNotRunning
	}
	task.State = TaskCancelled
	task.CompletedAt = time.Now()
	task.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}

	q.publishTransferEvent(events.EventTransferCancelled, task)
	return nil
}

// CancelAll cancels every queued and active task.
func (q *Queue) CancelAll() {
	q.mu.RLock()
	ids := make([]string, 0, len(q.tasks))
	for _, task := range q.tasks {
		if !task.IsTerminal() {
			ids = append(ids, task.ID)
		}
	}
	q.mu.RUnlock()

	for _, id := range ids {
		_ = q.Cancel(id)
	}
}

// Retry resets a failed or cancelled task and hands it to the retry
// executor. The task keeps its ID.
func (q *Queue) Retry(taskID string) error {
	q.mu.Lock()
	task, exists := q.tasksByID[taskID]
	executor := q.retryExecutor
	q.mu.Unlock()

	if !exists {
		return ErrTaskNotFound
	}
	if !task.CanRetry() {
		return ErrCannotRetry
	}
	if executor == nil {
		return ErrNoRetrier
	}

	task.mu.Lock()
	task.State = TaskQueued
	task.Progress = 0
	task.Bytes = 0
	task.Speed = 0
	task.Error = nil
	task.StartedAt = time.Time{}
	task.CompletedAt = time.Time{}
	task.lastBytes = 0
	task.lastUpdateTime = time.Time{}
	task.lastPublish = time.Time{}
	task.mu.Unlock()

	q.publishTransferEvent(events.EventTransferQueued, task)

	go executor.ExecuteRetry(task)
	return nil
}

// ClearCompleted removes all completed, failed and cancelled tasks.
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*Task, 0, len(q.tasks))
	for _, task := range q.tasks {
		if !task.IsTerminal() {
			filtered = append(filtered, task)
		} else {
			delete(q.tasksByID, task.ID)
		}
	}
	q.tasks = filtered
}

// GetStats returns current queue statistics.
func (q *Queue) GetStats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := QueueStats{}
	for _, task := range q.tasks {
		switch task.GetState() {
		case TaskQueued:
			stats.Queued++
		case TaskActive:
			stats.Active++
		case TaskCompleted:
			stats.Completed++
		case TaskFailed:
			stats.Failed++
		case TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// GetTasks returns a copy of all tasks for display.
func (q *Queue) GetTasks() []Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]Task, len(q.tasks))
	for i, task := range q.tasks {
		result[i] = task.Clone()
	}
	return result
}

// GetTask returns a copy of a specific task by ID.
func (q *Queue) GetTask(taskID string) (Task, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	task, exists := q.tasksByID[taskID]
	if !exists {
		return Task{}, false
	}
	return task.Clone(), true
}

// publishTransferEvent publishes a transfer event to the event bus.
func (q *Queue) publishTransferEvent(eventType events.EventType, task *Task) {
	if q.eventBus == nil {
		return
	}

	snap := task.Clone()
	q.eventBus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		TaskID:   snap.ID,
		Name:     snap.Name,
		Dest:     snap.Dest,
		Size:     snap.Size,
		Progress: snap.Progress,
		Bytes:    snap.Bytes,
		Speed:    snap.Speed,
		Error:    snap.Error,
	})
}
