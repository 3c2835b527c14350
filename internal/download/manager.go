// Package download saves files from their proxy addresses into the
// download directory. Background downloads are tracked in a
// transfer.Queue; the `get` command uses the synchronous Fetch.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/diskspace"
	"github.com/folderlink/folderlink/internal/http"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/transfer"
	"github.com/folderlink/folderlink/internal/util/paths"
	"github.com/folderlink/folderlink/internal/util/sanitize"
	"github.com/folderlink/folderlink/internal/version"
)

// ErrEmptySource is returned when a download has no proxy address.
var ErrEmptySource = errors.New("empty download address")

// Progress receives the total size (<= 0 when unknown) once headers
// arrive, then the running byte count.
type Progress interface {
	Start(size int64)
	Update(written int64)
}

// Manager runs downloads with a bounded number of workers.
type Manager struct {
	ctx    context.Context
	client *nethttp.Client
	queue  *transfer.Queue
	dir    string
	sem    chan struct{}
	logger *logging.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	reserved map[string]bool // destinations claimed by running downloads
}

// NewManager builds a Manager from config. Background downloads stop when
// ctx is done.
func NewManager(ctx context.Context, cfg *config.Config, queue *transfer.Queue, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("download")

	base, err := http.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	client := http.NewRetryClient(base, cfg.RetryMax, logger).StandardClient()

	return NewManagerWithClient(ctx, client, queue, cfg.DownloadDir, cfg.DownloadWorkers, logger), nil
}

// NewManagerWithClient builds a Manager around an existing HTTP client.
func NewManagerWithClient(ctx context.Context, client *nethttp.Client, queue *transfer.Queue, dir string, workers int, logger *logging.Logger) *Manager {
	if workers < 1 {
		workers = constants.DefaultDownloadWorkers
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &Manager{
		ctx:      ctx,
		client:   client,
		queue:    queue,
		dir:      dir,
		sem:      make(chan struct{}, workers),
		logger:   logger,
		reserved: make(map[string]bool),
	}
	if queue != nil {
		queue.SetRetryExecutor(m)
	}
	return m
}

// Dir returns the download directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Download queues a background download of proxy into the download
// directory and returns once it is queued.
func (m *Manager) Download(ctx context.Context, proxy, filename string) error {
	if proxy == "" {
		return ErrEmptySource
	}
	if m.queue == nil {
		return fmt.Errorf("download queue not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	dest := m.reserve(m.dir, filename)
	task := m.queue.Track(filepath.Base(dest), proxy, dest)
	m.logger.Info().Str("name", task.Name).Str("dest", dest).Msg("download queued")

	m.start(task)
	return nil
}

// ExecuteRetry reruns a failed or cancelled download. It implements
// transfer.RetryExecutor. The destination is claimed again, since a file
// of the same name may have landed there after the task failed.
func (m *Manager) ExecuteRetry(task *transfer.Task) {
	prev := task.Clone().Dest
	dir := filepath.Dir(prev)
	if err := os.MkdirAll(dir, 0755); err != nil {
		m.queue.Fail(task.ID, fmt.Errorf("failed to create download directory: %w", err))
		return
	}

	dest := m.reserve(dir, filepath.Base(prev))
	if dest != prev {
		m.logger.Info().Str("from", prev).Str("to", dest).Msg("retry destination taken, renamed")
		task.Relocate(dest)
	}
	m.start(task)
}

func (m *Manager) start(task *transfer.Task) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.queue.SetCancel(task.ID, cancel)
	snap := task.Clone()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer m.release(snap.Dest)

		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			m.queue.Fail(task.ID, ctx.Err())
			return
		}
		defer func() { <-m.sem }()

		err := m.fetch(ctx, snap.Source, snap.Dest, &queueProgress{queue: m.queue, taskID: task.ID})
		if err != nil {
			m.logger.Error().Str("name", snap.Name).Err(err).Msg("download failed")
			m.queue.Fail(task.ID, err)
			return
		}
		m.logger.Info().Str("name", snap.Name).Str("dest", snap.Dest).Msg("download complete")
		m.queue.Complete(task.ID)
	}()
}

// Fetch downloads proxy into dir in the foreground and returns the final
// path. progress may be nil.
func (m *Manager) Fetch(ctx context.Context, proxy, filename, dir string, progress Progress) (string, error) {
	if proxy == "" {
		return "", ErrEmptySource
	}
	if dir == "" {
		dir = m.dir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dest := m.reserve(dir, filename)
	defer m.release(dest)

	if err := m.fetch(ctx, proxy, dest, progress); err != nil {
		return "", err
	}
	return dest, nil
}

// Wait blocks until all background downloads have settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) fetch(ctx context.Context, source, dest string, progress Progress) error {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("unexpected status %d (%s)", resp.StatusCode,
			http.ErrorTypeName(http.ClassifyResponse(resp, nil)))
	}

	if err := diskspace.CheckAvailableSpace(dest, resp.ContentLength, diskspace.DownloadMargin); err != nil {
		return err
	}

	if progress != nil {
		progress.Start(resp.ContentLength)
	}

	part := dest + constants.PartialSuffix
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := &countingWriter{w: f, progress: progress}
	buf := make([]byte, constants.DownloadBufferSize)
	_, copyErr := io.CopyBuffer(w, resp.Body, buf)
	closeErr := f.Close()

	if copyErr != nil {
		os.Remove(part)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(dest), copyErr)
	}
	if closeErr != nil {
		os.Remove(part)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(dest), closeErr)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// reserve picks a free destination for filename in dir and claims it.
func (m *Manager) reserve(dir, filename string) string {
	path := filepath.Join(dir, sanitize.Filename(filename))

	m.mu.Lock()
	defer m.mu.Unlock()

	dest := paths.ResolveCollision(path, func(p string) bool {
		return m.reserved[p] || paths.FileExists(p) || paths.FileExists(p+constants.PartialSuffix)
	})
	m.reserved[dest] = true
	return dest
}

func (m *Manager) release(dest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, dest)
}

type countingWriter struct {
	w        io.Writer
	written  int64
	progress Progress
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	if c.progress != nil {
		c.progress.Update(c.written)
	}
	return n, err
}

// queueProgress reports into a transfer.Queue.
type queueProgress struct {
	queue  *transfer.Queue
	taskID string
}

func (p *queueProgress) Start(size int64)     { p.queue.Start(p.taskID, size) }
func (p *queueProgress) Update(written int64) { p.queue.UpdateBytes(p.taskID, written) }
