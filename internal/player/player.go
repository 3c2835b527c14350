// Package player hands proxy addresses to external programs: a media
// player for streaming and an image viewer for previews.
package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/folderlink/folderlink/internal/logging"
)

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// startFunc launches a process without waiting for it.
type startFunc func(name string, args ...string) error

// Command runs a configured command line with the address appended,
// e.g. "mpv --force-window" + proxy.
type Command struct {
	name   string
	args   []string
	logger *logging.Logger
	start  startFunc
}

// NewCommand parses commandLine into a program and leading arguments.
func NewCommand(commandLine string, logger *logging.Logger) (*Command, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Command{
		name:   fields[0],
		args:   fields[1:],
		logger: logger.Named("player"),
		start:  startDetached,
	}, nil
}

// Name returns the program name.
func (c *Command) Name() string {
	return c.name
}

// Available reports whether the program is on PATH.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.name)
	return err == nil
}

// Play opens address in the player. It implements dispatch.Player.
func (c *Command) Play(ctx context.Context, address string) error {
	return c.open(ctx, address)
}

// Preview opens address in the viewer. It implements dispatch.Previewer.
func (c *Command) Preview(ctx context.Context, address string) error {
	return c.open(ctx, address)
}

func (c *Command) open(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, address)

	c.logger.Debug().Str("cmd", c.name).Strs("args", args).Msg("launching")
	if err := c.start(c.name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.name, err)
	}
	return nil
}

// startDetached starts the process and reaps it in the background. The
// child outlives the request that launched it.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
