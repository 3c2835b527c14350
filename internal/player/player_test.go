package player

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"
)

func TestNewCommandRejectsEmpty(t *testing.T) {
	if _, err := NewCommand("   ", nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("NewCommand(blank) error = %v, want ErrEmptyCommand", err)
	}
}

func TestPlayAppendsAddress(t *testing.T) {
	c, err := NewCommand("mpv --force-window", nil)
	if err != nil {
		t.Fatal(err)
	}

	var gotName string
	var gotArgs []string
	c.start = func(name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	if err := c.Play(context.Background(), "https://proxy/v.mp4"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if gotName != "mpv" {
		t.Errorf("name = %q, want mpv", gotName)
	}
	want := []string{"--force-window", "https://proxy/v.mp4"}
	if !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("args = %v, want %v", gotArgs, want)
	}
}

func TestPreviewWrapsStartError(t *testing.T) {
	c, _ := NewCommand("viewer", nil)
	boom := errors.New("not found")
	c.start = func(string, ...string) error { return boom }

	err := c.Preview(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Errorf("Preview() error = %v, want wrapped start error", err)
	}
}

func TestCancelledContextDoesNotLaunch(t *testing.T) {
	c, _ := NewCommand("viewer", nil)
	called := false
	c.start = func(string, ...string) error { called = true; return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Play(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Play() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("command launched despite cancelled context")
	}
}

func TestStartDetachedRealProcess(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	c, _ := NewCommand("true", nil)
	if !c.Available() {
		t.Fatal("Available() = false for true")
	}
	if err := c.Play(context.Background(), "ignored"); err != nil {
		t.Errorf("Play() error = %v", err)
	}
}
