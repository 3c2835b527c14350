package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/folderlink/folderlink/internal/constants"
)

// ConfigDirectory returns the folderlink config directory
// (~/.config/folderlink on Linux, the platform equivalent elsewhere).
func ConfigDirectory() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, constants.AppName), nil
}

// DefaultConfigPath returns the path of the INI config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// LogDirectory returns where the browser writes its log file.
// Falls back to the temp dir when no config directory is available.
func LogDirectory() string {
	dir, err := ConfigDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.AppName+"-logs")
	}
	return filepath.Join(dir, "logs")
}

// EnsureLogDirectory creates the log directory with owner-only permissions.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}
