// Package diskspace checks free space on the filesystem a download lands on.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"
)

// DownloadMargin pads a download's size when checking free space.
const DownloadMargin = 1.05

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckAvailableSpace returns an *InsufficientSpaceError when the
// filesystem holding targetPath cannot fit requiredBytes*margin. The
// target itself need not exist, only its directory. When free space
// cannot be determined the check passes.
func CheckAvailableSpace(targetPath string, requiredBytes int64, margin float64) error {
	if requiredBytes <= 0 {
		return nil
	}
	available, ok := availableBytes(filepath.Dir(targetPath))
	if !ok {
		return nil
	}

	required := int64(float64(requiredBytes) * margin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns the free bytes on the filesystem containing
// dir, or 0 if unknown.
func GetAvailableSpace(dir string) int64 {
	n, ok := availableBytes(dir)
	if !ok {
		return 0
	}
	return n
}

// IsInsufficientSpaceError reports whether err wraps an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}
