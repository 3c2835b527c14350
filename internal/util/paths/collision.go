// Package paths provides utilities for file path handling in downloads.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveCollision returns path unchanged when exists reports it free.
// Otherwise it inserts " (n)" before the extension, counting up from 1,
// and returns the first free candidate.
//
// Example: "movie.mp4" becomes "movie (1).mp4", then "movie (2).mp4".
func ResolveCollision(path string, exists func(string) bool) string {
	if !exists(path) {
		return path
	}

	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

// FileExists reports whether anything exists at path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
