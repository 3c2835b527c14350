// Package classify maps filenames to the action category used by the browser.
package classify

import "strings"

// Category is the display and dispatch class of a file.
type Category int

const (
	Other Category = iota
	Video
	Image
)

// String returns the label shown in a listing row.
func (c Category) String() string {
	switch c {
	case Video:
		return "Video"
	case Image:
		return "Image"
	default:
		return "File"
	}
}

var (
	videoExts = map[string]bool{"mp4": true, "mkv": true, "avi": true, "mov": true}
	imageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true}

	// mov is a Video for labeling but is not offered streaming.
	streamExts = map[string]bool{"mp4": true, "mkv": true, "avi": true}
)

// Extension returns the lowercase text after the last '.', or "" when the
// name has no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Classify returns the category for a filename.
func Classify(name string) Category {
	ext := Extension(name)
	switch {
	case videoExts[ext]:
		return Video
	case imageExts[ext]:
		return Image
	default:
		return Other
	}
}

// Streamable reports whether a file gets the stream-or-download choice.
func Streamable(name string) bool {
	return streamExts[Extension(name)]
}
