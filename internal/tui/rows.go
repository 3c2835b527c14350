package tui

import (
	"fmt"

	"github.com/folderlink/folderlink/internal/classify"
	"github.com/folderlink/folderlink/internal/models"
)

// RowLabel returns the secondary text of a listing row: "Folder" for
// folders, "<size> MB • <Video|Image|File>" for files.
func RowLabel(entry models.ListingEntry) string {
	if entry.IsFolder {
		return "Folder"
	}
	size := entry.Size()
	if size == "" {
		size = "?"
	}
	return fmt.Sprintf("%s MB • %s", size, classify.Classify(entry.Name))
}

// rowIcon is the action hint shown before a row.
func rowIcon(entry models.ListingEntry) string {
	if entry.IsFolder {
		return "▸"
	}
	switch classify.Classify(entry.Name) {
	case classify.Video:
		return "▶"
	case classify.Image:
		return "◉"
	default:
		return "↓"
	}
}
