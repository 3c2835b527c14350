// Package models defines the listing data returned by the folder API.
package models

import (
	"fmt"

	"github.com/folderlink/folderlink/internal/constants"
)

// Listing is a decoded folder response. Entries keep the server's order.
// A nil Entries (JSON null or missing "data") is distinct from an empty one.
type Listing struct {
	Status  string         `json:"status"`
	Entries []ListingEntry `json:"data"`
}

// BusinessError reports a listing the server answered but that cannot be
// shown: a non-success status or null entries.
type BusinessError struct {
	Status      string
	NullEntries bool
}

func (e *BusinessError) Error() string {
	if e.Status != constants.ListingStatusSuccess {
		return fmt.Sprintf("listing status %q", e.Status)
	}
	return "listing has no entries"
}

// Err returns a *BusinessError unless the listing is displayable.
func (l *Listing) Err() error {
	if l == nil {
		return &BusinessError{NullEntries: true}
	}
	if l.Status != constants.ListingStatusSuccess || l.Entries == nil {
		return &BusinessError{Status: l.Status, NullEntries: l.Entries == nil}
	}
	return nil
}

// Folders returns the number of folder entries.
func (l *Listing) Folders() int {
	n := 0
	for _, e := range l.Entries {
		if e.IsFolder {
			n++
		}
	}
	return n
}
