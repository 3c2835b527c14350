package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// EntryLinks holds the two addresses a listing entry may carry.
type EntryLinks struct {
	Browse *string `json:"browse"`
	Proxy  *string `json:"proxy"`
}

// ListingEntry is one file or folder in a listing, in the server's wire shape.
type ListingEntry struct {
	Name      string      `json:"filename"`
	IsFolder  bool        `json:"is_folder"`
	SizeMB    *SizeMB     `json:"size_mb"`
	Thumbnail *string     `json:"thumb"`
	Links     *EntryLinks `json:"links"`
}

// BrowseLocation returns the folder location to fetch when descending,
// or "" when the entry has none.
func (e ListingEntry) BrowseLocation() string {
	if e.Links == nil || e.Links.Browse == nil {
		return ""
	}
	return *e.Links.Browse
}

// ProxyLocation returns the address used to stream, preview or download
// the entry's bytes, or "" when the entry has none.
func (e ListingEntry) ProxyLocation() string {
	if e.Links == nil || e.Links.Proxy == nil {
		return ""
	}
	return *e.Links.Proxy
}

// ThumbnailURL returns the thumbnail address or "".
func (e ListingEntry) ThumbnailURL() string {
	if e.Thumbnail == nil {
		return ""
	}
	return *e.Thumbnail
}

// Size returns the size text in megabytes or "" when unknown.
func (e ListingEntry) Size() string {
	if e.SizeMB == nil {
		return ""
	}
	return string(*e.SizeMB)
}

// SizeMB is the size_mb field. The server sends it either as a string
// ("12.50") or as a bare number (12.5); both are kept as text.
type SizeMB string

// UnmarshalJSON accepts a JSON string or number.
func (s *SizeMB) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("size_mb: empty value")
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("size_mb: %w", err)
		}
		*s = SizeMB(str)
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("size_mb: expected string or number, got %s", string(data))
		}
		if _, err := strconv.ParseFloat(num.String(), 64); err != nil {
			return fmt.Errorf("size_mb: %w", err)
		}
		*s = SizeMB(num.String())
		return nil
	}
}

// MarshalJSON writes the size back as a string.
func (s SizeMB) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}
