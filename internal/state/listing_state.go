package state

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/models"
)

// ListingState holds the listing currently on screen and publishes events
// on changes. Thread-safe for concurrent access.
//
// A failed fetch does not clear the visible entries; the previous listing
// stays up until a new one succeeds.
type ListingState struct {
	eventBus *events.EventBus

	entries   []models.ListingEntry // server order
	location  string
	sortBy    string
	loading   bool
	lastError error

	mu sync.RWMutex
}

// NewListingState creates an empty ListingState. eventBus may be nil.
func NewListingState(eventBus *events.EventBus) *ListingState {
	return &ListingState{
		eventBus: eventBus,
		entries:  make([]models.ListingEntry, 0),
	}
}

// Entries returns a copy of the visible entries in the current sort order.
func (s *ListingState) Entries() []models.ListingEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// SetListing makes entries the visible listing for location.
func (s *ListingState) SetListing(location string, entries []models.ListingEntry) {
	s.mu.Lock()
	s.entries = make([]models.ListingEntry, len(entries))
	copy(s.entries, entries)
	s.location = location
	s.loading = false
	s.lastError = nil
	view := s.viewLocked()
	s.mu.Unlock()

	if s.eventBus != nil {
		s.eventBus.Publish(NewListingChangedEvent(location, view))
	}
}

// SetLoading marks a fetch for location as started or finished.
func (s *ListingState) SetLoading(location string, loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()

	if s.eventBus != nil {
		s.eventBus.Publish(NewListingLoadingEvent(location, loading))
	}
}

// IsLoading returns whether a fetch is in flight.
func (s *ListingState) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetFailed records a failed navigation. The visible entries are kept.
func (s *ListingState) SetFailed(location string, forward bool, err error) {
	s.mu.Lock()
	s.lastError = err
	s.loading = false
	s.mu.Unlock()

	if s.eventBus != nil && err != nil {
		s.eventBus.Publish(NewListingFailedEvent(location, forward, err))
	}
}

// Err returns the error of the last failed navigation, cleared by the
// next successful one.
func (s *ListingState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Location returns where the visible listing came from.
func (s *ListingState) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// SetSort changes the display order and republishes the listing.
func (s *ListingState) SetSort(sortBy string) {
	s.mu.Lock()
	s.sortBy = sortBy
	view := s.viewLocked()
	location := s.location
	s.mu.Unlock()

	if s.eventBus != nil {
		s.eventBus.Publish(NewListingChangedEvent(location, view))
	}
}

// Sort returns the current display order.
func (s *ListingState) Sort() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortBy
}

// Count returns the number of visible entries.
func (s *ListingState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// viewLocked returns a sorted copy of entries (must hold lock).
func (s *ListingState) viewLocked() []models.ListingEntry {
	view := make([]models.ListingEntry, len(s.entries))
	copy(view, s.entries)

	if s.sortBy == SortServer || len(view) < 2 {
		return view
	}

	sort.SliceStable(view, func(i, j int) bool {
		a, b := view[i], view[j]

		// Folders always come first
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}

		switch s.sortBy {
		case SortSize:
			return sizeOf(a) > sizeOf(b)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	})
	return view
}

func sizeOf(e models.ListingEntry) float64 {
	f, err := strconv.ParseFloat(e.Size(), 64)
	if err != nil {
		return 0
	}
	return f
}
