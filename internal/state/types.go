// Package state provides the observable listing container. It emits events
// when the visible listing changes so any frontend can subscribe and
// redraw.
package state

import (
	"time"

	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/models"
)

// Sort orders for the visible listing.
const (
	SortServer = "" // server order, the default
	SortName   = "name"
	SortSize   = "size"
)

// NewListingChangedEvent creates a listing changed event.
func NewListingChangedEvent(location string, entries []models.ListingEntry) *events.ListingEvent {
	return &events.ListingEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventListingChanged, Time: time.Now()},
		Location:  location,
		Entries:   entries,
	}
}

// NewListingLoadingEvent creates a loading event.
func NewListingLoadingEvent(location string, loading bool) *events.LoadingEvent {
	return &events.LoadingEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventListingLoading, Time: time.Now()},
		Location:  location,
		Loading:   loading,
	}
}

// NewListingFailedEvent creates a failed navigation event.
func NewListingFailedEvent(location string, forward bool, err error) *events.ListingFailedEvent {
	return &events.ListingFailedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventListingFailed, Time: time.Now()},
		Location:  location,
		Forward:   forward,
		Error:     err,
	}
}
