// Package events carries navigation, notice and transfer updates from the
// engine to whatever presentation is attached.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/models"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Navigation events
	EventNavigation     EventType = "navigation"      // stack/current changed
	EventListingLoading EventType = "listing_loading" // fetch started or finished
	EventListingChanged EventType = "listing_changed" // new visible listing
	EventListingFailed  EventType = "listing_failed"  // navigation failed
	EventExit           EventType = "exit"            // back pressed with no history

	// Notices are transient user-facing messages
	EventNotice EventType = "notice"

	// Transfer events
	EventTransferQueued    EventType = "transfer_queued"
	EventTransferStarted   EventType = "transfer_started"
	EventTransferProgress  EventType = "transfer_progress"
	EventTransferCompleted EventType = "transfer_completed"
	EventTransferFailed    EventType = "transfer_failed"
	EventTransferCancelled EventType = "transfer_cancelled"
)

// NoticeLevel defines notice severity
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "INFO"
	case NoticeWarn:
		return "WARN"
	case NoticeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NavigationEvent reports the navigation state after a transition.
type NavigationEvent struct {
	BaseEvent
	Current    string
	Depth      int
	HasHistory bool
	Breadcrumb string
}

// LoadingEvent reports whether a fetch is in flight for Location.
type LoadingEvent struct {
	BaseEvent
	Location string
	Loading  bool
}

// ListingEvent carries a listing that became visible.
type ListingEvent struct {
	BaseEvent
	Location string
	Entries  []models.ListingEntry
}

// ListingFailedEvent reports a failed navigation.
type ListingFailedEvent struct {
	BaseEvent
	Location string
	Forward  bool
	Error    error
}

// NoticeEvent is a transient message for the user ("link error", ...).
type NoticeEvent struct {
	BaseEvent
	Level   NoticeLevel
	Message string
	Error   error
}

// ExitEvent asks the host to close the browsing session.
type ExitEvent struct {
	BaseEvent
}

// TransferEvent represents download queue updates
type TransferEvent struct {
	BaseEvent
	TaskID   string
	Name     string
	Dest     string
	Size     int64
	Progress float64 // 0.0 to 1.0, 0 when size unknown
	Bytes    int64
	Speed    float64 // bytes/sec
	Error    error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. It never blocks: a subscriber
// whose buffer is full misses the event and the drop is counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishNotice is a convenience method for publishing notices
func (eb *EventBus) PublishNotice(level NoticeLevel, message string, err error) {
	eb.Publish(&NoticeEvent{
		BaseEvent: BaseEvent{EventType: EventNotice, Time: time.Now()},
		Level:     level,
		Message:   message,
		Error:     err,
	})
}

// UnsubscribeAll removes a subscription channel from every event type.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
