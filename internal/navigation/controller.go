// Package navigation implements the folder history state machine.
//
// A Controller is either at Root (no current location, empty history) or
// Browsing a location with a stack of earlier locations. Every transition
// starts one fetch. A newer transition cancels the older fetch, and a
// completion that lost the race is dropped without touching state.
package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
	"github.com/folderlink/folderlink/internal/state"
)

var (
	// ErrEmptyLocation is returned for Open or Descend with an empty location.
	ErrEmptyLocation = errors.New("empty location")

	// ErrNoHistory accompanies the exit outcome of GoBack at Root.
	ErrNoHistory = errors.New("no navigation history")
)

// Fetcher retrieves one listing. *api.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*models.Listing, error)
}

// Outcome is the settled result of one navigation.
type Outcome struct {
	Location string
	Listing  *models.Listing // set on success
	Err      error

	// Stale is set when a newer navigation superseded this one. A stale
	// outcome changed nothing.
	Stale bool

	// Corrected is set when a failed forward navigation popped the stack.
	Corrected bool

	// Exit is set when GoBack found no history.
	Exit bool
}

// OK reports whether the navigation made a new listing visible.
func (o Outcome) OK() bool {
	return o.Err == nil && !o.Stale && !o.Exit
}

// Snapshot is a copy of the navigation state.
type Snapshot struct {
	Stack      []string
	Current    string
	HasHistory bool
	Breadcrumb string
}

// Depth returns the history stack depth.
func (s Snapshot) Depth() int {
	return len(s.Stack)
}

// Controller owns the navigation state. All methods are safe for
// concurrent use.
type Controller struct {
	ctx     context.Context
	fetcher Fetcher
	bus     *events.EventBus
	listing *state.ListingState
	logger  *logging.Logger

	mu      sync.Mutex
	stack   []string
	current string
	token   uint64
	cancel  context.CancelFunc
}

// NewController creates a controller at Root. In-flight fetches are
// cancelled when ctx is done. bus may be nil.
func NewController(ctx context.Context, fetcher Fetcher, bus *events.EventBus, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		ctx:     ctx,
		fetcher: fetcher,
		bus:     bus,
		listing: state.NewListingState(bus),
		logger:  logger.Named("navigation"),
	}
}

// Listing returns the visible listing container.
func (c *Controller) Listing() *state.ListingState {
	return c.listing
}

// Open resets history and navigates to root.
func (c *Controller) Open(root string) <-chan Outcome {
	if root == "" {
		return settled(Outcome{Err: ErrEmptyLocation})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stack = nil
	c.current = root
	c.logger.Debug().Str("location", root).Msg("open")
	return c.startLocked(root, true)
}

// Descend pushes the current location and navigates to target.
func (c *Controller) Descend(target string) <-chan Outcome {
	if target == "" {
		return settled(Outcome{Err: ErrEmptyLocation})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != "" {
		c.stack = append(c.stack, c.current)
	}
	c.current = target
	c.logger.Debug().Str("location", target).Int("depth", len(c.stack)).Msg("descend")
	return c.startLocked(target, true)
}

// GoBack pops the history and navigates to the popped location. With no
// history it publishes one EventExit and changes nothing.
func (c *Controller) GoBack() <-chan Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.stack) == 0 {
		c.logger.Debug().Msg("back with no history")
		c.publish(&events.ExitEvent{BaseEvent: newBase(events.EventExit)})
		return settled(Outcome{Exit: true, Err: ErrNoHistory})
	}

	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.current = top
	c.logger.Debug().Str("location", top).Int("depth", len(c.stack)).Msg("back")
	return c.startLocked(top, false)
}

// Refresh fetches the current location again without touching history.
// A failed refresh corrects nothing.
func (c *Controller) Refresh() <-chan Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == "" {
		return settled(Outcome{Err: ErrEmptyLocation})
	}
	return c.startLocked(c.current, false)
}

// Snapshot returns a copy of the current navigation state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	stack := make([]string, len(c.stack))
	copy(stack, c.stack)
	return Snapshot{
		Stack:      stack,
		Current:    c.current,
		HasHistory: len(c.stack) > 0,
		Breadcrumb: breadcrumb(len(c.stack) > 0),
	}
}

func breadcrumb(hasHistory bool) string {
	if hasHistory {
		return constants.BreadcrumbSub
	}
	return constants.BreadcrumbRoot
}

// startLocked supersedes any in-flight fetch and starts a new one for
// location (must hold lock).
func (c *Controller) startLocked(location string, forward bool) <-chan Outcome {
	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	token := c.token

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel

	c.publishNavigationLocked()
	c.listing.SetLoading(location, true)

	out := make(chan Outcome, 1)
	go c.run(ctx, cancel, token, location, forward, out)
	return out
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, token uint64, location string, forward bool, out chan<- Outcome) {
	defer close(out)
	defer cancel()

	listing, err := c.fetcher.Fetch(ctx, location)
	if err == nil {
		err = listing.Err()
	}

	out <- c.complete(token, location, forward, listing, err)
}

// complete applies a fetch result unless a newer navigation has started.
func (c *Controller) complete(token uint64, location string, forward bool, listing *models.Listing, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.logger.Debug().Str("location", location).Msg("dropping stale completion")
		return Outcome{Location: location, Err: err, Stale: true}
	}
	c.cancel = nil

	outcome := Outcome{Location: location}

	if err == nil {
		c.listing.SetListing(location, listing.Entries)
		outcome.Listing = listing
		c.logger.Debug().Str("location", location).Int("entries", len(listing.Entries)).Msg("listing visible")
		return outcome
	}

	outcome.Err = err
	if forward && len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
		outcome.Corrected = true
	}

	c.logger.Warn().Str("location", location).Bool("forward", forward).Err(err).Msg("navigation failed")
	c.listing.SetFailed(location, forward, err)
	if outcome.Corrected {
		c.publishNavigationLocked()
	}
	if c.bus != nil {
		c.bus.PublishNotice(events.NoticeError, NoticeFor(err), err)
	}
	return outcome
}

func (c *Controller) publishNavigationLocked() {
	snap := c.snapshotLocked()
	c.publish(&events.NavigationEvent{
		BaseEvent:  newBase(events.EventNavigation),
		Current:    snap.Current,
		Depth:      snap.Depth(),
		HasHistory: snap.HasHistory,
		Breadcrumb: snap.Breadcrumb,
	})
}

func (c *Controller) publish(e events.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func newBase(t events.EventType) events.BaseEvent {
	return events.BaseEvent{EventType: t, Time: time.Now()}
}

// settled returns a closed channel holding one outcome.
func settled(o Outcome) <-chan Outcome {
	ch := make(chan Outcome, 1)
	ch <- o
	close(ch)
	return ch
}
