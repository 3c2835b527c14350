package navigation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folderlink/folderlink/internal/api"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
)

type fakeResponse struct {
	listing *models.Listing
	err     error
}

// fakeFetcher answers from per-location queues. The last queued response
// for a location repeats. Unknown locations fail with a transport error.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	gates     map[string]chan struct{}
	ignoreCtx map[string]bool
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]fakeResponse),
		gates:     make(map[string]chan struct{}),
		ignoreCtx: make(map[string]bool),
	}
}

func (f *fakeFetcher) ok(location string, entries ...models.ListingEntry) *fakeFetcher {
	if entries == nil {
		entries = []models.ListingEntry{}
	}
	return f.respond(location, fakeResponse{listing: &models.Listing{Status: "success", Entries: entries}})
}

func (f *fakeFetcher) fail(location string, err error) *fakeFetcher {
	return f.respond(location, fakeResponse{err: err})
}

func (f *fakeFetcher) respond(location string, r fakeResponse) *fakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[location] = append(f.responses[location], r)
	return f
}

func (f *fakeFetcher) gate(location string, ignoreCtx bool) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[location] = ch
	f.ignoreCtx[location] = ignoreCtx
	return ch
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) (*models.Listing, error) {
	f.mu.Lock()
	f.calls = append(f.calls, location)
	gate := f.gates[location]
	ignoreCtx := f.ignoreCtx[location]
	queue := f.responses[location]
	var r fakeResponse
	found := len(queue) > 0
	if found {
		r = queue[0]
		if len(queue) > 1 {
			f.responses[location] = queue[1:]
		}
	}
	f.mu.Unlock()

	if gate != nil {
		if ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, &api.FetchError{Kind: api.ErrorKindTransport, Location: location, Err: ctx.Err()}
			}
		}
	}

	if !found {
		return nil, &api.FetchError{Kind: api.ErrorKindTransport, Location: location, Err: errors.New("connection refused")}
	}
	return r.listing, r.err
}

func await(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed without a value")
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for navigation outcome")
		return Outcome{}
	}
}

func waitFor(t *testing.T, ch <-chan events.Event, match func(events.Event) bool) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

func newTestController(f Fetcher, bus *events.EventBus) *Controller {
	return NewController(context.Background(), f, bus, logging.NewNopLogger())
}

func folder(name, browse string) models.ListingEntry {
	return models.ListingEntry{Name: name, IsFolder: true, Links: &models.EntryLinks{Browse: &browse}}
}

func file(name, proxy string) models.ListingEntry {
	return models.ListingEntry{Name: name, Links: &models.EntryLinks{Proxy: &proxy}}
}

func TestOpenSuccess(t *testing.T) {
	f := newFakeFetcher().ok("root", folder("Sub", "sub"), file("a.mp4", "p"))
	c := newTestController(f, nil)

	o := await(t, c.Open("root"))

	require.True(t, o.OK(), "outcome: %+v", o)
	assert.Len(t, o.Listing.Entries, 2)

	snap := c.Snapshot()
	assert.Equal(t, "root", snap.Current)
	assert.Empty(t, snap.Stack)
	assert.False(t, snap.HasHistory)
	assert.Equal(t, constants.BreadcrumbRoot, snap.Breadcrumb)
	assert.Equal(t, 2, c.Listing().Count())
	assert.Equal(t, "root", c.Listing().Location())
}

func TestStackSymmetry(t *testing.T) {
	f := newFakeFetcher().ok("root").ok("d1").ok("d2").ok("d3")
	c := newTestController(f, nil)
	require.True(t, await(t, c.Open("root")).OK())

	before := c.Snapshot()

	for _, loc := range []string{"d1", "d2", "d3"} {
		require.True(t, await(t, c.Descend(loc)).OK())
	}
	assert.Equal(t, []string{"root", "d1", "d2"}, c.Snapshot().Stack)

	for i := 0; i < 3; i++ {
		require.True(t, await(t, c.GoBack()).OK())
	}

	after := c.Snapshot()
	assert.Equal(t, before.Current, after.Current)
	assert.Equal(t, before.Depth(), after.Depth())
}

func TestFailedForwardCorrectsStack(t *testing.T) {
	f := newFakeFetcher().ok("A").ok("B")
	c := newTestController(f, nil)
	require.True(t, await(t, c.Open("A")).OK())
	require.True(t, await(t, c.Descend("B")).OK())

	depthBefore := c.Snapshot().Depth()

	o := await(t, c.Descend("C"))

	assert.Error(t, o.Err)
	assert.True(t, o.Corrected)
	snap := c.Snapshot()
	assert.Equal(t, "C", snap.Current, "current is not rolled back")
	assert.Equal(t, depthBefore, snap.Depth())
	assert.Equal(t, []string{"A"}, snap.Stack)
}

func TestBackOnEmptyStackSignalsExitOnce(t *testing.T) {
	bus := events.NewEventBus(16)
	exits := bus.Subscribe(events.EventExit)
	c := newTestController(newFakeFetcher().ok("root"), bus)

	o := await(t, c.GoBack())
	assert.True(t, o.Exit)
	assert.ErrorIs(t, o.Err, ErrNoHistory)
	assert.Equal(t, Snapshot{Stack: []string{}, Breadcrumb: constants.BreadcrumbRoot}, c.Snapshot())

	waitFor(t, exits, func(events.Event) bool { return true })
	select {
	case e := <-exits:
		t.Fatalf("unexpected second exit event %v", e)
	case <-time.After(50 * time.Millisecond):
	}

	// Same from a browsed root.
	require.True(t, await(t, c.Open("root")).OK())
	o = await(t, c.GoBack())
	assert.True(t, o.Exit)
	assert.Equal(t, "root", c.Snapshot().Current)
}

func TestOpenIsIdempotentReset(t *testing.T) {
	f := newFakeFetcher().ok("X").ok("Y")
	c := newTestController(f, nil)

	require.True(t, await(t, c.Open("X")).OK())
	require.True(t, await(t, c.Descend("Y")).OK())

	await(t, c.Open("X"))
	await(t, c.Open("X"))

	snap := c.Snapshot()
	assert.Empty(t, snap.Stack)
	assert.Equal(t, "X", snap.Current)
}

func TestEmptyLocationRejected(t *testing.T) {
	c := newTestController(newFakeFetcher().ok("root"), nil)
	require.True(t, await(t, c.Open("root")).OK())

	assert.ErrorIs(t, await(t, c.Open("")).Err, ErrEmptyLocation)
	assert.ErrorIs(t, await(t, c.Descend("")).Err, ErrEmptyLocation)

	snap := c.Snapshot()
	assert.Equal(t, "root", snap.Current)
	assert.Empty(t, snap.Stack)
}

func TestScenarioDescendFailureAfterRoot(t *testing.T) {
	bus := events.NewEventBus(64)
	notices := bus.Subscribe(events.EventNotice)

	f := newFakeFetcher().ok("root", folder("Docs", "root/docs"), file("clip.mp4", "p1"))
	c := newTestController(f, bus)

	o := await(t, c.Open("root"))
	require.True(t, o.OK())
	require.Len(t, o.Listing.Entries, 2)

	o = await(t, c.Descend(o.Listing.Entries[0].BrowseLocation()))
	require.Error(t, o.Err)

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Depth())
	assert.Equal(t, "root/docs", snap.Current)

	e := waitFor(t, notices, func(events.Event) bool { return true })
	notice := e.(*events.NoticeEvent)
	assert.Equal(t, events.NoticeError, notice.Level)
	assert.Equal(t, "connection failed: connection refused", notice.Message)

	// The previous listing stays visible.
	assert.Equal(t, "root", c.Listing().Location())
}

func TestScenarioDescendThenBack(t *testing.T) {
	f := newFakeFetcher().ok("root").ok("sub")
	c := newTestController(f, nil)

	require.True(t, await(t, c.Open("root")).OK())
	require.True(t, await(t, c.Descend("sub")).OK())
	assert.True(t, c.Snapshot().HasHistory)
	assert.Equal(t, constants.BreadcrumbSub, c.Snapshot().Breadcrumb)

	require.True(t, await(t, c.GoBack()).OK())

	snap := c.Snapshot()
	assert.Equal(t, "root", snap.Current)
	assert.Empty(t, snap.Stack)
	assert.False(t, snap.HasHistory)
}

func TestFailedBackDoesNotCorrect(t *testing.T) {
	f := newFakeFetcher().ok("root").ok("A").fail("A", errors.New("gone")).ok("B")
	c := newTestController(f, nil)

	require.True(t, await(t, c.Open("root")).OK())
	require.True(t, await(t, c.Descend("A")).OK())
	require.True(t, await(t, c.Descend("B")).OK())

	o := await(t, c.GoBack())
	require.Error(t, o.Err)
	assert.False(t, o.Corrected)

	snap := c.Snapshot()
	assert.Equal(t, "A", snap.Current)
	assert.Equal(t, []string{"root"}, snap.Stack)
}

func TestBusinessAndDecodeNotices(t *testing.T) {
	tests := []struct {
		name string
		resp fakeResponse
		want string
	}{
		{"error status", fakeResponse{listing: &models.Listing{Status: "error"}}, NoticeEmptyFolder},
		{"null entries", fakeResponse{listing: &models.Listing{Status: "success"}}, NoticeEmptyFolder},
		{"decode", fakeResponse{err: &api.FetchError{Kind: api.ErrorKindDecode, Err: errors.New("bad json")}}, NoticeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewEventBus(16)
			notices := bus.Subscribe(events.EventNotice)
			f := newFakeFetcher().respond("root", tt.resp)
			c := newTestController(f, bus)

			o := await(t, c.Open("root"))
			require.Error(t, o.Err)

			e := waitFor(t, notices, func(events.Event) bool { return true })
			assert.Equal(t, tt.want, e.(*events.NoticeEvent).Message)
		})
	}
}

func TestStaleCompletionIsDropped(t *testing.T) {
	bus := events.NewEventBus(64)
	notices := bus.Subscribe(events.EventNotice)

	f := newFakeFetcher().ok("root").ok("slow").ok("other")
	gate := f.gate("slow", false)
	defer close(gate)
	c := newTestController(f, bus)
	require.True(t, await(t, c.Open("root")).OK())

	slow := c.Descend("slow")
	fresh := await(t, c.Open("other"))
	stale := await(t, slow)

	assert.True(t, fresh.OK())
	assert.True(t, stale.Stale)
	assert.False(t, stale.Corrected)

	snap := c.Snapshot()
	assert.Equal(t, "other", snap.Current)
	assert.Empty(t, snap.Stack)
	assert.Equal(t, "other", c.Listing().Location())

	select {
	case e := <-notices:
		t.Fatalf("stale completion published a notice: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStaleSuccessDoesNotOverwriteListing(t *testing.T) {
	f := newFakeFetcher().ok("root").ok("slow", file("late.jpg", "p")).ok("fast", file("new.jpg", "p"))
	gate := f.gate("slow", true)
	c := newTestController(f, nil)
	require.True(t, await(t, c.Open("root")).OK())

	slow := c.Descend("slow")
	fast := await(t, c.Open("fast"))
	require.True(t, fast.OK())

	close(gate)
	stale := await(t, slow)

	assert.True(t, stale.Stale)
	assert.NoError(t, stale.Err)
	entries := c.Listing().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "new.jpg", entries[0].Name)
}

func TestRefreshKeepsHistory(t *testing.T) {
	f := newFakeFetcher().ok("root").ok("sub").fail("sub", errors.New("flaky"))
	c := newTestController(f, nil)

	assert.ErrorIs(t, await(t, c.Refresh()).Err, ErrEmptyLocation)

	require.True(t, await(t, c.Open("root")).OK())
	require.True(t, await(t, c.Descend("sub")).OK())

	o := await(t, c.Refresh())
	require.Error(t, o.Err)
	assert.False(t, o.Corrected)
	assert.Equal(t, []string{"root"}, c.Snapshot().Stack)
	assert.Equal(t, "sub", c.Snapshot().Current)
}

func TestNavigationEvents(t *testing.T) {
	bus := events.NewEventBus(64)
	nav := bus.Subscribe(events.EventNavigation)
	f := newFakeFetcher().ok("root").ok("sub")
	c := newTestController(f, bus)

	require.True(t, await(t, c.Open("root")).OK())
	require.True(t, await(t, c.Descend("sub")).OK())

	e := waitFor(t, nav, func(e events.Event) bool {
		return e.(*events.NavigationEvent).Current == "sub"
	})
	ne := e.(*events.NavigationEvent)
	assert.Equal(t, 1, ne.Depth)
	assert.True(t, ne.HasHistory)
	assert.Equal(t, constants.BreadcrumbSub, ne.Breadcrumb)
}

func TestCancelledParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFakeFetcher().ok("root")
	gate := f.gate("root", false)
	defer close(gate)
	c := NewController(ctx, f, nil, logging.NewNopLogger())

	ch := c.Open("root")
	cancel()

	o := await(t, ch)
	assert.True(t, api.IsTransportError(o.Err))
	assert.ErrorIs(t, o.Err, context.Canceled)
}
