// Package tui is the interactive folder browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/folderlink/folderlink/internal/api"
	"github.com/folderlink/folderlink/internal/dispatch"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
	"github.com/folderlink/folderlink/internal/navigation"
	"github.com/folderlink/folderlink/internal/state"
	"github.com/folderlink/folderlink/internal/transfer"
)

// Texts shown by the browser itself.
const (
	NoticeEmptyLink = "paste a link first"

	OptionStream   = "Play streaming"
	OptionDownload = "Download"
)

const noticeTTL = 4 * time.Second

// TransferQueue is the part of the download queue the browser shows and controls.
type TransferQueue interface {
	GetStats() transfer.QueueStats
	Retry(taskID string) error
	CancelAll()
}

// Deps are the engine parts the browser drives.
type Deps struct {
	Ctx        context.Context
	Controller *navigation.Controller
	Bus        *events.EventBus
	Player     dispatch.Player
	Previewer  dispatch.Previewer
	Downloader dispatch.Downloader
	Transfers  TransferQueue // optional
	APIBaseURL string
	SitePrefix string
	Logger     *logging.Logger
}

type screen int

const (
	screenInput  screen = iota // waiting for a link
	screenBrowse               // showing a listing
)

type (
	busMsg           struct{ event events.Event }
	busClosedMsg     struct{}
	noticeExpiredMsg struct{ seq int }
	submitMsg        struct{ link string }
)

// Model is the bubbletea model of the browser. It is also the dispatcher's
// Chooser: offering a choice opens the stream/download dialog.
type Model struct {
	ctx        context.Context
	ctrl       *navigation.Controller
	dispatcher *dispatch.Dispatcher
	bus        *events.EventBus
	sub        <-chan events.Event
	transfers  TransferQueue
	apiBase    string
	sitePrefix string
	logger     *logging.Logger

	keys    KeyMap
	screen  screen
	input   textinput.Model
	spinner spinner.Model

	loading  bool
	location string
	entries  []models.ListingEntry
	cursor   int
	nav      navigation.Snapshot

	notice      string
	noticeLevel events.NoticeLevel
	noticeSeq   int

	choice       *models.ListingEntry
	choiceCursor int

	lastFailed  string
	initialLink string
	width       int
	height      int
	quitting    bool
}

// New creates the browser. A non-empty link is opened as soon as the
// program starts.
func New(deps Deps, link string) *Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	ti := textinput.New()
	ti.Placeholder = "share link or code"
	ti.CharLimit = 2048
	ti.Width = 60
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7EC8E3"))

	m := &Model{
		ctx:         deps.Ctx,
		ctrl:        deps.Controller,
		bus:         deps.Bus,
		transfers:   deps.Transfers,
		apiBase:     deps.APIBaseURL,
		sitePrefix:  deps.SitePrefix,
		logger:      deps.Logger.Named("tui"),
		keys:        DefaultKeyMap(),
		screen:      screenInput,
		input:       ti,
		spinner:     s,
		initialLink: strings.TrimSpace(link),
	}
	m.dispatcher = dispatch.NewDispatcher(dispatch.Collaborators{
		Navigator:  deps.Controller,
		Player:     deps.Player,
		Previewer:  deps.Previewer,
		Downloader: deps.Downloader,
		Chooser:    m,
	}, deps.Bus, deps.Logger)
	if deps.Bus != nil {
		m.sub = deps.Bus.SubscribeAll()
	}
	return m
}

// Close drops the bus subscription.
func (m *Model) Close() {
	if m.bus != nil && m.sub != nil {
		m.bus.UnsubscribeAll(m.sub)
	}
}

// OfferStreamOrDownload opens the choice dialog for entry.
func (m *Model) OfferStreamOrDownload(entry models.ListingEntry) {
	e := entry
	m.choice = &e
	m.choiceCursor = 0
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitForEvent()}
	if m.initialLink != "" {
		link := m.initialLink
		cmds = append(cmds, func() tea.Msg { return submitMsg{link: link} })
	}
	return tea.Batch(cmds...)
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return busMsg{event: ev}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case busMsg:
		cmd := m.handleEvent(msg.event)
		if m.quitting {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case submitMsg:
		return m, m.submit(msg.link)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.screen == screenInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleEvent(e events.Event) tea.Cmd {
	switch ev := e.(type) {
	case *events.LoadingEvent:
		wasLoading := m.loading
		m.loading = ev.Loading
		if m.loading && !wasLoading {
			return m.spinner.Tick
		}

	case *events.ListingEvent:
		m.loading = false
		m.refreshEntries(ev.Location, ev.Entries)

	case *events.ListingFailedEvent:
		m.loading = false

	case *events.NavigationEvent:
		m.nav = navigation.Snapshot{
			Current:    ev.Current,
			HasHistory: ev.HasHistory,
			Breadcrumb: ev.Breadcrumb,
		}

	case *events.NoticeEvent:
		return m.setNotice(ev.Level, ev.Message)

	case *events.ExitEvent:
		m.quitting = true
		return tea.Quit

	case *events.TransferEvent:
		switch ev.Type() {
		case events.EventTransferFailed:
			m.lastFailed = ev.TaskID
		case events.EventTransferStarted, events.EventTransferCompleted:
			if m.lastFailed == ev.TaskID {
				m.lastFailed = ""
			}
		}
	}
	return nil
}

func (m *Model) refreshEntries(location string, entries []models.ListingEntry) {
	if location != m.location {
		m.cursor = 0
	}
	m.location = location
	m.entries = entries
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setNotice(level events.NoticeLevel, message string) tea.Cmd {
	m.noticeSeq++
	m.notice = message
	m.noticeLevel = level
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m *Model) submit(link string) tea.Cmd {
	root, err := api.ComposeRootLocation(m.apiBase, m.sitePrefix, link)
	if errors.Is(err, api.ErrEmptyInput) {
		return m.setNotice(events.NoticeWarn, NoticeEmptyLink)
	}
	if err != nil {
		return m.setNotice(events.NoticeError, err.Error())
	}

	m.logger.Debug().Str("root", root).Msg("opening root")
	m.screen = screenBrowse
	m.input.Blur()
	m.ctrl.Open(root)
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.screen == screenInput {
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submit(m.input.Value())
		case tea.KeyEsc:
			if m.nav.Current != "" {
				m.screen = screenBrowse
				m.input.Blur()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.choice != nil {
		return m, m.handleChoiceKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		if entry, ok := m.selected(); ok {
			action, err := m.dispatcher.Dispatch(m.ctx, entry)
			m.logger.Debug().Str("name", entry.Name).Stringer("action", action).Err(err).Msg("dispatched")
		}

	case key.Matches(msg, m.keys.Back):
		m.ctrl.GoBack()

	case key.Matches(msg, m.keys.NewLink):
		m.screen = screenInput
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.ctrl.Refresh()

	case key.Matches(msg, m.keys.Sort):
		listing := m.ctrl.Listing()
		listing.SetSort(nextSort(listing.Sort()))

	case key.Matches(msg, m.keys.Retry):
		if m.transfers == nil || m.lastFailed == "" {
			return m, nil
		}
		if err := m.transfers.Retry(m.lastFailed); err != nil {
			return m, m.setNotice(events.NoticeWarn, fmt.Sprintf("retry failed: %v", err))
		}

	case key.Matches(msg, m.keys.Cancel):
		if m.transfers != nil {
			m.transfers.CancelAll()
		}
	}
	return m, nil
}

func (m *Model) handleChoiceKey(msg tea.KeyMsg) tea.Cmd {
	entry := *m.choice
	switch msg.String() {
	case "esc", "q":
		m.choice = nil
		return nil
	case "up", "down", "left", "right", "tab", "k", "j":
		m.choiceCursor = 1 - m.choiceCursor
		return nil
	case "1", "p":
		m.choiceCursor = 0
	case "2", "d":
		m.choiceCursor = 1
	case "enter":
	default:
		return nil
	}

	m.choice = nil
	var err error
	if m.choiceCursor == 0 {
		err = m.dispatcher.Stream(m.ctx, entry)
	} else {
		err = m.dispatcher.Download(m.ctx, entry)
	}
	if err != nil {
		m.logger.Debug().Str("name", entry.Name).Err(err).Msg("choice failed")
	}
	return nil
}

func (m *Model) selected() (models.ListingEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return models.ListingEntry{}, false
	}
	return m.entries[m.cursor], true
}

func nextSort(current string) string {
	switch current {
	case state.SortServer:
		return state.SortName
	case state.SortName:
		return state.SortSize
	default:
		return state.SortServer
	}
}

// Choice returns the entry the stream/download dialog is open for.
func (m *Model) Choice() (models.ListingEntry, bool) {
	if m.choice == nil {
		return models.ListingEntry{}, false
	}
	return *m.choice, true
}

// Cursor returns the selected row.
func (m *Model) Cursor() int {
	return m.cursor
}

// Notice returns the notice currently shown, or "".
func (m *Model) Notice() string {
	return m.notice
}

// Browsing reports whether a root has been opened.
func (m *Model) Browsing() bool {
	return m.screen == screenBrowse
}
