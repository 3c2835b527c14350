// Package dispatch decides what happens when the user selects an entry:
// descend into a folder, offer stream-or-download for a video, preview an
// image, or download anything else.
package dispatch

import (
	"context"
	"fmt"

	"github.com/folderlink/folderlink/internal/classify"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
	"github.com/folderlink/folderlink/internal/navigation"
)

// Notices published by the dispatcher.
const (
	NoticeLinkError      = "link error"
	NoticeDownloading    = "downloading..."
	NoticeDownloadFailed = "download failed"
	NoticePlayFailed     = "playback failed"
	NoticePreviewFailed  = "preview failed"
)

// Navigator is the part of the navigation controller the dispatcher drives.
type Navigator interface {
	Descend(location string) <-chan navigation.Outcome
}

// Player opens a streaming player for a proxy address.
type Player interface {
	Play(ctx context.Context, proxy string) error
}

// Previewer shows an image from a proxy address.
type Previewer interface {
	Preview(ctx context.Context, proxy string) error
}

// Downloader starts a background download. It returns once the download
// is queued.
type Downloader interface {
	Download(ctx context.Context, proxy, filename string) error
}

// Chooser presents the stream-or-download choice. The presentation answers
// later by calling Dispatcher.Stream or Dispatcher.Download.
type Chooser interface {
	OfferStreamOrDownload(entry models.ListingEntry)
}

// Collaborators groups the dispatcher's external dependencies.
type Collaborators struct {
	Navigator  Navigator
	Player     Player
	Previewer  Previewer
	Downloader Downloader
	Chooser    Chooser
}

// Action is what Dispatch decided to do.
type Action int

const (
	ActionNone Action = iota
	ActionDescend
	ActionOfferChoice
	ActionPreview
	ActionDownload
)

func (a Action) String() string {
	switch a {
	case ActionDescend:
		return "descend"
	case ActionOfferChoice:
		return "offer-choice"
	case ActionPreview:
		return "preview"
	case ActionDownload:
		return "download"
	default:
		return "none"
	}
}

// LinkError reports an entry without the address its action needs.
type LinkError struct {
	Name string
	Link string // "browse" or "proxy"
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%q has no %s link", e.Name, e.Link)
}

// Dispatcher routes selected entries to collaborators.
type Dispatcher struct {
	collab Collaborators
	bus    *events.EventBus
	logger *logging.Logger
}

// NewDispatcher creates a Dispatcher. bus may be nil.
func NewDispatcher(collab Collaborators, bus *events.EventBus, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dispatcher{
		collab: collab,
		bus:    bus,
		logger: logger.Named("dispatch"),
	}
}

// Dispatch runs the action for entry and returns which one it chose.
// A *LinkError abandons the dispatch with ActionNone and a notice.
func (d *Dispatcher) Dispatch(ctx context.Context, entry models.ListingEntry) (Action, error) {
	if entry.IsFolder {
		location := entry.BrowseLocation()
		if location == "" {
			return ActionNone, d.linkError(entry, "browse")
		}
		d.collab.Navigator.Descend(location)
		return ActionDescend, nil
	}

	proxy := entry.ProxyLocation()
	if proxy == "" {
		return ActionNone, d.linkError(entry, "proxy")
	}

	if classify.Streamable(entry.Name) {
		d.logger.Debug().Str("name", entry.Name).Msg("offering stream or download")
		d.collab.Chooser.OfferStreamOrDownload(entry)
		return ActionOfferChoice, nil
	}

	if classify.Classify(entry.Name) == classify.Image {
		if err := d.collab.Previewer.Preview(ctx, proxy); err != nil {
			d.logger.Warn().Str("name", entry.Name).Err(err).Msg("preview failed")
			d.notice(events.NoticeWarn, NoticePreviewFailed, err)
			return ActionPreview, fmt.Errorf("preview %s: %w", entry.Name, err)
		}
		return ActionPreview, nil
	}

	return ActionDownload, d.download(ctx, entry, proxy)
}

// Stream hands entry to the player. Called when the user picks streaming.
func (d *Dispatcher) Stream(ctx context.Context, entry models.ListingEntry) error {
	proxy := entry.ProxyLocation()
	if proxy == "" {
		return d.linkError(entry, "proxy")
	}

	d.logger.Info().Str("name", entry.Name).Msg("streaming")
	if err := d.collab.Player.Play(ctx, proxy); err != nil {
		d.logger.Warn().Str("name", entry.Name).Err(err).Msg("playback failed")
		d.notice(events.NoticeWarn, NoticePlayFailed, err)
		return fmt.Errorf("play %s: %w", entry.Name, err)
	}
	return nil
}

// Download queues entry for download. Called directly for plain files and
// when the user picks downloading in the choice dialog.
func (d *Dispatcher) Download(ctx context.Context, entry models.ListingEntry) error {
	proxy := entry.ProxyLocation()
	if proxy == "" {
		return d.linkError(entry, "proxy")
	}
	return d.download(ctx, entry, proxy)
}

func (d *Dispatcher) download(ctx context.Context, entry models.ListingEntry, proxy string) error {
	if err := d.collab.Downloader.Download(ctx, proxy, entry.Name); err != nil {
		d.logger.Error().Str("name", entry.Name).Err(err).Msg("download failed to start")
		d.notice(events.NoticeError, NoticeDownloadFailed, err)
		return fmt.Errorf("download %s: %w", entry.Name, err)
	}
	d.notice(events.NoticeInfo, NoticeDownloading, nil)
	return nil
}

func (d *Dispatcher) linkError(entry models.ListingEntry, link string) error {
	err := &LinkError{Name: entry.Name, Link: link}
	d.logger.Warn().Str("name", entry.Name).Str("link", link).Msg("entry has no link")
	d.notice(events.NoticeError, NoticeLinkError, err)
	return err
}

func (d *Dispatcher) notice(level events.NoticeLevel, msg string, err error) {
	if d.bus != nil {
		d.bus.PublishNotice(level, msg, err)
	}
}
