package cli

import (
	"context"
	"fmt"

	"github.com/folderlink/folderlink/internal/api"
	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/download"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/navigation"
	"github.com/folderlink/folderlink/internal/transfer"
)

// session wires the engine for one command run.
type session struct {
	cfg        *config.Config
	bus        *events.EventBus
	controller *navigation.Controller
	queue      *transfer.Queue
	downloads  *download.Manager
}

func newSession(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*session, error) {
	client, err := api.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing client: %w", err)
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	queue := transfer.NewQueue(bus)
	downloads, err := download.NewManager(ctx, cfg, queue, logger)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to create download manager: %w", err)
	}

	return &session{
		cfg:        cfg,
		bus:        bus,
		controller: navigation.NewController(ctx, client, bus, logger),
		queue:      queue,
		downloads:  downloads,
	}, nil
}

// rootLocation turns a pasted link or share code into a listing location.
func (s *session) rootLocation(link string) (string, error) {
	return api.ComposeRootLocation(s.cfg.APIBaseURL, s.cfg.SitePrefix, link)
}

func (s *session) Close() {
	s.bus.Close()
}
