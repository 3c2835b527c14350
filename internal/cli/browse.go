package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/player"
	"github.com/folderlink/folderlink/internal/tui"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [link]",
		Short: "Browse a shared folder interactively",
		Long: `Open the interactive browser. The link may be a full share address or
a bare share code. Without a link the browser asks for one.

Keys:
  enter      open folder, play/download video, preview image, download file
  esc        back (exits at the root folder)
  r          refresh
  s          cycle sort order (server, name, size)
  R / X      retry last failed download / cancel downloads
  q          quit

Logs are written to the log directory, see 'folderlink config path'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := ""
			if len(args) == 1 {
				link = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logFile, err := openLogFile()
			if err != nil {
				return err
			}
			defer logFile.Close()
			logger = logging.NewLogger("tui", logFile)

			ctx, cancel := context.WithCancel(GetContext())
			defer cancel()

			s, err := newSession(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			play, err := player.NewCommand(cfg.PlayerCommand, logger)
			if err != nil {
				return fmt.Errorf("invalid player command: %w", err)
			}
			if !play.Available() {
				logger.Warn().Str("command", play.Name()).Msg("player not found on PATH")
			}
			previewCmd := cfg.PreviewCommand
			if previewCmd == "" {
				previewCmd = config.DefaultPreviewCommand()
			}
			preview, err := player.NewCommand(previewCmd, logger)
			if err != nil {
				return fmt.Errorf("invalid preview command: %w", err)
			}

			model := tui.New(tui.Deps{
				Ctx:        ctx,
				Controller: s.controller,
				Bus:        s.bus,
				Player:     play,
				Previewer:  preview,
				Downloader: s.downloads,
				Transfers:  s.queue,
				APIBaseURL: cfg.APIBaseURL,
				SitePrefix: cfg.SitePrefix,
				Logger:     logger,
			}, link)
			defer model.Close()

			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("browser failed: %w", err)
			}

			if running := s.queue.GetStats().Running(); running > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for %d download(s) to finish (Ctrl+C to cancel)...\n", running)
			}
			s.downloads.Wait()

			stats := s.queue.GetStats()
			if stats.Total() > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Downloads: %d completed, %d failed, %d cancelled (%s)\n",
					stats.Completed, stats.Failed, stats.Cancelled, s.downloads.Dir())
			}
			return nil
		},
	}
	return cmd
}

// openLogFile opens the browser's log file for appending.
func openLogFile() (*os.File, error) {
	if err := config.EnsureLogDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(config.LogDirectory(), "browse.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
