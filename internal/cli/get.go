package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/download"
	"github.com/folderlink/folderlink/internal/events"
	"github.com/folderlink/folderlink/internal/progress"
	"github.com/folderlink/folderlink/internal/transfer"
)

func newGetCmd() *cobra.Command {
	var (
		name  string
		dir   string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "get <proxy-url>...",
		Short: "Download files by proxy link",
		Long: `Download one or more files by their proxy links (see 'ls --links').

A single link downloads in the foreground with one progress bar. Several
links download concurrently, [download] workers at a time. Existing files
are never overwritten; a " (n)" suffix is added instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name needs exactly one link")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.DownloadDir = dir
			}
			ctx := GetContext()

			bus := events.NewEventBus(constants.EventBusDefaultBuffer)
			queue := transfer.NewQueue(bus)
			manager, err := download.NewManager(ctx, cfg, queue, GetLogger())
			if err != nil {
				bus.Close()
				return err
			}

			if len(args) == 1 {
				bus.Close()
				filename := name
				if filename == "" {
					filename = filenameFromURL(args[0])
				}
				return getOne(ctx, cmd, manager, args[0], filename, quiet)
			}
			return getMany(ctx, cmd, manager, bus, args)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Save under this name (single link only)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Download directory (overrides config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "No progress bar")

	return cmd
}

type reporter interface {
	download.Progress
	Finish()
	Error(err error)
}

func getOne(ctx context.Context, cmd *cobra.Command, manager *download.Manager, link, filename string, quiet bool) error {
	var bar reporter = progress.NewCLIProgress(filename)
	if quiet {
		bar = progress.NewNoOpProgress()
	}

	dest, err := manager.Fetch(ctx, link, filename, "", bar)
	if err != nil {
		bar.Error(err)
		return fmt.Errorf("download failed: %w", err)
	}
	bar.Finish()
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", dest)
	return nil
}

func getMany(ctx context.Context, cmd *cobra.Command, manager *download.Manager, bus *events.EventBus, links []string) error {
	ui := progress.NewDownloadUI(os.Stderr)
	sub := bus.SubscribeAll()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.Run(ctx, sub)
	}()

	for _, link := range links {
		if err := manager.Download(ctx, link, filenameFromURL(link)); err != nil {
			GetLogger().Error().Str("link", link).Err(err).Msg("failed to queue download")
		}
	}

	manager.Wait()
	bus.Close()
	<-done
	ui.Wait()

	completed, failed := ui.Results()
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d downloads completed (%s)\n", completed, len(links), manager.Dir())
	if failed > 0 || completed < len(links) {
		return fmt.Errorf("%d download(s) did not complete", len(links)-completed)
	}
	return nil
}

// filenameFromURL guesses a filename from the last path segment of link.
// The download manager sanitizes it and falls back to "download".
func filenameFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	for _, key := range []string{"filename", "name", "file"} {
		if v := u.Query().Get(key); v != "" {
			return v
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
