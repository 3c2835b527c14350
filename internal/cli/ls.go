package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/folderlink/folderlink/internal/models"
	"github.com/folderlink/folderlink/internal/navigation"
	"github.com/folderlink/folderlink/internal/state"
	"github.com/folderlink/folderlink/internal/tui"
)

func newLsCmd() *cobra.Command {
	var (
		filter      string
		foldersOnly bool
		sortBy      string
		showLinks   bool
	)

	cmd := &cobra.Command{
		Use:   "ls <link> [folder/sub]",
		Short: "Print one folder listing",
		Long: `Fetch the root of a shared folder and print its entries. An optional
slash-separated path descends through sub folders by name first.

Examples:
  folderlink ls https://terabox.com/s/1abc
  folderlink ls 1abc "Season 1" --filter '*.mkv'
  folderlink ls 1abc --links --sort size`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch sortBy {
			case state.SortServer, state.SortName, state.SortSize:
			default:
				return fmt.Errorf("unknown sort %q (use name or size)", sortBy)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := GetContext()

			s, err := newSession(ctx, cfg, GetLogger())
			if err != nil {
				return err
			}
			defer s.Close()

			root, err := s.rootLocation(args[0])
			if err != nil {
				return err
			}
			outcome := <-s.controller.Open(root)
			if err := outcomeError(outcome); err != nil {
				return err
			}

			if len(args) == 2 {
				for _, name := range splitPath(args[1]) {
					target, err := findFolder(outcome.Listing.Entries, name)
					if err != nil {
						return err
					}
					outcome = <-s.controller.Descend(target.BrowseLocation())
					if err := outcomeError(outcome); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
				}
			}

			listing := s.controller.Listing()
			listing.SetSort(sortBy)
			entries, err := filterEntries(listing.Entries(), filter, foldersOnly)
			if err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), entries, showLinks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show names matching a glob, e.g. '*.mp4' (case-insensitive)")
	cmd.Flags().BoolVar(&foldersOnly, "folders-only", false, "Only show folders")
	cmd.Flags().StringVar(&sortBy, "sort", state.SortServer, "Sort by name or size (default: server order)")
	cmd.Flags().BoolVar(&showLinks, "links", false, "Print each entry's proxy or browse link")

	return cmd
}

// outcomeError turns a failed navigation into the message the browser
// would show as a notice.
func outcomeError(o navigation.Outcome) error {
	if o.OK() {
		return nil
	}
	if o.Stale || o.Err == nil {
		return fmt.Errorf("navigation of %s was superseded", o.Location)
	}
	return fmt.Errorf("%s: %w", navigation.NoticeFor(o.Err), o.Err)
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// findFolder returns the folder called name, preferring an exact match
// over a case-insensitive one.
func findFolder(entries []models.ListingEntry, name string) (models.ListingEntry, error) {
	var fold *models.ListingEntry
	for i := range entries {
		e := entries[i]
		if !e.IsFolder {
			continue
		}
		if e.Name == name {
			return e, nil
		}
		if fold == nil && strings.EqualFold(e.Name, name) {
			fold = &entries[i]
		}
	}
	if fold != nil {
		return *fold, nil
	}
	return models.ListingEntry{}, fmt.Errorf("no folder named %q", name)
}

func filterEntries(entries []models.ListingEntry, pattern string, foldersOnly bool) ([]models.ListingEntry, error) {
	var matcher glob.Glob
	if pattern != "" {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
		}
		matcher = g
	}

	out := make([]models.ListingEntry, 0, len(entries))
	for _, e := range entries {
		if foldersOnly && !e.IsFolder {
			continue
		}
		if matcher != nil && !matcher.Match(strings.ToLower(e.Name)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func printListing(w io.Writer, entries []models.ListingEntry, showLinks bool) {
	width := 0
	for _, e := range entries {
		if n := len([]rune(e.Name)); n > width {
			width = n
		}
	}

	for _, e := range entries {
		name := e.Name
		if e.IsFolder {
			name += "/"
		}
		line := fmt.Sprintf("%-*s  %s", width+1, name, tui.RowLabel(e))
		if showLinks {
			link := e.ProxyLocation()
			if e.IsFolder {
				link = e.BrowseLocation()
			}
			if link == "" {
				link = "-"
			}
			line += "  " + link
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "%d entries\n", len(entries))
}
