package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/logger"
)

var (
	listAll      bool
	listWatch    bool
	listInterval time.Duration
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories from the feed",
		Long: `List loads the first page of the feed and prints it as a table.
With --all it keeps loading pages until the collection is exhausted.
With --watch it stays running and refetches the feed on an interval,
picking up credential changes from a watched token file as they happen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			if listWatch {
				ctx, stop := signalContext(cmd.Context())
				defer stop()
				return watchList(ctx, d)
			}
			return runList(cmd.Context(), d)
		},
	}

	cmd.Flags().BoolVar(&listAll, "all", false, "keep loading pages until the collection is exhausted")
	cmd.Flags().BoolVar(&listWatch, "watch", false, "stay running and refresh the feed on an interval")
	cmd.Flags().DurationVar(&listInterval, "interval", 30*time.Second, "refresh interval for --watch")
	return cmd
}

func runList(ctx context.Context, d *deps) error {
	if err := d.feed.LoadMore(ctx); err != nil {
		return err
	}
	if listAll {
		if err := drainFeed(ctx, d); err != nil {
			return err
		}
	}

	printFeed(d)
	return nil
}

// drainFeed keeps loading pages until the server reports the collection
// exhausted. A page that makes no progress ends the loop so a confused
// total can never spin it forever.
func drainFeed(ctx context.Context, d *deps) error {
	for {
		snap := d.feed.Snapshot()
		if !snap.HasMore {
			return nil
		}
		if err := d.feed.LoadMore(ctx); err != nil {
			return err
		}
		if d.feed.Snapshot().Offset == snap.Offset {
			d.log.Warn("endpoint reported more stories but returned none, stopping",
				logger.Int("offset", snap.Offset),
				logger.Int("total", snap.Total))
			return nil
		}
	}
}

func watchList(ctx context.Context, d *deps) error {
	if err := d.feed.LoadMore(ctx); err != nil {
		renderError(os.Stderr, err)
	}
	printFeed(d)

	ticker := time.NewTicker(listInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Errors keep the watch alive; the previous table plus a
			// rendered error is more useful than exiting.
			if err := d.feed.Reset(ctx); err != nil {
				renderError(os.Stderr, err)
				continue
			}
			printFeed(d)
		}
	}
}

func printFeed(d *deps) {
	snap := d.feed.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Println("No stories.")
		return
	}

	renderStoriesTable(os.Stdout, snap.Items)
	fmt.Printf("Showing %d of %d stories", snap.Offset, snap.Total)
	if snap.HasMore {
		fmt.Print(" (rerun with --all for the rest)")
	}
	fmt.Println()
}
