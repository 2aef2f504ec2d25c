package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pathwaylabs/engage/internal/track"
	"github.com/spf13/cobra"
)

func newTrackCmd() *cobra.Command {
	var feedURL string

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Consume the page visibility feed and accumulate view time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			url := feedURL
			if url == "" {
				url = a.cfg.Track.FeedURL
			}
			if url == "" {
				return fmt.Errorf("no feed URL configured (set track.feedUrl or --feed)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			feed := track.NewFeed(url, a.tracker, log)
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feedURL, "feed", "", "websocket feed URL (overrides config)")
	return cmd
}
