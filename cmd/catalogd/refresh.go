package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the feed once and replace the stored catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.refresher.Refresh(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Refresh %s complete\n", outcome.RunID)
			fmt.Fprintf(out, "  Articles:     %d\n", outcome.Articles)
			fmt.Fprintf(out, "  Rows read:    %d\n", outcome.Rows)
			fmt.Fprintf(out, "  Rows skipped: %d\n", outcome.SkippedRows)
			fmt.Fprintf(out, "  Feed bytes:   %d\n", outcome.FeedBytes)
			fmt.Fprintf(out, "  Attempts:     %d\n", outcome.Attempts)
			fmt.Fprintf(out, "  Duration:     %v\n", outcome.EndTime.Sub(outcome.StartTime))
			return nil
		},
	}
}
