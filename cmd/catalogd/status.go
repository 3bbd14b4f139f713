package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last refresh outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Catalog Status")
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "  Store:     %s\n", cfg.StoreDriver)
			fmt.Fprintf(out, "  Feed:      %s (%s)\n", cfg.FeedURL, cfg.EntryName)

			count, err := a.store.CountArticles(ctx)
			if err != nil {
				return fmt.Errorf("count articles: %w", err)
			}
			fmt.Fprintf(out, "  Articles:  %d\n", count)

			status, err := a.service.Status(ctx)
			if err != nil {
				return err
			}
			if status == nil {
				fmt.Fprintln(out, "  Refresh:   Sin registros")
				return nil
			}
			fmt.Fprintf(out, "  Refresh:   %s at %s\n", status.State, status.UpdatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  Details:   %s\n", status.Details)
			if status.RunID != "" {
				fmt.Fprintf(out, "  Run:       %s (%dms)\n", status.RunID, status.DurationMS)
			}
			return nil
		},
	}
}
