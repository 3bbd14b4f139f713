package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/okawa-catalog/schedule"
	"github.com/aluiziolira/okawa-catalog/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		noRefresh bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API and run scheduled refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !noRefresh {
				// Bootstrap failures leave the service up with whatever the store holds.
				go func() {
					if err := a.refresher.Bootstrap(ctx); err != nil {
						slog.Error("bootstrap failed", slog.Any("error", err))
					}
				}()
			}

			sched, err := schedule.New(cfg, a.refresher)
			if err != nil {
				return err
			}
			sched.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := sched.Stop(stopCtx); err != nil {
					slog.Warn("scheduler did not stop cleanly", slog.Any("error", err))
				}
			}()

			slog.Info("starting catalog service",
				slog.String("addr", cfg.ListenAddr),
				slog.String("store", cfg.StoreDriver),
				slog.String("feed", cfg.FeedURL),
			)
			return server.NewServer(cfg, a.service, a.refresher, a.registry).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noRefresh, "no-bootstrap", false, "skip the startup refresh or store load")
	return cmd
}
