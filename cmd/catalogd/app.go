package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/okawa-catalog/catalog"
	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/feed"
	"github.com/aluiziolira/okawa-catalog/pipeline"
	"github.com/aluiziolira/okawa-catalog/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	store     store.Store
	dataset   *catalog.Dataset
	service   *catalog.Service
	refresher *pipeline.Refresher
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	fetcher, err := feed.NewFetcher(cfg, feed.NewMetrics(registry))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("feed fetcher: %w", err)
	}

	dataset := catalog.NewDataset()
	service, err := catalog.NewService(dataset, st, catalog.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		CacheSize:       cfg.QueryCacheSize,
		Metrics:         catalog.NewMetrics(registry),
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	return &app{
		cfg:       cfg,
		registry:  registry,
		store:     st,
		dataset:   dataset,
		service:   service,
		refresher: pipeline.NewRefresher(cfg, fetcher, st, dataset, pipeline.NewMetrics(registry)),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("close store", slog.Any("error", err))
	}
}
