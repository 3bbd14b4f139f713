// Package pipeline refreshes the catalog from the vendor feed and exports it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/okawa-catalog/catalog"
	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/feed"
	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/parser"
	"github.com/aluiziolira/okawa-catalog/store"
	"github.com/google/uuid"
)

var (
	// ErrRefreshInProgress is returned when Refresh is called while another
	// refresh is running.
	ErrRefreshInProgress = errors.New("pipeline: refresh already in progress")
	// ErrNoArticles is returned when the feed holds no usable rows.
	ErrNoArticles = errors.New("pipeline: feed produced no articles")
)

// statusTimeout bounds the status write that closes every refresh.
const statusTimeout = 10 * time.Second

// Downloader fetches the raw vendor archive.
type Downloader interface {
	Download(ctx context.Context) (*feed.Download, error)
}

// Refresher replaces the active catalog with a fresh copy of the feed.
// At most one refresh runs at a time.
type Refresher struct {
	cfg     *config.Config
	source  Downloader
	store   store.Store
	dataset *catalog.Dataset
	metrics *Metrics

	running atomic.Bool
	now     func() time.Time
}

// NewRefresher wires a refresher. metrics may be nil.
func NewRefresher(cfg *config.Config, source Downloader, st store.Store, dataset *catalog.Dataset, metrics *Metrics) *Refresher {
	return &Refresher{
		cfg:     cfg,
		source:  source,
		store:   st,
		dataset: dataset,
		metrics: metrics,
		now:     time.Now,
	}
}

// Running reports whether a refresh is in progress.
func (r *Refresher) Running() bool {
	return r.running.Load()
}

// Refresh downloads, parses and persists the feed, then swaps it into the
// dataset. On failure the dataset and store keep their previous contents.
// Either way the outcome is recorded as the refresh status.
func (r *Refresher) Refresh(ctx context.Context) (*models.RefreshOutcome, error) {
	if !r.running.CompareAndSwap(false, true) {
		slog.Info("refresh skipped, another one is running")
		r.metrics.incAttempt("skipped")
		return nil, ErrRefreshInProgress
	}
	defer r.running.Store(false)

	outcome := &models.RefreshOutcome{
		RunID:     uuid.NewString(),
		StartTime: r.now(),
	}
	logger := slog.With(slog.String("run_id", outcome.RunID))
	logger.Info("refresh started", slog.String("url", r.cfg.FeedURL))

	err := r.run(ctx, outcome, logger)
	outcome.EndTime = r.now()
	elapsed := outcome.EndTime.Sub(outcome.StartTime)
	r.metrics.observeDuration(elapsed)

	status := models.RefreshStatus{
		Source:     r.cfg.SourceLabel,
		UpdatedAt:  outcome.EndTime,
		RunID:      outcome.RunID,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		status.State = models.StateError
		status.Details = err.Error()
		r.metrics.incAttempt("error")
		logger.Error("refresh failed",
			slog.String("category", feed.ErrorTypeLabel(err)),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
	} else {
		status.State = models.StateOK
		status.Details = fmt.Sprintf("%d artículos cargados", outcome.Articles)
		r.metrics.incAttempt("ok")
		r.metrics.setArticles(outcome.Articles)
		logger.Info("refresh completed",
			slog.Int("articles", outcome.Articles),
			slog.Int("skipped_rows", outcome.SkippedRows),
			slog.Int("attempts", outcome.Attempts),
			slog.Duration("elapsed", elapsed),
		)
	}

	// The status write outlives a cancelled refresh so the failure is recorded.
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()
	if serr := r.store.SaveStatus(statusCtx, status); serr != nil {
		logger.Error("save refresh status", slog.Any("error", serr))
	}

	return outcome, err
}

func (r *Refresher) run(ctx context.Context, outcome *models.RefreshOutcome, logger *slog.Logger) error {
	dl, err := r.source.Download(ctx)
	if err != nil {
		return fmt.Errorf("download feed: %w", err)
	}
	outcome.Attempts = dl.Attempts
	outcome.FeedBytes = len(dl.Body)
	logger.Debug("feed downloaded",
		slog.Int("bytes", len(dl.Body)),
		slog.Int("attempts", dl.Attempts),
		slog.Duration("duration", dl.Duration),
	)

	sheet, err := feed.ExtractEntry(dl.Body, r.cfg.EntryName)
	if err != nil {
		return err
	}
	rows, err := feed.ParseSheet(r.cfg.EntryName, sheet)
	if err != nil {
		return fmt.Errorf("parse %s: %w", r.cfg.EntryName, err)
	}
	outcome.Rows = len(rows)

	articles := make([]models.Article, 0, len(rows))
	for _, row := range rows {
		article := parser.NormalizeRow(row)
		if err := parser.ValidateArticle(article); err != nil {
			outcome.SkippedRows++
			continue
		}
		articles = append(articles, article)
	}
	if outcome.SkippedRows > 0 {
		r.metrics.addSkipped(outcome.SkippedRows)
	}
	if len(articles) == 0 {
		return fmt.Errorf("%w (%d rows read)", ErrNoArticles, len(rows))
	}

	if err := r.store.ReplaceArticles(ctx, articles, r.cfg.BatchSize); err != nil {
		return fmt.Errorf("persist articles: %w", err)
	}
	r.dataset.Swap(articles)
	outcome.Articles = len(articles)
	return nil
}

// Bootstrap prepares the dataset at startup: an empty store triggers a
// refresh, otherwise the stored catalog is loaded into the dataset.
func (r *Refresher) Bootstrap(ctx context.Context) error {
	count, err := r.store.CountArticles(ctx)
	if err != nil {
		return fmt.Errorf("count stored articles: %w", err)
	}
	if count == 0 {
		slog.Info("store is empty, refreshing from feed")
		if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			return err
		}
		return nil
	}

	articles, err := r.store.LoadArticles(ctx)
	if err != nil {
		return fmt.Errorf("load stored articles: %w", err)
	}
	active, _ := r.dataset.FillIfEmpty(articles)
	r.metrics.setArticles(len(active))
	slog.Info("catalog loaded from store", slog.Int("articles", len(active)))
	return nil
}
