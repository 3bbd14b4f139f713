// Package schedule runs the daily refresh and the optional keep-alive ping.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/gocolly/colly/v2"
	"github.com/robfig/cron/v3"
)

const pingTimeout = 30 * time.Second

// Refresher is the job the daily schedule runs.
type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshOutcome, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cfg       *config.Config
	cron      *cron.Cron
	refresher Refresher
	pinger    *colly.Collector

	ctx    context.Context
	cancel context.CancelFunc

	refreshID   cron.EntryID
	keepAliveID cron.EntryID
}

// DailyExpression renders a standard cron expression firing once a day at hour:minute.
func DailyExpression(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// New registers the daily refresh at cfg.RefreshAt in cfg.Timezone and, when
// cfg.KeepAliveURL is set, a ping every cfg.KeepAliveInterval.
func New(cfg *config.Config, refresher Refresher) (*Scheduler, error) {
	hour, minute, err := cfg.RefreshClock()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger := slogAdapter{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:       cfg,
		cron:      c,
		refresher: refresher,
		pinger:    newPinger(cfg),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.refreshID, err = c.AddFunc(DailyExpression(hour, minute), s.runRefresh)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}
	if cfg.KeepAliveURL != "" && cfg.KeepAliveInterval > 0 {
		s.keepAliveID = c.Schedule(cron.Every(cfg.KeepAliveInterval), cron.FuncJob(s.runPing))
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started",
		slog.String("refresh_at", s.cfg.RefreshAt),
		slog.String("timezone", s.cfg.Timezone),
		slog.Time("next_refresh", s.NextRefresh()),
		slog.Bool("keepalive", s.keepAliveID != 0),
	)
}

// Stop halts scheduling, cancels running jobs and waits for them until ctx
// expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRefresh returns when the daily refresh fires next.
func (s *Scheduler) NextRefresh() time.Time {
	return s.cron.Entry(s.refreshID).Schedule.Next(time.Now().In(s.cron.Location()))
}

func (s *Scheduler) runRefresh() {
	slog.Info("scheduled refresh triggered")
	if _, err := s.refresher.Refresh(s.ctx); err != nil {
		slog.Warn("scheduled refresh did not complete", slog.Any("error", err))
	}
}

func (s *Scheduler) runPing() {
	if err := s.ping(s.ctx); err != nil {
		slog.Warn("keepalive ping failed", slog.String("url", s.cfg.KeepAliveURL), slog.Any("error", err))
	}
}

func newPinger(cfg *config.Config) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(pingTimeout)
	return c
}

func (s *Scheduler) ping(ctx context.Context) error {
	c := s.pinger.Clone()

	var statusCode int
	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(s.cfg.KeepAliveURL)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if statusCode >= http.StatusBadRequest {
			return fmt.Errorf("ping returned %d %s", statusCode, http.StatusText(statusCode))
		}
		if err != nil {
			return err
		}
	}
	slog.Debug("keepalive ping", slog.Int("status", statusCode))
	return nil
}

// slogAdapter satisfies cron.Logger.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
