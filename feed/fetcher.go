package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/gocolly/colly/v2"
)

// Download is the raw archive returned by the vendor.
type Download struct {
	Body     []byte
	Attempts int
	Duration time.Duration
}

// Fetcher downloads the vendor archive through a colly collector.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("feed url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	// The archive is several megabytes; colly caps bodies at 10MB by default.
	collector.MaxBodySize = 0
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.FeedTimeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}, nil
}

// WithTransport replaces the HTTP transport used for downloads.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Download fetches the archive, retrying transient failures with
// exponential backoff up to cfg.MaxRetries extra attempts.
func (f *Fetcher) Download(ctx context.Context) (*Download, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	for attempt := 1; ; attempt++ {
		body, err := f.fetchOnce(ctx)
		if err == nil {
			f.metrics.AddBytes(len(body))
			return &Download{
				Body:     body,
				Attempts: attempt,
				Duration: time.Since(start),
			}, nil
		}

		category := ErrorTypeLabel(err)
		f.metrics.IncError(category)
		slog.Warn("feed download failed",
			slog.String("url", f.cfg.FeedURL),
			slog.Int("attempt", attempt),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if attempt > f.cfg.MaxRetries || !Retryable(err) || ctx.Err() != nil {
			return nil, err
		}

		delay := backoff(f.cfg, attempt)
		f.metrics.IncRetries()
		slog.Info("retrying feed download",
			slog.Int("next_attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, contextError(ctx.Err())
		case <-timer.C:
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	c := f.collector.Clone()

	var (
		body       []byte
		statusCode int
		callErr    error
		started    time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		started = time.Now()
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		statusCode = r.StatusCode
		f.metrics.IncRequest("completed")
		f.metrics.ObserveDuration(time.Since(started))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		callErr = err
		f.metrics.IncRequest("failed")
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(f.cfg.FeedURL)
	}()

	select {
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	case err := <-done:
		if err == nil {
			err = callErr
		}
		if err != nil || statusCode >= http.StatusMultipleChoices {
			return nil, classifyError(err, statusCode)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("feed returned an empty body")
		}
		return body, nil
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	return fmt.Errorf("download cancelled: %w", err)
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusMultipleChoices {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}

func backoff(cfg *config.Config, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
