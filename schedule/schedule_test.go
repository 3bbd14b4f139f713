package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/models"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) (*models.RefreshOutcome, error) {
	c.calls.Add(1)
	return nil, c.err
}

func TestDailyExpression(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{hour: 3, minute: 0, want: "0 3 * * *"},
		{hour: 23, minute: 45, want: "45 23 * * *"},
	}
	for _, tt := range tests {
		if got := DailyExpression(tt.hour, tt.minute); got != tt.want {
			t.Fatalf("DailyExpression(%d, %d) = %q, want %q", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestNextRefreshHonoursTimezone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RefreshAt = "03:00"
	cfg.Timezone = "America/Argentina/Buenos_Aires"

	s, err := New(cfg, &countingRefresher{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	loc, _ := cfg.Location()

	next := s.NextRefresh().In(loc)
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Fatalf("next refresh at %s, want 03:00 local", next)
	}
	if until := time.Until(next); until <= 0 || until > 24*time.Hour {
		t.Fatalf("next refresh %s is not within the next day", next)
	}
}

func TestNewRejectsBadClock(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RefreshAt = "noon"
	if _, err := New(cfg, &countingRefresher{}); err == nil {
		t.Fatalf("expected error for malformed refresh time")
	}
}

func TestRunRefreshSwallowsErrors(t *testing.T) {
	ref := &countingRefresher{err: errors.New("feed offline")}
	s, err := New(config.DefaultConfig(), ref)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.runRefresh()
	if got := ref.calls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestKeepAlivePing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.KeepAliveURL = srv.URL + "/ping"
	s, err := New(cfg, &countingRefresher{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.keepAliveID == 0 {
		t.Fatalf("keepalive job should be registered")
	}
	if err := s.ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	cfg.KeepAliveURL = srv.URL + "/down"
	if err := s.ping(context.Background()); err == nil {
		t.Fatalf("expected error for 503")
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("hits = %d, want 2", got)
	}
}

func TestKeepAliveDisabledByDefault(t *testing.T) {
	s, err := New(config.DefaultConfig(), &countingRefresher{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.keepAliveID != 0 {
		t.Fatalf("keepalive should not be scheduled without a URL")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(config.DefaultConfig(), &countingRefresher{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
