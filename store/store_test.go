package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/okawa-catalog/models"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemory(),
	}
}

func sampleArticles(prefix string, n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			Code:         fmt.Sprintf("%s%d", prefix, i+1),
			Description:  "Articulo " + prefix,
			Price:        float64(i) + 0.5,
			Availability: models.AvailabilityInquire,
			Category:     "RUBRO",
		}
	}
	return out
}

func TestReplaceArticlesKeepsFeedOrder(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			articles := sampleArticles("A", 7)

			if err := s.ReplaceArticles(ctx, articles, 3); err != nil {
				t.Fatalf("replace: %v", err)
			}
			got, err := s.LoadArticles(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got) != len(articles) {
				t.Fatalf("loaded %d articles, want %d", len(got), len(articles))
			}
			for i := range articles {
				if got[i] != articles[i] {
					t.Fatalf("article %d = %+v, want %+v", i, got[i], articles[i])
				}
			}
		})
	}
}

func TestReplaceArticlesDropsPreviousSet(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.ReplaceArticles(ctx, sampleArticles("OLD", 5), 1000); err != nil {
				t.Fatalf("first replace: %v", err)
			}
			if err := s.ReplaceArticles(ctx, sampleArticles("NEW", 2), 1000); err != nil {
				t.Fatalf("second replace: %v", err)
			}

			n, err := s.CountArticles(ctx)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 2 {
				t.Fatalf("count = %d, want 2", n)
			}
			got, err := s.LoadArticles(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			for _, a := range got {
				if a.Code == "OLD1" {
					t.Fatalf("stale article survived the swap")
				}
			}
		})
	}
}

func TestReplaceArticlesCancelledKeepsOldSet(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.ReplaceArticles(context.Background(), sampleArticles("A", 3), 1000); err != nil {
				t.Fatalf("seed: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := s.ReplaceArticles(ctx, sampleArticles("B", 10), 1000); err == nil {
				t.Fatalf("expected error for cancelled context")
			}

			n, err := s.CountArticles(context.Background())
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 3 {
				t.Fatalf("count = %d, want 3", n)
			}
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.LoadStatus(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound before first save, got %v", err)
			}

			first := models.RefreshStatus{
				Source:    "Okawa",
				UpdatedAt: time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
				State:     models.StateOK,
				Details:   "3 artículos cargados",
				RunID:     "run-1",
			}
			second := first
			second.State = models.StateError
			second.Details = "no se encontró okawa-completa.xls"
			second.RunID = "run-2"
			second.DurationMS = 1200

			if err := s.SaveStatus(ctx, first); err != nil {
				t.Fatalf("save first: %v", err)
			}
			if err := s.SaveStatus(ctx, second); err != nil {
				t.Fatalf("save second: %v", err)
			}

			got, err := s.LoadStatus(ctx)
			if err != nil {
				t.Fatalf("load status: %v", err)
			}
			if got.State != models.StateError || got.RunID != "run-2" || got.DurationMS != 1200 {
				t.Fatalf("status not overwritten: %+v", got)
			}
			if !got.UpdatedAt.Equal(first.UpdatedAt) {
				t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, first.UpdatedAt)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", "mongodb://localhost"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestChunks(t *testing.T) {
	got := chunks(2500, 1000)
	want := [][2]int{{0, 1000}, {1000, 2000}, {2000, 2500}}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", got, want)
		}
	}
	if len(chunks(0, 1000)) != 0 {
		t.Fatalf("empty input should yield no chunks")
	}
}
