// Package store persists the active article set and the refresh status.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/okawa-catalog/models"
)

// ErrNotFound is returned by LoadStatus before the first refresh attempt.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence collaborator of the refresher and the query
// service. ReplaceArticles must never expose a partially written set to
// concurrent readers.
type Store interface {
	ReplaceArticles(ctx context.Context, articles []models.Article, batchSize int) error
	LoadArticles(ctx context.Context) ([]models.Article, error)
	CountArticles(ctx context.Context) (int, error)
	SaveStatus(ctx context.Context, status models.RefreshStatus) error
	LoadStatus(ctx context.Context) (*models.RefreshStatus, error)
	Close() error
}

// Open returns the store selected by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn, 4)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func chunks(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for i := 0; i < n; i += size {
		j := i + size
		if j > n {
			j = n
		}
		out = append(out, [2]int{i, j})
	}
	return out
}
