package store

import (
	"context"
	"sync"

	"github.com/aluiziolira/okawa-catalog/models"
)

// Memory is a process-local Store. It backs tests and the "memory" driver.
type Memory struct {
	mu       sync.RWMutex
	articles []models.Article
	status   *models.RefreshStatus
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReplaceArticles(ctx context.Context, articles []models.Article, batchSize int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := make([]models.Article, 0, len(articles))
	for _, c := range chunks(len(articles), batchSize) {
		staged = append(staged, articles[c[0]:c[1]]...)
	}

	m.mu.Lock()
	m.articles = staged
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadArticles(ctx context.Context) ([]models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Article, len(m.articles))
	copy(out, m.articles)
	return out, nil
}

func (m *Memory) CountArticles(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles), nil
}

func (m *Memory) SaveStatus(ctx context.Context, status models.RefreshStatus) error {
	m.mu.Lock()
	m.status = &status
	m.mu.Unlock()
	return nil
}

func (m *Memory) LoadStatus(ctx context.Context) (*models.RefreshStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status == nil {
		return nil, ErrNotFound
	}
	status := *m.status
	return &status, nil
}

func (m *Memory) Close() error {
	return nil
}
