package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/store"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Options tunes a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	CacheSize       int
	Metrics         *Metrics
}

// Facet names a classification field with distinct values.
type Facet string

const (
	FacetCategory  Facet = "rubro"
	FacetBrand     Facet = "marca"
	FacetPriceList Facet = "lista"
)

// Service answers read-only catalog queries.
type Service struct {
	dataset *Dataset
	store   store.Store
	metrics *Metrics

	defaultLimit int
	maxLimit     int

	pages  *lru.Cache[string, *models.Page]
	facets *lru.Cache[string, []string]

	loadMu sync.Mutex
	loaded bool
}

// NewService builds a query service over dataset, falling back to st while
// the dataset is empty.
func NewService(dataset *Dataset, st store.Store, opts Options) (*Service, error) {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 100
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}

	s := &Service{
		dataset:      dataset,
		store:        st,
		metrics:      opts.Metrics,
		defaultLimit: opts.DefaultPageSize,
		maxLimit:     opts.MaxPageSize,
	}
	if opts.CacheSize > 0 {
		pages, err := lru.New[string, *models.Page](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("page cache: %w", err)
		}
		facets, err := lru.New[string, []string](16)
		if err != nil {
			return nil, fmt.Errorf("facet cache: %w", err)
		}
		s.pages = pages
		s.facets = facets
	}
	return s, nil
}

// Dataset returns the dataset the service reads from.
func (s *Service) Dataset() *Dataset {
	return s.dataset
}

// NormalizeLimit applies the default and maximum page size.
func (s *Service) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Query filters the active dataset and returns one page. The returned page
// may be shared with other callers and must be treated as read-only.
func (s *Service) Query(ctx context.Context, f models.Filters, page, limit int) (*models.Page, error) {
	start := time.Now()
	defer func() { s.metrics.observe(time.Since(start)) }()

	limit = s.NormalizeLimit(limit)
	articles, version, err := s.articles(ctx)
	if err != nil {
		return nil, err
	}

	m := newMatcher(f)
	key := strconv.FormatUint(version, 10) + "|" + m.key() + "|" + strconv.Itoa(page) + "|" + strconv.Itoa(limit)
	if s.pages != nil {
		if cached, ok := s.pages.Get(key); ok {
			s.metrics.incQuery("hit")
			return cached, nil
		}
	}
	s.metrics.incQuery("miss")

	filtered := filterArticles(articles, m)
	result := &models.Page{
		Total:    len(filtered),
		Page:     page,
		Limit:    limit,
		Articles: paginate(filtered, page, limit),
	}
	if s.pages != nil {
		s.pages.Add(key, result)
	}
	return result, nil
}

// Facet returns the sorted distinct non-empty values of a classification field.
func (s *Service) Facet(ctx context.Context, facet Facet) ([]string, error) {
	var field func(*models.Article) string
	switch facet {
	case FacetCategory:
		field = func(a *models.Article) string { return a.Category }
	case FacetBrand:
		field = func(a *models.Article) string { return a.Brand }
	case FacetPriceList:
		field = func(a *models.Article) string { return a.PriceList }
	default:
		return nil, fmt.Errorf("unknown facet %q", facet)
	}

	articles, version, err := s.articles(ctx)
	if err != nil {
		return nil, err
	}
	key := strconv.FormatUint(version, 10) + "|" + string(facet)
	if s.facets != nil {
		if cached, ok := s.facets.Get(key); ok {
			return cached, nil
		}
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)
	for i := range articles {
		v := strings.TrimSpace(field(&articles[i]))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)

	if s.facets != nil {
		s.facets.Add(key, values)
	}
	return values, nil
}

// Lookup returns the first article whose code equals code, ignoring case.
func (s *Service) Lookup(ctx context.Context, code string) (models.Article, bool, error) {
	articles, _, err := s.articles(ctx)
	if err != nil {
		return models.Article{}, false, err
	}
	code = strings.TrimSpace(code)
	for i := range articles {
		if strings.EqualFold(articles[i].Code, code) {
			return articles[i], true, nil
		}
	}
	return models.Article{}, false, nil
}

// Status returns the last refresh status, or nil when no refresh has run.
func (s *Service) Status(ctx context.Context) (*models.RefreshStatus, error) {
	status, err := s.store.LoadStatus(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// articles returns the active set, filling the cache from the store once
// when it is empty.
func (s *Service) articles(ctx context.Context) ([]models.Article, uint64, error) {
	if articles, version := s.dataset.Snapshot(); len(articles) > 0 {
		return articles, version, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if articles, version := s.dataset.Snapshot(); len(articles) > 0 || s.loaded {
		return articles, version, nil
	}

	loaded, err := s.store.LoadArticles(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load articles from store: %w", err)
	}
	s.loaded = true
	s.metrics.incFallback()
	slog.Info("catalog cache filled from store", slog.Int("articles", len(loaded)))

	articles, version := s.dataset.FillIfEmpty(loaded)
	return articles, version, nil
}
