// Package catalog serves filtered, paginated views over the active dataset.
package catalog

import (
	"sync/atomic"

	"github.com/aluiziolira/okawa-catalog/models"
)

type snapshot struct {
	version  uint64
	articles []models.Article
}

// Dataset holds the active article set. Readers always observe one complete
// set; Swap replaces it wholesale.
type Dataset struct {
	current atomic.Pointer[snapshot]
	seq     atomic.Uint64
}

// NewDataset returns an empty dataset at version 0.
func NewDataset() *Dataset {
	d := &Dataset{}
	d.current.Store(&snapshot{})
	return d
}

// Swap installs articles as the active set and returns its version. The
// slice must not be modified afterwards.
func (d *Dataset) Swap(articles []models.Article) uint64 {
	v := d.seq.Add(1)
	d.current.Store(&snapshot{version: v, articles: articles})
	return v
}

// FillIfEmpty installs articles only while the active set is still empty
// and returns whichever set is active afterwards.
func (d *Dataset) FillIfEmpty(articles []models.Article) ([]models.Article, uint64) {
	for {
		cur := d.current.Load()
		if len(cur.articles) > 0 || len(articles) == 0 {
			return cur.articles, cur.version
		}
		next := &snapshot{version: d.seq.Add(1), articles: articles}
		if d.current.CompareAndSwap(cur, next) {
			return next.articles, next.version
		}
	}
}

// Snapshot returns the active articles and their version.
func (d *Dataset) Snapshot() ([]models.Article, uint64) {
	s := d.current.Load()
	return s.articles, s.version
}

// Len returns the size of the active set.
func (d *Dataset) Len() int {
	return len(d.current.Load().articles)
}
