package catalog

import (
	"strings"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/parser"
)

type matcher struct {
	code         string
	description  string
	availability models.Availability
	byStock      bool
	category     string
	brand        string
	priceList    string
}

func newMatcher(f models.Filters) matcher {
	m := matcher{
		code:        strings.ToUpper(strings.TrimSpace(f.Code)),
		description: strings.ToUpper(strings.TrimSpace(f.Description)),
		category:    strings.TrimSpace(f.Category),
		brand:       strings.TrimSpace(f.Brand),
		priceList:   strings.TrimSpace(f.PriceList),
	}
	if raw := strings.TrimSpace(f.Availability); raw != "" {
		m.byStock = true
		m.availability = parser.NormalizeAvailability(raw)
	}
	return m
}

func (m matcher) empty() bool {
	return m.code == "" && m.description == "" && !m.byStock &&
		m.category == "" && m.brand == "" && m.priceList == ""
}

func (m matcher) match(a *models.Article) bool {
	if m.code != "" && !strings.Contains(strings.ToUpper(a.Code), m.code) {
		return false
	}
	if m.description != "" && !strings.Contains(strings.ToUpper(a.Description), m.description) {
		return false
	}
	if m.byStock && !matchAvailability(m.availability, a.Availability) {
		return false
	}
	if m.category != "" && !strings.EqualFold(strings.TrimSpace(a.Category), m.category) {
		return false
	}
	if m.brand != "" && !strings.EqualFold(strings.TrimSpace(a.Brand), m.brand) {
		return false
	}
	if m.priceList != "" && !strings.EqualFold(strings.TrimSpace(a.PriceList), m.priceList) {
		return false
	}
	return true
}

// matchAvailability treats articles without a recognized stock signal as
// unavailable. An unrecognized filter value matches nothing.
func matchAvailability(want, got models.Availability) bool {
	switch want {
	case models.AvailabilityUnavailable:
		return got == models.AvailabilityUnavailable || !got.Valid()
	case models.AvailabilityAvailable, models.AvailabilityInquire:
		return got == want
	default:
		return false
	}
}

func (m matcher) key() string {
	return strings.Join([]string{
		m.code, m.description, string(m.availability), boolKey(m.byStock),
		strings.ToUpper(m.category), strings.ToUpper(m.brand), strings.ToUpper(m.priceList),
	}, "\x1f")
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func filterArticles(articles []models.Article, m matcher) []models.Article {
	if m.empty() {
		return articles
	}
	out := make([]models.Article, 0, len(articles)/4)
	for i := range articles {
		if m.match(&articles[i]) {
			out = append(out, articles[i])
		}
	}
	return out
}

// paginate slices a 1-indexed page out of articles. Pages outside the
// result yield an empty, non-nil slice.
func paginate(articles []models.Article, page, limit int) []models.Article {
	if page < 1 || limit < 1 {
		return []models.Article{}
	}
	pages := len(articles) / limit
	if len(articles)%limit != 0 {
		pages++
	}
	if page > pages {
		return []models.Article{}
	}
	start := (page - 1) * limit
	end := start + limit
	if end > len(articles) {
		end = len(articles)
	}
	out := make([]models.Article, end-start)
	copy(out, articles[start:end])
	return out
}
