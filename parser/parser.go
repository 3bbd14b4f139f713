// Package parser maps raw spreadsheet rows onto normalized articles.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/okawa-catalog/models"
)

// Row is one spreadsheet row keyed by its header cell. Headers keep sheet
// order so lookups are deterministic.
type Row struct {
	headers []string
	values  map[string]string
}

// NewRow pairs a header line with one data line. Blank and repeated headers
// are dropped; cells missing at the end of the line read as "".
func NewRow(header, cells []string) Row {
	r := Row{
		headers: make([]string, 0, len(header)),
		values:  make(map[string]string, len(header)),
	}
	for col, key := range header {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if _, dup := r.values[key]; dup {
			continue
		}
		value := ""
		if col < len(cells) {
			value = cells[col]
		}
		r.headers = append(r.headers, key)
		r.values[key] = value
	}
	return r
}

// Get returns the raw cell under header.
func (r Row) Get(header string) string {
	return r.values[header]
}

// Has reports whether the row carries a column named header.
func (r Row) Has(header string) bool {
	_, ok := r.values[header]
	return ok
}

// Headers returns the column names in sheet order.
func (r Row) Headers() []string {
	return r.headers
}

// Candidate header spellings per field, tried in order.
var (
	CodeKeys        = []string{"CODIGO", "COD", "codigo"}
	DescriptionKeys = []string{"DESCRIPCION", "DESCRIP", "DES", "descripcion"}
	PriceKeys       = []string{"PRECIO", "PREC", "price"}
	StockKeys       = []string{"STOCK", "CANTIDAD", "DISPONIBILIDAD"}
	CategoryKeys    = []string{"RUBRO"}
	BrandKeys       = []string{"MARCA"}
	PriceListKeys   = []string{"LISTA"}
	EquivalentKeys  = []string{"EQUIVALENTE", "EQUIVALENC", "equivalenc", "Equivalente", "Equivalenc", " EQUIVALENTE", "EQUIVALENTE "}
)

// Lookup returns the first non-empty value among keys. Exact header
// spellings are tried first, then a case and whitespace insensitive pass
// over the headers in sheet order.
func (r Row) Lookup(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(r.values[key]); value != "" {
			return value
		}
	}
	for _, key := range keys {
		want := foldHeader(key)
		for _, header := range r.headers {
			if foldHeader(header) != want {
				continue
			}
			if value := strings.TrimSpace(r.values[header]); value != "" {
				return value
			}
		}
	}
	return ""
}

func foldHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// NormalizeRow converts a raw row into an Article.
func NormalizeRow(r Row) models.Article {
	return models.Article{
		Code:           r.Lookup(CodeKeys...),
		Description:    r.Lookup(DescriptionKeys...),
		Price:          ParsePrice(r.Lookup(PriceKeys...)),
		Availability:   NormalizeAvailability(r.Lookup(StockKeys...)),
		Category:       r.Lookup(CategoryKeys...),
		Brand:          r.Lookup(BrandKeys...),
		PriceList:      r.Lookup(PriceListKeys...),
		EquivalentCode: r.Lookup(EquivalentKeys...),
	}
}

// ValidateArticle rejects rows that carry neither a code nor a description,
// such as spreadsheet footers.
func ValidateArticle(a models.Article) error {
	if strings.TrimSpace(a.Code) == "" && strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("article has neither code nor description")
	}
	return nil
}

// ParsePrice reads a price cell. Unparseable or empty input yields 0.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "ARS")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// Whichever separator comes last is the decimal one.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var availabilityWords = map[string]models.Availability{
	"S":                        models.AvailabilityAvailable,
	"SI":                       models.AvailabilityAvailable,
	"SÍ":                       models.AvailabilityAvailable,
	"Y":                        models.AvailabilityAvailable,
	"YES":                      models.AvailabilityAvailable,
	"HAY":                      models.AvailabilityAvailable,
	"DISPONIBLE":               models.AvailabilityAvailable,
	"N":                        models.AvailabilityUnavailable,
	"NO":                       models.AvailabilityUnavailable,
	"NO DISPONIBLE":            models.AvailabilityUnavailable,
	"SIN STOCK":                models.AvailabilityUnavailable,
	"AGOTADO":                  models.AvailabilityUnavailable,
	"C":                        models.AvailabilityInquire,
	"CONSULTAR":                models.AvailabilityInquire,
	"A CONSULTAR":              models.AvailabilityInquire,
	"CONSULTAR DISPONIBILIDAD": models.AvailabilityInquire,
}

// NormalizeAvailability maps numeric counts, letter codes and free text onto
// the three canonical states. Unrecognized input is AvailabilityUnknown.
func NormalizeAvailability(raw string) models.Availability {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return models.AvailabilityUnknown
	}
	if n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		if n > 0 {
			return models.AvailabilityAvailable
		}
		return models.AvailabilityUnavailable
	}
	if a, ok := availabilityWords[s]; ok {
		return a
	}
	return models.AvailabilityUnknown
}
