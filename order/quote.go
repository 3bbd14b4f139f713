// Package order prices a list of requested articles against the catalog.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyOrder is returned when no lines are requested.
	ErrEmptyOrder = errors.New("order: no items")
	// ErrUnknownArticle is returned when a requested code is not in the catalog.
	ErrUnknownArticle = errors.New("order: unknown article")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("order: quantity must be at least 1")
)

// Lookup resolves an article by code.
type Lookup interface {
	Lookup(ctx context.Context, code string) (models.Article, bool, error)
}

// LineRequest is one requested article.
type LineRequest struct {
	Code     string `json:"codigo"`
	Quantity int    `json:"cantidad"`
}

// Line is one priced article.
type Line struct {
	Code        string          `json:"codigo"`
	Description string          `json:"descripcion"`
	Quantity    int             `json:"cantidad"`
	ListPrice   decimal.Decimal `json:"precio_lista"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Quote is a fully priced order.
type Quote struct {
	Lines []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Pricing turns a list price into a sale price: list × Discount × Markup.
type Pricing struct {
	Discount decimal.Decimal
	Markup   decimal.Decimal
}

// NewPricing builds Pricing from configuration multipliers.
func NewPricing(discount, markup float64) Pricing {
	return Pricing{
		Discount: decimal.NewFromFloat(discount),
		Markup:   decimal.NewFromFloat(markup),
	}
}

// UnitPrice returns the sale price for a list price, rounded to cents.
func (p Pricing) UnitPrice(list float64) decimal.Decimal {
	return decimal.NewFromFloat(list).Mul(p.Discount).Mul(p.Markup).Round(2)
}

// NewQuote prices every requested line. Repeated codes are priced as
// separate lines.
func NewQuote(ctx context.Context, items []LineRequest, lookup Lookup, pricing Pricing) (*Quote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	q := &Quote{
		Lines: make([]Line, 0, len(items)),
		Total: decimal.Zero,
	}
	for i, item := range items {
		code := strings.TrimSpace(item.Code)
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d (%s) has %d", ErrInvalidQuantity, i+1, code, item.Quantity)
		}
		article, ok, err := lookup.Lookup(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", code, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownArticle, code)
		}

		unit := pricing.UnitPrice(article.Price)
		subtotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		q.Lines = append(q.Lines, Line{
			Code:        article.Code,
			Description: article.Description,
			Quantity:    item.Quantity,
			ListPrice:   decimal.NewFromFloat(article.Price).Round(2),
			UnitPrice:   unit,
			Subtotal:    subtotal,
		})
		q.Total = q.Total.Add(subtotal)
	}
	return q, nil
}
