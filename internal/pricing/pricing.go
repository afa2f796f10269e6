// Package pricing resolves one comparable price per catalog row.
package pricing

import (
	"estatecatalog/server/internal/models"
)

// Context selects which listing the price is taken from.
type Context string

const (
	ForSale Context = "for_sale"
	ForRent Context = "for_rent"
)

// ParseContext maps the external names, including the short "sale"/"rental"
// forms used by search criteria.
func ParseContext(s string) (Context, bool) {
	switch s {
	case string(ForSale), "sale":
		return ForSale, true
	case string(ForRent), "rental", "rent":
		return ForRent, true
	}
	return "", false
}

// ContextualPrice returns the price a visitor compares for the given context.
// ok is false when the row has no authoritative listing of that kind.
//
// Short-term rentals advertise the lowest non-zero of their low, current and
// high season prices. Zero prices are treated as unset, never as the minimum.
func ContextualPrice(p *models.ListedProperty, ctx Context) (models.Money, bool) {
	switch ctx {
	case ForSale:
		if p.Sale == nil {
			return models.Money{}, false
		}
		return models.Money{AmountCents: p.Sale.PriceCents, Currency: p.Sale.Currency}, true
	case ForRent:
		if p.Rental == nil {
			return models.Money{}, false
		}
		r := p.Rental
		if !r.ShortTerm {
			return models.Money{AmountCents: r.MonthlyCurrentCents, Currency: r.Currency}, true
		}
		return models.Money{
			AmountCents: minNonZero(r.MonthlyLowSeasonCents, r.MonthlyCurrentCents, r.MonthlyHighSeasonCents),
			Currency:    r.Currency,
		}, true
	}
	return models.Money{}, false
}

// DefaultContext picks the context used when a caller did not ask for one:
// sale if the row is for sale, rent if it is for rent, sale otherwise.
func DefaultContext(p *models.ListedProperty) Context {
	if !p.ForSale && p.ForRent {
		return ForRent
	}
	if p.Sale == nil && p.Rental != nil {
		return ForRent
	}
	return ForSale
}

func minNonZero(values ...int64) int64 {
	var result int64
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if result == 0 || v < result {
			result = v
		}
	}
	return result
}
