// Package search answers queries over the catalog read model. It never reads
// the source tables.
package search

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
)

// Filter is a pure predicate over one read model row. Filters compose in any
// order with the same result.
type Filter func(p *models.ListedProperty) bool

// Visible selects rows with at least one searchable listing.
func Visible() Filter {
	return func(p *models.ListedProperty) bool { return p.Visible }
}

func ForSale() Filter {
	return func(p *models.ListedProperty) bool { return p.ForSale }
}

// ForRent selects rows with a searchable rental of either term.
func ForRent() Filter {
	return func(p *models.ListedProperty) bool { return p.ForRent }
}

func ForRentShortTerm() Filter {
	return func(p *models.ListedProperty) bool { return p.ForRentShortTerm }
}

func ForRentLongTerm() Filter {
	return func(p *models.ListedProperty) bool { return p.ForRentLongTerm }
}

func Highlighted() Filter {
	return func(p *models.ListedProperty) bool { return p.Highlighted }
}

// ForSalePriceFrom keeps rows for sale at or above cents.
func ForSalePriceFrom(cents int64) Filter {
	return priceBound(pricing.ForSale, func(amount int64) bool { return amount >= cents })
}

// ForSalePriceTill keeps rows for sale at or below cents.
func ForSalePriceTill(cents int64) Filter {
	return priceBound(pricing.ForSale, func(amount int64) bool { return amount <= cents })
}

// ForRentPriceFrom compares the advertised rental price, which for seasonal
// rentals is the lowest season.
func ForRentPriceFrom(cents int64) Filter {
	return priceBound(pricing.ForRent, func(amount int64) bool { return amount >= cents })
}

func ForRentPriceTill(cents int64) Filter {
	return priceBound(pricing.ForRent, func(amount int64) bool { return amount <= cents })
}

func priceBound(ctx pricing.Context, keep func(amount int64) bool) Filter {
	return func(p *models.ListedProperty) bool {
		price, ok := pricing.ContextualPrice(p, ctx)
		return ok && keep(price.AmountCents)
	}
}

// BedroomsFrom keeps rows with at least n bedrooms.
func BedroomsFrom(n int) Filter {
	return func(p *models.ListedProperty) bool { return p.CountBedrooms >= n }
}

// BathroomsFrom keeps rows with at least n bathrooms.
func BathroomsFrom(n int) Filter {
	return func(p *models.ListedProperty) bool { return p.CountBathrooms >= n }
}

// WithFeatures keeps rows owning every given feature.
func WithFeatures(keys ...string) Filter {
	return func(p *models.ListedProperty) bool {
		for _, k := range keys {
			if !p.HasFeature(k) {
				return false
			}
		}
		return true
	}
}

// InCity matches the city name case-insensitively.
func InCity(city string) Filter {
	return func(p *models.ListedProperty) bool { return strings.EqualFold(p.City, city) }
}

func OfType(typeKey string) Filter {
	return func(p *models.ListedProperty) bool { return p.TypeKey == typeKey }
}

// InGeohash keeps rows whose geohash starts with prefix.
func InGeohash(prefix string) Filter {
	prefix = strings.ToLower(prefix)
	return func(p *models.ListedProperty) bool {
		return p.Geohash != "" && strings.HasPrefix(p.Geohash, prefix)
	}
}

// Within keeps located rows no further than radius metres from center.
func Within(center orb.Point, radius float64) Filter {
	return func(p *models.ListedProperty) bool {
		if !p.HasLocation() {
			return false
		}
		return geo.Distance(center, orb.Point{*p.Longitude, *p.Latitude}) <= radius
	}
}

// Apply returns the rows matching every filter, in their original order.
func Apply(rows []*models.ListedProperty, filters ...Filter) []*models.ListedProperty {
	out := make([]*models.ListedProperty, 0, len(rows))
	for _, row := range rows {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row *models.ListedProperty, filters []Filter) bool {
	for _, f := range filters {
		if !f(row) {
			return false
		}
	}
	return true
}
