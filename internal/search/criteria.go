package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
)

// ErrInvalidCriteria rejects a criteria combination that can never match.
var ErrInvalidCriteria = errors.New("invalid search criteria")

const (
	CategorySale   = "sale"
	CategoryRental = "rental"

	OrderID           = "id"
	OrderPriceAsc     = "price_asc"
	OrderPriceDesc    = "price_desc"
	OrderBedroomsDesc = "bedrooms_desc"
	OrderNewest       = "newest"

	DefaultLimit = 50
	MaxLimit     = 500
)

// Criteria is a structured search request. Every zero field is a no-op.
// Prices are in minor currency units.
type Criteria struct {
	SaleOrRental   string   `form:"sale_or_rental" json:"sale_or_rental" validate:"omitempty,oneof=sale rental"`
	RentalTerm     string   `form:"rental_term" json:"rental_term" validate:"omitempty,oneof=short long"`
	PriceFrom      *int64   `form:"price_from" json:"price_from" validate:"omitempty,gte=0"`
	PriceTill      *int64   `form:"price_till" json:"price_till" validate:"omitempty,gte=0"`
	CountBedrooms  *int     `form:"count_bedrooms" json:"count_bedrooms" validate:"omitempty,gte=0"`
	CountBathrooms *int     `form:"count_bathrooms" json:"count_bathrooms" validate:"omitempty,gte=0"`
	Features       []string `form:"features" json:"features" validate:"omitempty,dive,required"`
	City           string   `form:"city" json:"city"`
	TypeKey        string   `form:"type_key" json:"type_key"`
	Geohash        string   `form:"geohash" json:"geohash" validate:"omitempty,max=12,geohash"`
	Latitude       *float64 `form:"latitude" json:"latitude" validate:"omitempty,latitude"`
	Longitude      *float64 `form:"longitude" json:"longitude" validate:"omitempty,longitude"`
	RadiusMeters   *float64 `form:"radius" json:"radius" validate:"omitempty,gt=0"`
	Highlighted    bool     `form:"highlighted" json:"highlighted"`
	IncludeHidden  bool     `form:"include_hidden" json:"include_hidden"`
	OrderBy        string   `form:"order_by" json:"order_by" validate:"omitempty,oneof=id price_asc price_desc bedrooms_desc newest"`
	Limit          int      `form:"limit" json:"limit" validate:"gte=0,lte=500"`
	Offset         int      `form:"offset" json:"offset" validate:"gte=0"`
}

// Validate checks field ranges and the combinations between fields.
func (c *Criteria) Validate(v *validator.Validate) error {
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	if c.PriceFrom != nil && c.PriceTill != nil && *c.PriceFrom > *c.PriceTill {
		return fmt.Errorf("%w: price_from %d is above price_till %d", ErrInvalidCriteria, *c.PriceFrom, *c.PriceTill)
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude go together", ErrInvalidCriteria)
	}
	if c.RadiusMeters != nil && c.Latitude == nil {
		return fmt.Errorf("%w: radius needs latitude and longitude", ErrInvalidCriteria)
	}
	if c.RentalTerm != "" && c.SaleOrRental == CategorySale {
		return fmt.Errorf("%w: rental_term with sale_or_rental=sale", ErrInvalidCriteria)
	}
	if c.RadiusMeters != nil && *c.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidCriteria)
	}
	return nil
}

// geohashAlphabet is the base32 alphabet geohashes are written in.
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// NewValidator returns a validator that also knows the "geohash" tag. It
// panics if the tag cannot be registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("geohash", validGeohash); err != nil {
		panic(fmt.Sprintf("registering geohash validation: %v", err))
	}
	return v
}

func validGeohash(fl validator.FieldLevel) bool {
	s := strings.ToLower(fl.Field().String())
	return s != "" && strings.Trim(s, geohashAlphabet) == ""
}

// priceContext is the listing the price bounds and price ordering refer to.
// Without a category it is chosen per row.
func (c *Criteria) priceContext() (pricing.Context, bool) {
	if c.SaleOrRental == "" {
		return "", false
	}
	ctx, ok := pricing.ParseContext(c.SaleOrRental)
	return ctx, ok
}

// Filters translates the criteria into predicates. Criteria must be valid.
func (c *Criteria) Filters() []Filter {
	var filters []Filter
	if !c.IncludeHidden {
		filters = append(filters, Visible())
	}

	switch c.SaleOrRental {
	case CategorySale:
		filters = append(filters, ForSale())
	case CategoryRental:
		filters = append(filters, ForRent())
	}
	switch c.RentalTerm {
	case "short":
		filters = append(filters, ForRentShortTerm())
	case "long":
		filters = append(filters, ForRentLongTerm())
	}

	if c.PriceFrom != nil || c.PriceTill != nil {
		filters = append(filters, c.priceFilter())
	}
	if c.CountBedrooms != nil {
		filters = append(filters, BedroomsFrom(*c.CountBedrooms))
	}
	if c.CountBathrooms != nil {
		filters = append(filters, BathroomsFrom(*c.CountBathrooms))
	}
	if len(c.Features) > 0 {
		filters = append(filters, WithFeatures(c.Features...))
	}
	if c.City != "" {
		filters = append(filters, InCity(c.City))
	}
	if c.TypeKey != "" {
		filters = append(filters, OfType(c.TypeKey))
	}
	if c.Geohash != "" {
		filters = append(filters, InGeohash(c.Geohash))
	}
	if c.RadiusMeters != nil {
		filters = append(filters, Within(orb.Point{*c.Longitude, *c.Latitude}, *c.RadiusMeters))
	}
	if c.Highlighted {
		filters = append(filters, Highlighted())
	}
	return filters
}

func (c *Criteria) priceFilter() Filter {
	ctx, fixed := c.priceContext()
	from, till := c.PriceFrom, c.PriceTill
	return func(p *models.ListedProperty) bool {
		rowCtx := ctx
		if !fixed {
			rowCtx = pricing.DefaultContext(p)
		}
		price, ok := pricing.ContextualPrice(p, rowCtx)
		if !ok {
			return false
		}
		if from != nil && price.AmountCents < *from {
			return false
		}
		if till != nil && price.AmountCents > *till {
			return false
		}
		return true
	}
}
