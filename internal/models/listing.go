package models

import (
	"time"

	"gorm.io/datatypes"
)

// ListingKind tags the listing variants.
type ListingKind string

const (
	KindSale       ListingKind = "sale"
	KindRental     ListingKind = "rental"
	KindSyndicated ListingKind = "syndicated"
)

// Valid returns true if k is a known listing variant.
func (k ListingKind) Valid() bool {
	switch k {
	case KindSale, KindRental, KindSyndicated:
		return true
	}
	return false
}

// Translations holds one string per locale tag.
type Translations map[string]string

// Visibility is the marketing state shared by all listing variants.
type Visibility struct {
	Visible     bool `json:"visible"`
	Highlighted bool `json:"highlighted"`
	Archived    bool `json:"archived"`
	Reserved    bool `json:"reserved"`
	Active      bool `json:"active"`
}

// Searchable reports whether the listing makes its asset appear in the public
// catalog. Archived or inactive listings never do, whatever their visible flag;
// a new listing must set Active explicitly, it defaults to false.
func (v Visibility) Searchable() bool {
	return v.Visible && v.Active && !v.Archived
}

// Listing is the behaviour common to sale, rental and syndicated listings.
// Asset attributes are never reached through a listing; callers load the
// asset explicitly by AssetID.
type Listing interface {
	Kind() ListingKind
	Base() *ListingBase
	Price() Money
	Visibility() Visibility
	LocaleText(locale string) (title, description string, ok bool)
}

// ListingBase holds the columns every listing table shares.
type ListingBase struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	TenantID     uint                             `gorm:"not null;index" json:"tenant_id"`
	AssetID      uint                             `gorm:"not null;index" json:"asset_id" validate:"required"`
	Visible      bool                             `gorm:"not null" json:"visible"`
	Highlighted  bool                             `gorm:"not null" json:"highlighted"`
	Archived     bool                             `gorm:"not null" json:"archived"`
	Reserved     bool                             `gorm:"not null" json:"reserved"`
	Active       bool                             `gorm:"not null" json:"active"`
	Currency     string                           `gorm:"size:3;not null" json:"currency" validate:"required,iso4217"`
	Titles       datatypes.JSONType[Translations] `json:"titles"`
	Descriptions datatypes.JSONType[Translations] `json:"descriptions"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

// Base returns the shared columns.
func (b *ListingBase) Base() *ListingBase { return b }

// Visibility returns the marketing flags.
func (b *ListingBase) Visibility() Visibility {
	return Visibility{
		Visible:     b.Visible,
		Highlighted: b.Highlighted,
		Archived:    b.Archived,
		Reserved:    b.Reserved,
		Active:      b.Active,
	}
}

// LocaleText returns the title and description stored for exactly the given
// locale. ok is false when neither is present; no other locale is consulted.
func (b *ListingBase) LocaleText(locale string) (string, string, bool) {
	title, hasTitle := b.Titles.Data()[locale]
	description, hasDescription := b.Descriptions.Data()[locale]
	return title, description, hasTitle || hasDescription
}

// SetText stores the title and description for a locale.
func (b *ListingBase) SetText(locale, title, description string) {
	titles := copyTranslations(b.Titles.Data())
	descriptions := copyTranslations(b.Descriptions.Data())
	titles[locale] = title
	descriptions[locale] = description
	b.Titles = datatypes.NewJSONType(titles)
	b.Descriptions = datatypes.NewJSONType(descriptions)
}

func copyTranslations(src Translations) Translations {
	dst := make(Translations, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// SaleListing offers an asset for sale.
type SaleListing struct {
	ListingBase
	PriceCents int64 `gorm:"not null" json:"price_cents" validate:"gte=0"`
}

func (l *SaleListing) Kind() ListingKind { return KindSale }

func (l *SaleListing) Price() Money {
	return Money{AmountCents: l.PriceCents, Currency: l.Currency}
}

// RentalListing offers an asset for rent. Long-term rentals use the current
// monthly price; short-term rentals also carry low and high season prices.
type RentalListing struct {
	ListingBase
	MonthlyLowSeasonCents  int64 `gorm:"not null" json:"monthly_low_season_cents" validate:"gte=0"`
	MonthlyCurrentCents    int64 `gorm:"not null" json:"monthly_current_cents" validate:"gte=0"`
	MonthlyHighSeasonCents int64 `gorm:"not null" json:"monthly_high_season_cents" validate:"gte=0"`
	ShortTerm              bool  `gorm:"not null" json:"short_term"`
	Furnished              bool  `gorm:"not null" json:"furnished"`
}

func (l *RentalListing) Kind() ListingKind { return KindRental }

func (l *RentalListing) Price() Money {
	return Money{AmountCents: l.MonthlyCurrentCents, Currency: l.Currency}
}

// SyndicatedListing is published to an external portal with a curated photo
// order and a subset of highlighted features.
type SyndicatedListing struct {
	ListingBase
	PriceCents          int64                        `gorm:"not null" json:"price_cents" validate:"gte=0"`
	PublishURL          string                       `json:"publish_url" validate:"omitempty,url"`
	PhotoOrder          datatypes.JSONType[[]uint]   `json:"photo_order"`
	HighlightedFeatures datatypes.JSONType[[]string] `json:"highlighted_features"`
}

func (l *SyndicatedListing) Kind() ListingKind { return KindSyndicated }

func (l *SyndicatedListing) Price() Money {
	return Money{AmountCents: l.PriceCents, Currency: l.Currency}
}

// NewListing returns an empty listing of the given variant.
func NewListing(kind ListingKind) (Listing, bool) {
	switch kind {
	case KindSale:
		return &SaleListing{}, true
	case KindRental:
		return &RentalListing{}, true
	case KindSyndicated:
		return &SyndicatedListing{}, true
	}
	return nil, false
}
