package models

// SaleSummary is the authoritative sale listing as seen by the catalog.
type SaleSummary struct {
	ListingID   uint   `json:"listing_id"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Visible     bool   `json:"visible"`
	Highlighted bool   `json:"highlighted"`
	Reserved    bool   `json:"reserved"`
}

// RentalSummary is the authoritative rental listing as seen by the catalog.
type RentalSummary struct {
	ListingID              uint   `json:"listing_id"`
	MonthlyLowSeasonCents  int64  `json:"monthly_low_season_cents"`
	MonthlyCurrentCents    int64  `json:"monthly_current_cents"`
	MonthlyHighSeasonCents int64  `json:"monthly_high_season_cents"`
	Currency               string `json:"currency"`
	ShortTerm              bool   `json:"short_term"`
	Furnished              bool   `json:"furnished"`
	Visible                bool   `json:"visible"`
	Highlighted            bool   `json:"highlighted"`
	Reserved               bool   `json:"reserved"`
}

// SyndicatedSummary is the authoritative syndicated listing as seen by the catalog.
type SyndicatedSummary struct {
	ListingID           uint     `json:"listing_id"`
	PriceCents          int64    `json:"price_cents"`
	Currency            string   `json:"currency"`
	PublishURL          string   `json:"publish_url"`
	PhotoOrder          []uint   `json:"photo_order"`
	HighlightedFeatures []string `json:"highlighted_features"`
	Visible             bool     `json:"visible"`
	Highlighted         bool     `json:"highlighted"`
}

// ListedProperty is one row of the catalog read model: an asset merged with
// its authoritative listing of each variant. Rows are derived by the catalog
// refresher and are never written directly.
type ListedProperty struct {
	ID       uint `json:"id"`
	TenantID uint `json:"tenant_id"`

	Reference        string   `json:"reference"`
	StreetAddress    string   `json:"street_address"`
	City             string   `json:"city"`
	PostalCode       string   `json:"postal_code"`
	Country          string   `json:"country"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Geohash          string   `json:"geohash"`
	CountBedrooms    int      `json:"count_bedrooms"`
	CountBathrooms   int      `json:"count_bathrooms"`
	CountToilets     int      `json:"count_toilets"`
	CountGarages     int      `json:"count_garages"`
	ConstructedArea  float64  `json:"constructed_area"`
	PlotArea         float64  `json:"plot_area"`
	YearConstruction int      `json:"year_construction"`
	TypeKey          string   `json:"type_key"`
	StateKey         string   `json:"state_key"`

	Visible          bool `json:"visible"`
	ForSale          bool `json:"for_sale"`
	ForRent          bool `json:"for_rent"`
	ForRentShortTerm bool `json:"for_rent_short_term"`
	ForRentLongTerm  bool `json:"for_rent_long_term"`
	Highlighted      bool `json:"highlighted"`
	Reserved         bool `json:"reserved"`

	Sale       *SaleSummary       `json:"sale,omitempty"`
	Rental     *RentalSummary     `json:"rental,omitempty"`
	Syndicated *SyndicatedSummary `json:"syndicated,omitempty"`

	Features     []string     `json:"features"`
	Photos       []PhotoRef   `json:"photos"`
	TextSource   ListingKind  `json:"text_source,omitempty"`
	Titles       Translations `json:"titles"`
	Descriptions Translations `json:"descriptions"`
}

// HasLocation reports whether both coordinates are set.
func (p *ListedProperty) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// HasFeature reports whether the asset owns the feature key.
func (p *ListedProperty) HasFeature(key string) bool {
	for _, f := range p.Features {
		if f == key {
			return true
		}
	}
	return false
}

// Title returns the title for exactly the given locale.
func (p *ListedProperty) Title(locale string) (string, bool) {
	t, ok := p.Titles[locale]
	return t, ok
}

// Description returns the description for exactly the given locale.
func (p *ListedProperty) Description(locale string) (string, bool) {
	d, ok := p.Descriptions[locale]
	return d, ok
}
