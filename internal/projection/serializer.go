// Package projection renders read model rows as the JSON documents consumers
// receive.
package projection

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"estatecatalog/server/internal/media"
	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
)

// Options selects how a row is rendered.
type Options struct {
	// Locale picks the title and description. There is no fallback to
	// another locale.
	Locale string
	// ImageVariant names a resized variant; empty means originals.
	ImageVariant string
	// Syndicated applies the syndicated listing's curated photo order,
	// highlighted features and price.
	Syndicated bool
	// PriceContext overrides the row's default price context.
	PriceContext pricing.Context
}

// Price is a resolved contextual price.
type Price struct {
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Context     pricing.Context `json:"context"`
	Formatted   string          `json:"formatted"`
}

// Photo is one resolved photo. URL is "" when it could not be resolved.
type Photo struct {
	ID        uint   `json:"id"`
	SortOrder int    `json:"sort_order"`
	URL       string `json:"url"`
}

// Document is the external JSON shape of one property.
type Document struct {
	ID               uint     `json:"id"`
	Reference        string   `json:"reference"`
	Locale           string   `json:"locale"`
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
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
	Furnished        bool `json:"furnished"`

	Price          *Price `json:"price"`
	SalePrice      *Price `json:"sale_price,omitempty"`
	RentalPrice    *Price `json:"rental_price,omitempty"`
	FormattedPrice string `json:"formatted_price"`

	Features        map[string]bool `json:"features"`
	PropPhotos      []Photo         `json:"prop_photos"`
	PrimaryImageURL string          `json:"primary_image_url"`
	PublishURL      string          `json:"publish_url,omitempty"`
}

// Serializer renders rows. It is safe for concurrent use.
type Serializer struct {
	resolver      *media.Resolver
	defaultLocale language.Tag
	logger        *logrus.Logger
}

// NewSerializer creates a serializer. defaultLocale is used when a caller
// does not ask for a locale.
func NewSerializer(resolver *media.Resolver, defaultLocale string, logger *logrus.Logger) *Serializer {
	if logger == nil {
		logger = logrus.New()
	}
	if resolver == nil {
		resolver = media.NewResolver(nil, logger)
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		logger.WithError(err).WithField("locale", defaultLocale).Warn("Invalid default locale, using English")
		tag = language.English
	}
	return &Serializer{
		resolver:      resolver,
		defaultLocale: tag,
		logger:        logger,
	}
}

// AsJSON renders one row. It never fails: missing text is nil, broken photos
// are "" and a row without photos has an empty photo list.
func (s *Serializer) AsJSON(ctx context.Context, row *models.ListedProperty, opts Options) Document {
	locale, tag, known := s.locale(opts.Locale)
	syndicated := opts.Syndicated && row.Syndicated != nil

	doc := Document{
		ID:               row.ID,
		Reference:        row.Reference,
		Locale:           locale,
		StreetAddress:    row.StreetAddress,
		City:             row.City,
		PostalCode:       row.PostalCode,
		Country:          row.Country,
		Latitude:         row.Latitude,
		Longitude:        row.Longitude,
		Geohash:          row.Geohash,
		CountBedrooms:    row.CountBedrooms,
		CountBathrooms:   row.CountBathrooms,
		CountToilets:     row.CountToilets,
		CountGarages:     row.CountGarages,
		ConstructedArea:  row.ConstructedArea,
		PlotArea:         row.PlotArea,
		YearConstruction: row.YearConstruction,
		TypeKey:          row.TypeKey,
		StateKey:         row.StateKey,
		Visible:          row.Visible,
		ForSale:          row.ForSale,
		ForRent:          row.ForRent,
		ForRentShortTerm: row.ForRentShortTerm,
		ForRentLongTerm:  row.ForRentLongTerm,
		Highlighted:      row.Highlighted,
		Reserved:         row.Reserved,
	}

	keys := textKeys(opts.Locale, locale, known)
	if title, ok := lookupText(row.Title, keys); ok {
		doc.Title = &title
	}
	if description, ok := lookupText(row.Description, keys); ok {
		doc.Description = &description
	}
	if row.Rental != nil {
		doc.Furnished = row.Rental.Furnished
	}

	s.setPrices(&doc, row, opts, tag, syndicated)

	features := row.Features
	if syndicated {
		features = highlightedSubset(row.Features, row.Syndicated.HighlightedFeatures)
		doc.PublishURL = row.Syndicated.PublishURL
	}
	doc.Features = featureMap(features)

	photos := row.Photos
	if syndicated {
		photos = curatedOrder(row.Photos, row.Syndicated.PhotoOrder)
	}
	doc.PropPhotos = make([]Photo, 0, len(photos))
	for _, p := range photos {
		doc.PropPhotos = append(doc.PropPhotos, Photo{
			ID:        p.ID,
			SortOrder: p.SortOrder,
			URL:       s.resolver.Resolve(ctx, p, opts.ImageVariant),
		})
	}
	if len(doc.PropPhotos) > 0 {
		doc.PrimaryImageURL = doc.PropPhotos[0].URL
	}

	return doc
}

// AsJSONList renders rows in order.
func (s *Serializer) AsJSONList(ctx context.Context, rows []*models.ListedProperty, opts Options) []Document {
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, s.AsJSON(ctx, row, opts))
	}
	return docs
}

// textKeys lists the translation keys tried for a request: the locale exactly
// as asked, then its canonical form.
func textKeys(requested, canonical string, known bool) []string {
	keys := make([]string, 0, 2)
	if requested != "" {
		keys = append(keys, requested)
	}
	if known && canonical != requested {
		keys = append(keys, canonical)
	}
	return keys
}

func lookupText(get func(string) (string, bool), keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := get(k); ok {
			return v, true
		}
	}
	return "", false
}

// locale canonicalizes the requested locale. known is false when it cannot be
// parsed, in which case only the raw key is looked up.
func (s *Serializer) locale(requested string) (string, language.Tag, bool) {
	if requested == "" {
		return s.defaultLocale.String(), s.defaultLocale, true
	}
	tag, err := language.Parse(requested)
	if err != nil {
		s.logger.WithError(err).WithField("locale", requested).Debug("Unparseable locale requested")
		return requested, s.defaultLocale, false
	}
	return tag.String(), tag, true
}

func (s *Serializer) setPrices(doc *Document, row *models.ListedProperty, opts Options, tag language.Tag, syndicated bool) {
	if m, ok := pricing.ContextualPrice(row, pricing.ForSale); ok {
		doc.SalePrice = newPrice(m, pricing.ForSale, tag)
	}
	if m, ok := pricing.ContextualPrice(row, pricing.ForRent); ok {
		doc.RentalPrice = newPrice(m, pricing.ForRent, tag)
	}

	if syndicated {
		m := models.Money{AmountCents: row.Syndicated.PriceCents, Currency: row.Syndicated.Currency}
		doc.Price = newPrice(m, pricing.DefaultContext(row), tag)
	} else {
		ctx := opts.PriceContext
		if ctx == "" {
			ctx = pricing.DefaultContext(row)
		}
		if m, ok := pricing.ContextualPrice(row, ctx); ok {
			doc.Price = newPrice(m, ctx, tag)
		}
	}
	if doc.Price != nil {
		doc.FormattedPrice = doc.Price.Formatted
	}
}

func newPrice(m models.Money, ctx pricing.Context, tag language.Tag) *Price {
	return &Price{
		AmountCents: m.AmountCents,
		Currency:    m.Currency,
		Context:     ctx,
		Formatted:   pricing.Format(m, tag),
	}
}

// featureMap is sparse: absent features are omitted, never false.
func featureMap(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// highlightedSubset keeps the highlighted features the asset actually owns.
func highlightedSubset(owned, highlighted []string) []string {
	if len(highlighted) == 0 {
		return owned
	}
	want := make(map[string]struct{}, len(highlighted))
	for _, k := range highlighted {
		want[k] = struct{}{}
	}
	out := make([]string, 0, len(highlighted))
	for _, k := range owned {
		if _, ok := want[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// curatedOrder puts the photos named in order first, in that order, followed
// by the remaining photos in their usual order. Unknown ids are skipped.
func curatedOrder(photos []models.PhotoRef, order []uint) []models.PhotoRef {
	if len(order) == 0 {
		return photos
	}
	byID := make(map[uint]models.PhotoRef, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}
	out := make([]models.PhotoRef, 0, len(photos))
	placed := make(map[uint]bool, len(order))
	for _, id := range order {
		if p, ok := byID[id]; ok && !placed[id] {
			out = append(out, p)
			placed[id] = true
		}
	}
	for _, p := range photos {
		if !placed[p.ID] {
			out = append(out, p)
		}
	}
	return out
}
