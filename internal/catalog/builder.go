package catalog

import (
	"fmt"

	"github.com/mmcloughlin/geohash"
	"gorm.io/gorm"

	"estatecatalog/server/internal/models"
)

// geohashPrecision of 9 characters is roughly a 5m cell.
const geohashPrecision = 9

// sourceState is everything one tenant's rows are derived from.
type sourceState struct {
	assets     []models.Asset
	sales      map[uint]*models.SaleListing
	rentals    map[uint]*models.RentalListing
	syndicated map[uint]*models.SyndicatedListing
}

// loadSource reads the tenant's assets and their authoritative listings. A
// listing is authoritative when it is active and not archived; if the
// invariant was ever broken the highest id wins so rebuilds stay deterministic.
func loadSource(tx *gorm.DB, tenantID uint) (*sourceState, error) {
	src := &sourceState{
		sales:      make(map[uint]*models.SaleListing),
		rentals:    make(map[uint]*models.RentalListing),
		syndicated: make(map[uint]*models.SyndicatedListing),
	}

	err := tx.Where("tenant_id = ?", tenantID).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("key") }).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		Order("id").
		Find(&src.assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	var sales []models.SaleListing
	if err := authoritative(tx, tenantID).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to load sale listings: %w", err)
	}
	for i := range sales {
		src.sales[sales[i].AssetID] = &sales[i]
	}

	var rentals []models.RentalListing
	if err := authoritative(tx, tenantID).Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("failed to load rental listings: %w", err)
	}
	for i := range rentals {
		src.rentals[rentals[i].AssetID] = &rentals[i]
	}

	var syndicated []models.SyndicatedListing
	if err := authoritative(tx, tenantID).Find(&syndicated).Error; err != nil {
		return nil, fmt.Errorf("failed to load syndicated listings: %w", err)
	}
	for i := range syndicated {
		src.syndicated[syndicated[i].AssetID] = &syndicated[i]
	}

	return src, nil
}

func authoritative(tx *gorm.DB, tenantID uint) *gorm.DB {
	return tx.Where("tenant_id = ? AND active = ? AND archived = ?", tenantID, true, false).Order("id")
}

// buildRows derives one read model row per asset, ordered by asset id.
func buildRows(src *sourceState) []*models.ListedProperty {
	rows := make([]*models.ListedProperty, 0, len(src.assets))
	for i := range src.assets {
		a := &src.assets[i]
		rows = append(rows, buildRow(a, src.sales[a.ID], src.rentals[a.ID], src.syndicated[a.ID]))
	}
	return rows
}

func buildRow(a *models.Asset, sale *models.SaleListing, rental *models.RentalListing, synd *models.SyndicatedListing) *models.ListedProperty {
	row := &models.ListedProperty{
		ID:               a.ID,
		TenantID:         a.TenantID,
		Reference:        a.Reference,
		StreetAddress:    a.StreetAddress,
		City:             a.City,
		PostalCode:       a.PostalCode,
		Country:          a.Country,
		Latitude:         a.Latitude,
		Longitude:        a.Longitude,
		CountBedrooms:    a.CountBedrooms,
		CountBathrooms:   a.CountBathrooms,
		CountToilets:     a.CountToilets,
		CountGarages:     a.CountGarages,
		ConstructedArea:  a.ConstructedArea,
		PlotArea:         a.PlotArea,
		YearConstruction: a.YearConstruction,
		TypeKey:          a.TypeKey,
		StateKey:         a.StateKey,
		Features:         make([]string, 0, len(a.Features)),
		Photos:           make([]models.PhotoRef, 0, len(a.Photos)),
		Titles:           models.Translations{},
		Descriptions:     models.Translations{},
	}

	if a.HasLocation() {
		row.Geohash = geohash.EncodeWithPrecision(*a.Latitude, *a.Longitude, geohashPrecision)
	}
	for _, f := range a.Features {
		row.Features = append(row.Features, f.Key)
	}
	for _, p := range a.Photos {
		row.Photos = append(row.Photos, p.Ref())
	}

	// Listings in text-source priority order
	var listings []models.Listing

	if sale != nil {
		vis := sale.Visibility()
		row.Sale = &models.SaleSummary{
			ListingID:   sale.ID,
			PriceCents:  sale.PriceCents,
			Currency:    sale.Currency,
			Visible:     vis.Searchable(),
			Highlighted: vis.Highlighted,
			Reserved:    vis.Reserved,
		}
		row.ForSale = vis.Searchable()
		listings = append(listings, sale)
	}

	if rental != nil {
		vis := rental.Visibility()
		row.Rental = &models.RentalSummary{
			ListingID:              rental.ID,
			MonthlyLowSeasonCents:  rental.MonthlyLowSeasonCents,
			MonthlyCurrentCents:    rental.MonthlyCurrentCents,
			MonthlyHighSeasonCents: rental.MonthlyHighSeasonCents,
			Currency:               rental.Currency,
			ShortTerm:              rental.ShortTerm,
			Furnished:              rental.Furnished,
			Visible:                vis.Searchable(),
			Highlighted:            vis.Highlighted,
			Reserved:               vis.Reserved,
		}
		row.ForRent = vis.Searchable()
		row.ForRentShortTerm = row.ForRent && rental.ShortTerm
		row.ForRentLongTerm = row.ForRent && !rental.ShortTerm
		listings = append(listings, rental)
	}

	if synd != nil {
		vis := synd.Visibility()
		row.Syndicated = &models.SyndicatedSummary{
			ListingID:           synd.ID,
			PriceCents:          synd.PriceCents,
			Currency:            synd.Currency,
			PublishURL:          synd.PublishURL,
			PhotoOrder:          synd.PhotoOrder.Data(),
			HighlightedFeatures: synd.HighlightedFeatures.Data(),
			Visible:             vis.Searchable(),
			Highlighted:         vis.Highlighted,
		}
		listings = append(listings, synd)
	}

	for _, l := range listings {
		vis := l.Visibility()
		if vis.Searchable() {
			row.Visible = true
		}
		if vis.Highlighted {
			row.Highlighted = true
		}
		if vis.Reserved {
			row.Reserved = true
		}
	}

	if source := textSource(listings); source != nil {
		row.TextSource = source.Kind()
		base := source.Base()
		for locale, title := range base.Titles.Data() {
			row.Titles[locale] = title
		}
		for locale, description := range base.Descriptions.Data() {
			row.Descriptions[locale] = description
		}
	}

	return row
}

// textSource prefers the first searchable listing, then the first one at all.
func textSource(listings []models.Listing) models.Listing {
	for _, l := range listings {
		if l.Visibility().Searchable() {
			return l
		}
	}
	if len(listings) > 0 {
		return listings[0]
	}
	return nil
}
