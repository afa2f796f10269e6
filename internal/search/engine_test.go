package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatecatalog/server/internal/catalog"
	"estatecatalog/server/internal/database"
	"estatecatalog/server/internal/inventory"
	"estatecatalog/server/internal/models"
)

type staticSource struct {
	rows []*models.ListedProperty
	err  error
}

func (s *staticSource) Rows(ctx context.Context, tenantID uint) ([]*models.ListedProperty, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]*models.ListedProperty(nil), s.rows...), nil
}

func (s *staticSource) Find(ctx context.Context, tenantID, assetID uint) (*models.ListedProperty, error) {
	for _, r := range s.rows {
		if r.ID == assetID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: asset %d", catalog.ErrNotFound, assetID)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestSearch_InvalidCriteria(t *testing.T) {
	engine := NewEngine(&staticSource{}, quietLogger())

	tests := []struct {
		name     string
		criteria Criteria
	}{
		{"negative bedrooms", Criteria{CountBedrooms: ptr(-1)}},
		{"negative bathrooms", Criteria{CountBathrooms: ptr(-2)}},
		{"negative price", Criteria{PriceFrom: ptr(int64(-5))}},
		{"from above till", Criteria{PriceFrom: ptr(int64(500)), PriceTill: ptr(int64(100))}},
		{"unknown category", Criteria{SaleOrRental: "auction"}},
		{"radius without point", Criteria{RadiusMeters: ptr(1000.0)}},
		{"latitude alone", Criteria{Latitude: ptr(40.0)}},
		{"latitude out of range", Criteria{Latitude: ptr(91.0), Longitude: ptr(0.0)}},
		{"unknown order", Criteria{OrderBy: "random"}},
		{"limit too large", Criteria{Limit: MaxLimit + 1}},
		{"negative offset", Criteria{Offset: -1}},
		{"rental term for sale", Criteria{SaleOrRental: CategorySale, RentalTerm: "short"}},
		{"bad geohash", Criteria{Geohash: "ezja!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Search(context.Background(), 1, tt.criteria)
			assert.ErrorIs(t, err, ErrInvalidCriteria)
		})
	}
}

func TestNewValidator_Geohash(t *testing.T) {
	var v *validator.Validate
	require.NotPanics(t, func() { v = NewValidator() })

	assert.NoError(t, v.Var("ezjmgu", "geohash"))
	assert.NoError(t, v.Var("EZJ", "geohash"))
	assert.Error(t, v.Var("ezja!", "geohash"))
	assert.Error(t, v.Var("", "geohash"))
}

func TestSearch_UnspecifiedCriteriaAreNoOps(t *testing.T) {
	hidden := &models.ListedProperty{ID: 3, Features: []string{}}
	engine := NewEngine(&staticSource{rows: []*models.ListedProperty{
		saleRow(2, 100), rentalRow(1, false, 0, 100, 0), hidden,
	}}, quietLogger())

	res, err := engine.Search(context.Background(), 1, Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids(res.Properties))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, DefaultLimit, res.Limit)

	res, err = engine.Search(context.Background(), 1, Criteria{IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, ids(res.Properties))
}

func TestSearch_PriceWithoutCategory(t *testing.T) {
	engine := NewEngine(&staticSource{rows: []*models.ListedProperty{
		saleRow(1, 30000000),
		rentalRow(2, false, 0, 120000, 0),
	}}, quietLogger())

	res, err := engine.Search(context.Background(), 1, Criteria{PriceTill: ptr(int64(200000))})
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids(res.Properties))

	res, err = engine.Search(context.Background(), 1, Criteria{SaleOrRental: CategorySale, PriceFrom: ptr(int64(20000000))})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(res.Properties))
}

func TestSearch_OrderingAndPagination(t *testing.T) {
	a := saleRow(1, 50000000)
	a.CountBedrooms = 2
	b := saleRow(2, 30000000)
	b.CountBedrooms = 4
	c := saleRow(3, 30000000)
	c.CountBedrooms = 4
	d := rentalRow(4, false, 0, 100000, 0)
	engine := NewEngine(&staticSource{rows: []*models.ListedProperty{d, c, b, a}}, quietLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		criteria Criteria
		want     []uint
	}{
		{"default by id", Criteria{}, []uint{1, 2, 3, 4}},
		{"price asc sale", Criteria{SaleOrRental: CategorySale, OrderBy: OrderPriceAsc}, []uint{2, 3, 1}},
		{"price desc sale", Criteria{SaleOrRental: CategorySale, OrderBy: OrderPriceDesc}, []uint{1, 2, 3}},
		{"price asc mixed", Criteria{OrderBy: OrderPriceAsc}, []uint{4, 2, 3, 1}},
		{"bedrooms desc", Criteria{OrderBy: OrderBedroomsDesc}, []uint{2, 3, 1, 4}},
		{"newest", Criteria{OrderBy: OrderNewest}, []uint{4, 3, 2, 1}},
		{"first page", Criteria{OrderBy: OrderPriceAsc, SaleOrRental: CategorySale, Limit: 2}, []uint{2, 3}},
		{"second page", Criteria{OrderBy: OrderPriceAsc, SaleOrRental: CategorySale, Limit: 2, Offset: 2}, []uint{1}},
		{"past the end", Criteria{Limit: 2, Offset: 10}, []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Search(ctx, 1, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Properties))
		})
	}
}

func TestSearch_SourceError(t *testing.T) {
	engine := NewEngine(&staticSource{err: errors.New("database is locked")}, quietLogger())
	_, err := engine.Search(context.Background(), 1, Criteria{})
	assert.Error(t, err)
}

func TestScopeAndFind(t *testing.T) {
	hidden := &models.ListedProperty{ID: 1, Features: []string{}}
	engine := NewEngine(&staticSource{rows: []*models.ListedProperty{saleRow(2, 100), hidden}}, quietLogger())
	ctx := context.Background()

	rows, err := engine.Scope(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids(rows))

	rows, err = engine.Scope(ctx, 1, ForSale())
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids(rows))

	row, err := engine.Find(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), row.ID)

	_, err = engine.Find(ctx, 1, 99)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

// The full path: inventory writes, a blocking refresh, then a search.
func TestSearch_EndToEnd(t *testing.T) {
	db, err := database.NewTestDB()
	require.NoError(t, err)
	require.NoError(t, database.MigrateSchema(db))

	logger := quietLogger()
	cat := catalog.New(db, logger)
	refresher := catalog.NewRefresher(cat, nil, nil, catalog.RefresherOptions{DefaultMode: catalog.Blocking}, logger)
	repo := inventory.NewRepository(db, refresher, logger)
	engine := NewEngine(cat, logger)
	ctx := context.Background()

	asset := &models.Asset{City: "Madrid", CountBedrooms: 3}
	require.NoError(t, repo.CreateAsset(ctx, 1, asset))

	sale := &models.SaleListing{PriceCents: 35000000}
	sale.AssetID = asset.ID
	sale.Currency = "EUR"
	sale.Visible = true
	sale.Active = true
	require.NoError(t, repo.CreateListing(ctx, 1, sale))

	res, err := engine.Search(ctx, 1, Criteria{SaleOrRental: CategorySale, CountBedrooms: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, []uint{asset.ID}, ids(res.Properties))

	res, err = engine.Search(ctx, 1, Criteria{SaleOrRental: CategoryRental})
	require.NoError(t, err)
	assert.Empty(t, res.Properties)

	// Another tenant never sees the property
	res, err = engine.Search(ctx, 2, Criteria{})
	require.NoError(t, err)
	assert.Empty(t, res.Properties)

	// Archiving the only visible listing drops the asset from every scope
	require.NoError(t, repo.ArchiveListing(ctx, 1, models.KindSale, sale.ID))

	for _, filter := range []Filter{Visible(), ForSale(), ForRent()} {
		rows, err := engine.Scope(ctx, 1, filter)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}

	_, err = repo.GetAsset(ctx, 1, asset.ID)
	assert.NoError(t, err)
	_, err = repo.GetListing(ctx, 1, models.KindSale, sale.ID)
	assert.NoError(t, err)
}
