package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"estatecatalog/server/internal/media"
	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) URLFor(ctx context.Context, photo models.PhotoRef) (string, error) {
	args := m.Called(photo.ID)
	return args.String(0), args.Error(1)
}

func (m *MockStore) VariantURLFor(ctx context.Context, photo models.PhotoRef, variant string) (string, error) {
	args := m.Called(photo.ID, variant)
	return args.String(0), args.Error(1)
}

func newSerializer(store media.Store) *Serializer {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewSerializer(media.NewResolver(store, logger), "en", logger)
}

func float(v float64) *float64 { return &v }

func madridRow() *models.ListedProperty {
	return &models.ListedProperty{
		ID:            7,
		City:          "Madrid",
		Latitude:      float(40.4168),
		Longitude:     float(-3.7038),
		Geohash:       "ezjmgtwuz",
		CountBedrooms: 3,
		Visible:       true,
		ForSale:       true,
		Sale:          &models.SaleSummary{ListingID: 1, PriceCents: 35000000, Currency: "EUR", Visible: true},
		Features:      []string{"garden", "pool"},
		Photos:        []models.PhotoRef{},
		TextSource:    models.KindSale,
		Titles:        models.Translations{"en": "Sunny flat", "es": "Piso soleado"},
		Descriptions:  models.Translations{"en": "Close to the park"},
	}
}

func TestAsJSON_Locale(t *testing.T) {
	s := newSerializer(nil)
	ctx := context.Background()
	row := madridRow()

	doc := s.AsJSON(ctx, row, Options{Locale: "es"})
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Piso soleado", *doc.Title)
	// No description in Spanish and no fallback to English
	assert.Nil(t, doc.Description)

	doc = s.AsJSON(ctx, row, Options{Locale: "EN"})
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Sunny flat", *doc.Title)
	assert.Equal(t, "en", doc.Locale)

	doc = s.AsJSON(ctx, row, Options{Locale: "fr"})
	assert.Nil(t, doc.Title)
	assert.Nil(t, doc.Description)

	doc = s.AsJSON(ctx, row, Options{Locale: "en-GB"})
	assert.Nil(t, doc.Title)

	doc = s.AsJSON(ctx, row, Options{})
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Sunny flat", *doc.Title)

	doc = s.AsJSON(ctx, row, Options{Locale: "!!"})
	assert.Nil(t, doc.Title)
}

func TestAsJSON_LocaleStoredUnderRawKey(t *testing.T) {
	s := newSerializer(nil)
	ctx := context.Background()
	row := madridRow()
	row.Titles = models.Translations{"pt-br": "Apartamento", "EN": "Upper"}

	doc := s.AsJSON(ctx, row, Options{Locale: "pt-br"})
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Apartamento", *doc.Title)

	doc = s.AsJSON(ctx, row, Options{Locale: "EN"})
	require.NotNil(t, doc.Title)
	assert.Equal(t, "Upper", *doc.Title)

	// Other spellings of a stored key are not matched
	doc = s.AsJSON(ctx, row, Options{Locale: "pt-BR"})
	assert.Nil(t, doc.Title)
}

func TestAsJSON_NoPhotos(t *testing.T) {
	doc := newSerializer(nil).AsJSON(context.Background(), madridRow(), Options{})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []interface{}{}, decoded["prop_photos"])
	assert.Equal(t, "", decoded["primary_image_url"])
}

func TestAsJSON_PhotoFallbackChain(t *testing.T) {
	store := &MockStore{}
	store.On("URLFor", uint(2)).Return("https://media.example.com/blobs/2", nil)
	store.On("URLFor", uint(4)).Return("", errors.New("blob missing"))

	row := madridRow()
	row.Photos = []models.PhotoRef{
		{ID: 1, SortOrder: 1, ExternalURL: "https://cdn.example.com/1.jpg"},
		{ID: 2, SortOrder: 2, BlobKey: "blobs/2", ContentType: "image/jpeg", ByteSize: 4096},
		{ID: 3, SortOrder: 3},
		{ID: 4, SortOrder: 4, BlobKey: "blobs/4", ContentType: "image/jpeg", ByteSize: 4096},
	}

	doc := newSerializer(store).AsJSON(context.Background(), row, Options{})
	require.Len(t, doc.PropPhotos, 4)
	assert.Equal(t, "https://cdn.example.com/1.jpg", doc.PropPhotos[0].URL)
	assert.Equal(t, "https://media.example.com/blobs/2", doc.PropPhotos[1].URL)
	assert.Equal(t, "", doc.PropPhotos[2].URL)
	assert.Equal(t, "", doc.PropPhotos[3].URL)
	assert.Equal(t, "https://cdn.example.com/1.jpg", doc.PrimaryImageURL)
	store.AssertExpectations(t)
}

func TestAsJSON_ImageVariant(t *testing.T) {
	store := &MockStore{}
	store.On("VariantURLFor", uint(2), "thumb").Return("https://media.example.com/variants/thumb/blobs/2", nil)
	store.On("URLFor", uint(3)).Return("https://media.example.com/blobs/3", nil)

	row := madridRow()
	row.Photos = []models.PhotoRef{
		{ID: 2, BlobKey: "blobs/2", ContentType: "image/jpeg", ByteSize: 4096},
		{ID: 3, BlobKey: "blobs/3", ContentType: "application/pdf", ByteSize: 4096},
	}

	doc := newSerializer(store).AsJSON(context.Background(), row, Options{ImageVariant: "thumb"})
	assert.Equal(t, "https://media.example.com/variants/thumb/blobs/2", doc.PropPhotos[0].URL)
	assert.Equal(t, "https://media.example.com/blobs/3", doc.PropPhotos[1].URL)
}

func TestAsJSON_FeatureMapIsSparse(t *testing.T) {
	doc := newSerializer(nil).AsJSON(context.Background(), madridRow(), Options{})
	assert.Equal(t, map[string]bool{"garden": true, "pool": true}, doc.Features)

	row := madridRow()
	row.Features = []string{}
	doc = newSerializer(nil).AsJSON(context.Background(), row, Options{})
	assert.NotNil(t, doc.Features)
	assert.Empty(t, doc.Features)
}

func TestAsJSON_Prices(t *testing.T) {
	s := newSerializer(nil)
	ctx := context.Background()

	doc := s.AsJSON(ctx, madridRow(), Options{})
	require.NotNil(t, doc.Price)
	assert.Equal(t, int64(35000000), doc.Price.AmountCents)
	assert.Equal(t, pricing.ForSale, doc.Price.Context)
	assert.Contains(t, doc.FormattedPrice, "€")
	assert.Nil(t, doc.RentalPrice)

	row := madridRow()
	row.ForSale = false
	row.Sale = nil
	row.ForRent = true
	row.ForRentShortTerm = true
	row.Rental = &models.RentalSummary{
		MonthlyLowSeasonCents:  80000,
		MonthlyCurrentCents:    150000,
		MonthlyHighSeasonCents: 250000,
		Currency:               "EUR",
		ShortTerm:              true,
		Furnished:              true,
	}
	doc = s.AsJSON(ctx, row, Options{})
	require.NotNil(t, doc.Price)
	assert.Equal(t, int64(80000), doc.Price.AmountCents)
	assert.Equal(t, pricing.ForRent, doc.Price.Context)
	assert.True(t, doc.Furnished)

	doc = s.AsJSON(ctx, row, Options{PriceContext: pricing.ForSale})
	assert.Nil(t, doc.Price)
	assert.Equal(t, "", doc.FormattedPrice)
}

func TestAsJSON_Syndicated(t *testing.T) {
	row := madridRow()
	row.Photos = []models.PhotoRef{
		{ID: 1, SortOrder: 1, ExternalURL: "https://cdn.example.com/1.jpg"},
		{ID: 2, SortOrder: 2, ExternalURL: "https://cdn.example.com/2.jpg"},
		{ID: 3, SortOrder: 3, ExternalURL: "https://cdn.example.com/3.jpg"},
	}
	row.Syndicated = &models.SyndicatedSummary{
		PriceCents:          34000000,
		Currency:            "EUR",
		PublishURL:          "https://portal.example.com/p/7",
		PhotoOrder:          []uint{3, 99, 1},
		HighlightedFeatures: []string{"pool", "lift"},
	}
	s := newSerializer(nil)
	ctx := context.Background()

	doc := s.AsJSON(ctx, row, Options{Syndicated: true})
	assert.Equal(t, []uint{3, 1, 2}, photoIDs(doc.PropPhotos))
	assert.Equal(t, "https://cdn.example.com/3.jpg", doc.PrimaryImageURL)
	assert.Equal(t, map[string]bool{"pool": true}, doc.Features)
	assert.Equal(t, int64(34000000), doc.Price.AmountCents)
	assert.Equal(t, "https://portal.example.com/p/7", doc.PublishURL)
	// The sale price is still reported separately
	assert.Equal(t, int64(35000000), doc.SalePrice.AmountCents)

	doc = s.AsJSON(ctx, row, Options{})
	assert.Equal(t, []uint{1, 2, 3}, photoIDs(doc.PropPhotos))
	assert.Empty(t, doc.PublishURL)
}

func photoIDs(photos []Photo) []uint {
	out := make([]uint, 0, len(photos))
	for _, p := range photos {
		out = append(out, p.ID)
	}
	return out
}

func TestFeatureCollection(t *testing.T) {
	located := madridRow()
	unlocated := madridRow()
	unlocated.ID = 8
	unlocated.Latitude = nil
	unlocated.Longitude = nil

	fc := newSerializer(nil).FeatureCollection(context.Background(), []*models.ListedProperty{located, unlocated}, Options{})
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, orb.Point{-3.7038, 40.4168}, f.Geometry)
	assert.Equal(t, uint(7), f.Properties["id"])
	assert.Equal(t, "ezjmgtwuz", f.Properties["geohash"])

	raw, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"FeatureCollection"`)
}
