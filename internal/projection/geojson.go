package projection

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"estatecatalog/server/internal/models"
)

// FeatureCollection renders the located rows as GeoJSON points for map
// consumers. Rows without coordinates are skipped.
func (s *Serializer) FeatureCollection(ctx context.Context, rows []*models.ListedProperty, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		if !row.HasLocation() {
			continue
		}
		doc := s.AsJSON(ctx, row, opts)

		f := geojson.NewFeature(orb.Point{*row.Longitude, *row.Latitude})
		f.ID = row.ID
		f.Properties["id"] = row.ID
		f.Properties["title"] = doc.Title
		f.Properties["city"] = doc.City
		f.Properties["count_bedrooms"] = doc.CountBedrooms
		f.Properties["for_sale"] = doc.ForSale
		f.Properties["for_rent"] = doc.ForRent
		f.Properties["highlighted"] = doc.Highlighted
		f.Properties["formatted_price"] = doc.FormattedPrice
		f.Properties["primary_image_url"] = doc.PrimaryImageURL
		f.Properties["geohash"] = doc.Geohash
		fc.Append(f)
	}
	return fc
}
