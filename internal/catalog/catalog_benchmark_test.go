package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"estatecatalog/server/internal/database"
	"estatecatalog/server/internal/models"
)

func generateInventory(b *testing.B, count int) *Catalog {
	db, err := database.NewTestDB()
	require.NoError(b, err)
	require.NoError(b, database.MigrateSchema(db))

	assets := make([]*models.Asset, count)
	for i := range assets {
		assets[i] = &models.Asset{
			TenantID:      1,
			City:          "Madrid",
			PostalCode:    fmt.Sprintf("280%02d", i%50),
			CountBedrooms: 1 + i%5,
			Latitude:      float(40.30 + float64(i%100)*0.003),
			Longitude:     float(-3.80 + float64(i%70)*0.003),
			Features:      []models.Feature{{Key: "pool"}},
			Photos:        []models.Photo{{SortOrder: 1, ExternalURL: fmt.Sprintf("https://img.example.com/%d.jpg", i)}},
		}
	}
	require.NoError(b, db.CreateInBatches(assets, 100).Error)

	for _, a := range assets {
		l := &models.SaleListing{PriceCents: 20000000 + int64(a.ID)*1000}
		l.TenantID = 1
		l.AssetID = a.ID
		l.Currency = "EUR"
		l.Visible = true
		l.Active = true
		l.SetText("en", fmt.Sprintf("Flat %d", a.ID), "")
		require.NoError(b, db.Create(l).Error)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return New(db, logger)
}

func BenchmarkRebuild(b *testing.B) {
	for _, count := range []int{100, 1000} {
		b.Run(fmt.Sprintf("Assets_%d", count), func(b *testing.B) {
			c := generateInventory(b, count)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				require.NoError(b, c.Rebuild(ctx, 1))
			}
			b.StopTimer()

			snap, err := c.Snapshot(ctx, 1)
			require.NoError(b, err)
			require.Equal(b, count, snap.Len())
		})
	}
}
