package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"estatecatalog/server/internal/inventory"
	"estatecatalog/server/internal/models"
)

// seedText is a localized title and description.
type seedText struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type seedListing struct {
	models.Visibility
	Currency string              `json:"currency"`
	Text     map[string]seedText `json:"text"`
}

type seedSale struct {
	seedListing
	PriceCents int64 `json:"price_cents"`
}

type seedRental struct {
	seedListing
	MonthlyLowSeasonCents  int64 `json:"monthly_low_season_cents"`
	MonthlyCurrentCents    int64 `json:"monthly_current_cents"`
	MonthlyHighSeasonCents int64 `json:"monthly_high_season_cents"`
	ShortTerm              bool  `json:"short_term"`
	Furnished              bool  `json:"furnished"`
}

type seedSyndicated struct {
	seedListing
	PriceCents int64  `json:"price_cents"`
	PublishURL string `json:"publish_url"`
	// Positions in the asset's photo list, since photo ids are assigned on insert
	PhotoOrder          []int    `json:"photo_order"`
	HighlightedFeatures []string `json:"highlighted_features"`
}

type seedAsset struct {
	models.Asset
	FeatureKeys []string        `json:"feature_keys"`
	SeedPhotos  []models.Photo  `json:"seed_photos"`
	Sale        *seedSale       `json:"sale"`
	Rental      *seedRental     `json:"rental"`
	Syndicated  *seedSyndicated `json:"syndicated"`
}

func newSeedCmd() *cobra.Command {
	var (
		tenantID uint
		file     string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load inventory fixtures for a tenant",
		Long:  "Write assets, features, photos and listings from a JSON file and rebuild the tenant's catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == 0 {
				return errors.New("--tenant is required")
			}
			if file == "" {
				return errors.New("--file is required")
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read fixtures: %w", err)
			}
			var assets []seedAsset
			if err := json.Unmarshal(data, &assets); err != nil {
				return fmt.Errorf("failed to parse fixtures: %w", err)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close(false)

			ctx := cmd.Context()
			for i := range assets {
				if err := seedOne(ctx, a.inventory, tenantID, &assets[i]); err != nil {
					return fmt.Errorf("asset %d: %w", i, err)
				}
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.Refresh.Timeout)
			defer cancel()
			if err := a.catalog.RebuildBlocking(ctx, tenantID); err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"assets":    len(assets),
			}).Info("Fixtures loaded")
			return nil
		},
	}

	cmd.Flags().UintVar(&tenantID, "tenant", 0, "tenant that owns the fixtures")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with an array of assets")
	return cmd
}

func seedOne(ctx context.Context, repo *inventory.Repository, tenantID uint, s *seedAsset) error {
	asset := s.Asset
	asset.ID = 0
	asset.Features = nil
	asset.Photos = nil
	if err := repo.CreateAsset(ctx, tenantID, &asset); err != nil {
		return err
	}

	for _, key := range s.FeatureKeys {
		if err := repo.AddFeature(ctx, tenantID, asset.ID, key); err != nil {
			return err
		}
	}

	photoIDs := make([]uint, 0, len(s.SeedPhotos))
	for _, p := range s.SeedPhotos {
		p.ID = 0
		if err := repo.AddPhoto(ctx, tenantID, asset.ID, &p); err != nil {
			return err
		}
		photoIDs = append(photoIDs, p.ID)
	}

	if s.Sale != nil {
		l := &models.SaleListing{PriceCents: s.Sale.PriceCents}
		s.Sale.apply(&l.ListingBase, asset.ID)
		if err := repo.CreateListing(ctx, tenantID, l); err != nil {
			return err
		}
	}

	if s.Rental != nil {
		l := &models.RentalListing{
			MonthlyLowSeasonCents:  s.Rental.MonthlyLowSeasonCents,
			MonthlyCurrentCents:    s.Rental.MonthlyCurrentCents,
			MonthlyHighSeasonCents: s.Rental.MonthlyHighSeasonCents,
			ShortTerm:              s.Rental.ShortTerm,
			Furnished:              s.Rental.Furnished,
		}
		s.Rental.apply(&l.ListingBase, asset.ID)
		if err := repo.CreateListing(ctx, tenantID, l); err != nil {
			return err
		}
	}

	if s.Syndicated != nil {
		order := make([]uint, 0, len(s.Syndicated.PhotoOrder))
		for _, pos := range s.Syndicated.PhotoOrder {
			if pos < 0 || pos >= len(photoIDs) {
				return fmt.Errorf("photo_order position %d out of range", pos)
			}
			order = append(order, photoIDs[pos])
		}
		l := &models.SyndicatedListing{
			PriceCents:          s.Syndicated.PriceCents,
			PublishURL:          s.Syndicated.PublishURL,
			PhotoOrder:          datatypes.NewJSONType(order),
			HighlightedFeatures: datatypes.NewJSONType(s.Syndicated.HighlightedFeatures),
		}
		s.Syndicated.apply(&l.ListingBase, asset.ID)
		if err := repo.CreateListing(ctx, tenantID, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *seedListing) apply(b *models.ListingBase, assetID uint) {
	b.AssetID = assetID
	b.Currency = s.Currency
	b.Visible = s.Visible
	b.Highlighted = s.Highlighted
	b.Archived = s.Archived
	b.Reserved = s.Reserved
	b.Active = s.Active
	for locale, t := range s.Text {
		b.SetText(locale, t.Title, t.Description)
	}
}
