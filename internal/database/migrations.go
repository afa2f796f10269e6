package database

import (
	"fmt"

	"gorm.io/gorm"

	"estatecatalog/server/internal/models"
)

// activeListingIndexes keep at most one active, unarchived listing per asset
// for each variant. Archived and inactive rows may pile up as history.
var activeListingIndexes = []struct {
	name  string
	table string
}{
	{"idx_sale_listings_one_active", "sale_listings"},
	{"idx_rental_listings_one_active", "rental_listings"},
	{"idx_syndicated_listings_one_active", "syndicated_listings"},
}

// MigrateSchema creates the source tables and the catalog read model table.
func MigrateSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Asset{},
		&models.Feature{},
		&models.Photo{},
		&models.SaleListing{},
		&models.RentalListing{},
		&models.SyndicatedListing{},
		&models.CatalogRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, idx := range activeListingIndexes {
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(asset_id) WHERE active = 1 AND archived = 0",
			idx.name, idx.table,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	// Geographic lookups on the source table
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_assets_coordinates
		ON assets(latitude, longitude);
	`).Error; err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}
