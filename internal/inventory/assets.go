package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estatecatalog/server/internal/models"
)

// CreateAsset registers a new asset for the tenant.
func (r *Repository) CreateAsset(ctx context.Context, tenantID uint, a *models.Asset, opts ...WriteOption) error {
	if err := r.validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	a.TenantID = tenantID

	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("inserting asset: %w", err)
		}
		return nil
	})
}

// UpdateAsset saves the asset's own columns. Features and photos are changed
// through their dedicated methods only.
func (r *Repository) UpdateAsset(ctx context.Context, tenantID uint, a *models.Asset, opts ...WriteOption) error {
	if err := r.validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	a.TenantID = tenantID

	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, a.ID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(a).Error; err != nil {
			return fmt.Errorf("updating asset %d: %w", a.ID, err)
		}
		return nil
	})
}

// DeleteAsset destroys the asset together with its listings, features and
// photos in one transaction.
func (r *Repository) DeleteAsset(ctx context.Context, tenantID, assetID uint, opts ...WriteOption) error {
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, assetID); err != nil {
			return err
		}

		owned := []interface{}{
			&models.SaleListing{},
			&models.RentalListing{},
			&models.SyndicatedListing{},
			&models.Feature{},
			&models.Photo{},
		}
		for _, model := range owned {
			if err := tx.Where("asset_id = ?", assetID).Delete(model).Error; err != nil {
				return fmt.Errorf("deleting children of asset %d: %w", assetID, err)
			}
		}

		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.Asset{}, assetID).Error; err != nil {
			return fmt.Errorf("deleting asset %d: %w", assetID, err)
		}
		return nil
	})
}

// GetAsset returns an asset with its features and ordered photos.
func (r *Repository) GetAsset(ctx context.Context, tenantID, assetID uint) (*models.Asset, error) {
	var a models.Asset
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", assetID, tenantID).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("key") }).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "asset", assetID)
	}
	return &a, nil
}

// AddFeature marks the feature present. Adding a present feature is a no-op.
func (r *Repository) AddFeature(ctx context.Context, tenantID, assetID uint, key string, opts ...WriteOption) error {
	if key == "" {
		return fmt.Errorf("%w: empty feature key", ErrInvalidAsset)
	}
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, assetID); err != nil {
			return err
		}
		f := models.Feature{AssetID: assetID, Key: key}
		if err := tx.Where(&f).FirstOrCreate(&f).Error; err != nil {
			return fmt.Errorf("adding feature %q: %w", key, err)
		}
		return nil
	})
}

// RemoveFeature marks the feature absent.
func (r *Repository) RemoveFeature(ctx context.Context, tenantID, assetID uint, key string, opts ...WriteOption) error {
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, assetID); err != nil {
			return err
		}
		if err := tx.Where("asset_id = ? AND key = ?", assetID, key).Delete(&models.Feature{}).Error; err != nil {
			return fmt.Errorf("removing feature %q: %w", key, err)
		}
		return nil
	})
}

// AddPhoto attaches a photo to the asset. Without an explicit sort order the
// photo goes last.
func (r *Repository) AddPhoto(ctx context.Context, tenantID, assetID uint, p *models.Photo, opts ...WriteOption) error {
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, assetID); err != nil {
			return err
		}
		p.AssetID = assetID
		if p.SortOrder == 0 {
			var maxOrder int
			if err := tx.Model(&models.Photo{}).
				Where("asset_id = ?", assetID).
				Select("COALESCE(MAX(sort_order), 0)").
				Scan(&maxOrder).Error; err != nil {
				return fmt.Errorf("reading photo order: %w", err)
			}
			p.SortOrder = maxOrder + 1
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("inserting photo: %w", err)
		}
		return nil
	})
}

// RemovePhoto detaches a photo from its asset.
func (r *Repository) RemovePhoto(ctx context.Context, tenantID, photoID uint, opts ...WriteOption) error {
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		var p models.Photo
		if err := tx.First(&p, photoID).Error; err != nil {
			return notFound(err, "photo", photoID)
		}
		if _, err := ownedAsset(tx, tenantID, p.AssetID); err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return fmt.Errorf("deleting photo %d: %w", photoID, err)
		}
		return nil
	})
}

// ReorderPhotos assigns sort positions in the order of photoIDs. Every id must
// belong to the asset.
func (r *Repository) ReorderPhotos(ctx context.Context, tenantID, assetID uint, photoIDs []uint, opts ...WriteOption) error {
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, assetID); err != nil {
			return err
		}
		for i, id := range photoIDs {
			res := tx.Model(&models.Photo{}).
				Where("id = ? AND asset_id = ?", id, assetID).
				Update("sort_order", i+1)
			if res.Error != nil {
				return fmt.Errorf("reordering photo %d: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: photo %d on asset %d", ErrNotFound, id, assetID)
			}
		}
		return nil
	})
}

func ownedAsset(tx *gorm.DB, tenantID, assetID uint) (*models.Asset, error) {
	var a models.Asset
	if err := tx.Where("id = ? AND tenant_id = ?", assetID, tenantID).First(&a).Error; err != nil {
		return nil, notFound(err, "asset", assetID)
	}
	return &a, nil
}
