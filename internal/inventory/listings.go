package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"estatecatalog/server/internal/models"
)

// CreateListing inserts a sale, rental or syndicated listing for an asset the
// tenant owns. A second active, unarchived listing of the same variant on the
// asset fails with ErrActiveListingExists.
//
// Active is not implied by Visible: a listing created with Visible set but
// Active left false is stored and never makes its asset appear in the catalog.
func (r *Repository) CreateListing(ctx context.Context, tenantID uint, l models.Listing, opts ...WriteOption) error {
	if err := r.validateListing(l); err != nil {
		return err
	}
	base := l.Base()
	base.TenantID = tenantID

	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		if _, err := ownedAsset(tx, tenantID, base.AssetID); err != nil {
			return err
		}
		if err := tx.Create(l).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s on asset %d", ErrActiveListingExists, l.Kind(), base.AssetID)
			}
			return fmt.Errorf("inserting %s listing: %w", l.Kind(), err)
		}
		return nil
	})
}

// UpdateListing saves every column of an existing listing. The listing may not
// move to another asset.
func (r *Repository) UpdateListing(ctx context.Context, tenantID uint, l models.Listing, opts ...WriteOption) error {
	if err := r.validateListing(l); err != nil {
		return err
	}
	base := l.Base()
	base.TenantID = tenantID

	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		current, err := ownedListing(tx, tenantID, l.Kind(), base.ID)
		if err != nil {
			return err
		}
		if current.Base().AssetID != base.AssetID {
			return fmt.Errorf("%w: listing %d cannot move to asset %d", ErrInvalidListing, base.ID, base.AssetID)
		}
		base.CreatedAt = current.Base().CreatedAt
		if err := tx.Save(l).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s on asset %d", ErrActiveListingExists, l.Kind(), base.AssetID)
			}
			return fmt.Errorf("updating %s listing %d: %w", l.Kind(), base.ID, err)
		}
		return nil
	})
}

// ArchiveListing soft-retires a listing. The row stays in place but no longer
// contributes to the catalog.
func (r *Repository) ArchiveListing(ctx context.Context, tenantID uint, kind models.ListingKind, listingID uint, opts ...WriteOption) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		l, err := ownedListing(tx, tenantID, kind, listingID)
		if err != nil {
			return err
		}
		if err := tx.Model(l).Update("archived", true).Error; err != nil {
			return fmt.Errorf("archiving %s listing %d: %w", kind, listingID, err)
		}
		return nil
	})
}

// DeleteListing removes a listing. The asset is kept.
func (r *Repository) DeleteListing(ctx context.Context, tenantID uint, kind models.ListingKind, listingID uint, opts ...WriteOption) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	return r.write(ctx, tenantID, opts, func(tx *gorm.DB) error {
		l, err := ownedListing(tx, tenantID, kind, listingID)
		if err != nil {
			return err
		}
		if err := tx.Delete(l).Error; err != nil {
			return fmt.Errorf("deleting %s listing %d: %w", kind, listingID, err)
		}
		return nil
	})
}

// GetListing loads one listing of any variant.
func (r *Repository) GetListing(ctx context.Context, tenantID uint, kind models.ListingKind, listingID uint) (models.Listing, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	return ownedListing(r.db.WithContext(ctx), tenantID, kind, listingID)
}

// ListingsForAsset returns every listing of the asset, archived ones included,
// sale first, then rental, then syndicated, each ordered by id.
func (r *Repository) ListingsForAsset(ctx context.Context, tenantID, assetID uint) ([]models.Listing, error) {
	db := r.db.WithContext(ctx)
	if _, err := ownedAsset(db, tenantID, assetID); err != nil {
		return nil, err
	}

	var sales []models.SaleListing
	var rentals []models.RentalListing
	var syndicated []models.SyndicatedListing

	scope := db.Where("tenant_id = ? AND asset_id = ?", tenantID, assetID).Order("id").Session(&gorm.Session{})
	if err := scope.Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("loading sale listings: %w", err)
	}
	if err := scope.Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("loading rental listings: %w", err)
	}
	if err := scope.Find(&syndicated).Error; err != nil {
		return nil, fmt.Errorf("loading syndicated listings: %w", err)
	}

	out := make([]models.Listing, 0, len(sales)+len(rentals)+len(syndicated))
	for i := range sales {
		out = append(out, &sales[i])
	}
	for i := range rentals {
		out = append(out, &rentals[i])
	}
	for i := range syndicated {
		out = append(out, &syndicated[i])
	}
	return out, nil
}

func (r *Repository) validateListing(l models.Listing) error {
	if l == nil || !l.Kind().Valid() {
		return fmt.Errorf("%w: unknown kind", ErrInvalidListing)
	}
	if err := r.validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	return nil
}

func ownedListing(tx *gorm.DB, tenantID uint, kind models.ListingKind, listingID uint) (models.Listing, error) {
	l, ok := models.NewListing(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	if err := tx.Where("id = ? AND tenant_id = ?", listingID, tenantID).First(l).Error; err != nil {
		return nil, notFound(err, string(kind)+" listing", listingID)
	}
	return l, nil
}
