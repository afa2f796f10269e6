// Package inventory is the write side of the catalog: assets, listings,
// features and photos. Every successful write triggers a catalog refresh for
// the tenant after the transaction commits.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estatecatalog/server/internal/catalog"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrActiveListingExists = errors.New("asset already has an active listing of this kind")
	ErrInvalidListing      = errors.New("invalid listing")
	ErrInvalidAsset        = errors.New("invalid asset")
)

// Refresher is notified after every committed write.
type Refresher interface {
	Refresh(ctx context.Context, tenantID uint, mode catalog.Mode) error
	DefaultMode() catalog.Mode
}

type writeOptions struct {
	mode    catalog.Mode
	hasMode bool
}

// WriteOption adjusts how a single write triggers its refresh.
type WriteOption func(*writeOptions)

// WithRefreshMode overrides the refresher's default mode for one write.
func WithRefreshMode(mode catalog.Mode) WriteOption {
	return func(o *writeOptions) {
		o.mode = mode
		o.hasMode = true
	}
}

// Repository writes the normalized source tables. Every call is scoped to the
// tenant id it is given.
type Repository struct {
	db        *gorm.DB
	refresher Refresher
	logger    *logrus.Logger
	validate  *validator.Validate
}

// NewRepository creates an inventory repository. refresher may be nil, in
// which case writes do not refresh the catalog.
func NewRepository(db *gorm.DB, refresher Refresher, logger *logrus.Logger) *Repository {
	if logger == nil {
		logger = logrus.New()
	}
	return &Repository{
		db:        db,
		refresher: refresher,
		logger:    logger,
		validate:  validator.New(),
	}
}

// write runs fn in a transaction and refreshes the catalog once it commits.
// A refresh failure is logged and never turns a committed write into an error.
func (r *Repository) write(ctx context.Context, tenantID uint, opts []WriteOption, fn func(tx *gorm.DB) error) error {
	if err := r.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}

	if r.refresher == nil {
		return nil
	}

	o := writeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	mode := r.refresher.DefaultMode()
	if o.hasMode {
		mode = o.mode
	}

	if err := r.refresher.Refresh(ctx, tenantID, mode); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"mode":      mode.String(),
		}).Warn("Catalog refresh after write failed")
	}
	return nil
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
