// Package catalog maintains the denormalized property read model. Rows are
// rebuilt from the source tables into a fresh snapshot which then replaces the
// previous one in a single pointer swap, so readers never see a partial rebuild.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estatecatalog/server/internal/models"
)

// Snapshot is an immutable set of read model rows for one tenant. Rows must
// not be modified by callers.
type Snapshot struct {
	TenantID uint
	RunID    uuid.UUID
	BuiltAt  time.Time

	rows []*models.ListedProperty
	byID map[uint]*models.ListedProperty
}

func newSnapshot(tenantID uint, runID uuid.UUID, rows []*models.ListedProperty) *Snapshot {
	byID := make(map[uint]*models.ListedProperty, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return &Snapshot{
		TenantID: tenantID,
		RunID:    runID,
		BuiltAt:  time.Now(),
		rows:     rows,
		byID:     byID,
	}
}

// Rows returns the rows ordered by asset id.
func (s *Snapshot) Rows() []*models.ListedProperty {
	out := make([]*models.ListedProperty, len(s.rows))
	copy(out, s.rows)
	return out
}

// Get returns the row for an asset.
func (s *Snapshot) Get(assetID uint) (*models.ListedProperty, bool) {
	r, ok := s.byID[assetID]
	return r, ok
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	return len(s.rows)
}

type tenantState struct {
	// gate is held exclusively by blocking refreshes and shared by readers.
	// Non-blocking rebuilds never touch it.
	gate sync.RWMutex
	// build serializes rebuilds of one tenant so snapshots never go backwards.
	build    sync.Mutex
	snapshot atomic.Pointer[Snapshot]
	inflight atomic.Int32
}

// Catalog owns the read model. It is the only writer of the listed_properties
// table and of the in-memory snapshots.
type Catalog struct {
	db     *gorm.DB
	logger *logrus.Logger

	mu      sync.Mutex
	tenants map[uint]*tenantState
}

// New creates a catalog backed by db.
func New(db *gorm.DB, logger *logrus.Logger) *Catalog {
	if logger == nil {
		logger = logrus.New()
	}
	return &Catalog{
		db:      db,
		logger:  logger,
		tenants: make(map[uint]*tenantState),
	}
}

func (c *Catalog) state(tenantID uint) *tenantState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tenants[tenantID]
	if !ok {
		st = &tenantState{}
		c.tenants[tenantID] = st
	}
	return st
}

// Rebuild derives the tenant's rows from the source tables, persists them and
// swaps them in. The source read, the table rewrite and the swap are
// all-or-nothing: on error or deadline the previous snapshot stays visible.
func (c *Catalog) Rebuild(ctx context.Context, tenantID uint) error {
	st := c.state(tenantID)
	st.build.Lock()
	defer st.build.Unlock()

	st.inflight.Add(1)
	defer st.inflight.Add(-1)

	runID := uuid.New()
	start := time.Now()
	log := c.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"run_id":    runID,
	})
	log.Debug("Rebuilding catalog")

	var rows []*models.ListedProperty
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := loadSource(tx, tenantID)
		if err != nil {
			return err
		}
		rows = buildRows(src)

		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.CatalogRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear listed properties: %w", err)
		}
		if len(rows) > 0 {
			records := make([]models.CatalogRecord, 0, len(rows))
			for _, r := range rows {
				records = append(records, models.NewCatalogRecord(r))
			}
			if err := tx.CreateInBatches(records, 100).Error; err != nil {
				return fmt.Errorf("failed to write listed properties: %w", err)
			}
		}

		// Abandon rather than commit a rebuild that outlived its deadline
		return ctx.Err()
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Error("Catalog rebuild abandoned")
			return fmt.Errorf("%w: tenant %d: %w", ErrRefreshTimeout, tenantID, err)
		}
		log.WithError(err).Error("Catalog rebuild failed")
		return fmt.Errorf("%w: tenant %d: %w", ErrRefreshFailed, tenantID, err)
	}

	st.snapshot.Store(newSnapshot(tenantID, runID, rows))
	log.WithFields(logrus.Fields{
		"rows":     len(rows),
		"duration": time.Since(start).String(),
	}).Info("Catalog rebuilt")
	return nil
}

// RebuildBlocking rebuilds while holding the tenant's gate exclusively, so any
// read that starts after it returns sees the new rows.
func (c *Catalog) RebuildBlocking(ctx context.Context, tenantID uint) error {
	st := c.state(tenantID)
	st.gate.Lock()
	defer st.gate.Unlock()
	return c.Rebuild(ctx, tenantID)
}

// Snapshot returns the tenant's current snapshot, loading the persisted rows
// on first use. Reads only wait when a blocking refresh is running.
func (c *Catalog) Snapshot(ctx context.Context, tenantID uint) (*Snapshot, error) {
	st := c.state(tenantID)
	st.gate.RLock()
	defer st.gate.RUnlock()

	snap := st.snapshot.Load()
	if snap == nil {
		loaded, err := c.load(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if !st.snapshot.CompareAndSwap(nil, loaded) {
			loaded = st.snapshot.Load()
		}
		snap = loaded
	}

	if st.inflight.Load() > 0 {
		c.logger.WithFields(logrus.Fields{
			"tenant_id":  tenantID,
			"run_id":     snap.RunID,
			"stale_read": true,
		}).Warn("Catalog read during refresh")
	}
	return snap, nil
}

// Rows returns every row of the tenant's read model.
func (c *Catalog) Rows(ctx context.Context, tenantID uint) ([]*models.ListedProperty, error) {
	snap, err := c.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return snap.Rows(), nil
}

// Find returns the row for one asset, or ErrNotFound.
func (c *Catalog) Find(ctx context.Context, tenantID, assetID uint) (*models.ListedProperty, error) {
	snap, err := c.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	row, ok := snap.Get(assetID)
	if !ok {
		return nil, fmt.Errorf("%w: asset %d", ErrNotFound, assetID)
	}
	return row, nil
}

// Refreshing reports whether a rebuild of the tenant is running.
func (c *Catalog) Refreshing(tenantID uint) bool {
	return c.state(tenantID).inflight.Load() > 0
}

// load reads the persisted rows written by the last successful rebuild.
func (c *Catalog) load(ctx context.Context, tenantID uint) (*Snapshot, error) {
	var records []models.CatalogRecord
	err := c.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("asset_id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load listed properties for tenant %d: %w", tenantID, err)
	}

	rows := make([]*models.ListedProperty, 0, len(records))
	for _, rec := range records {
		row := rec.Document.Data()
		rows = append(rows, &row)
	}

	c.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"rows":      len(rows),
	}).Debug("Loaded persisted catalog")
	return newSnapshot(tenantID, uuid.Nil, rows), nil
}
