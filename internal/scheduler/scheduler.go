package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Rebuilder rebuilds one tenant's read model.
type Rebuilder interface {
	Rebuild(ctx context.Context, tenantID uint) error
}

// CatchUp tracks tenants whose catalog refresh failed and rebuilds them on a
// cron schedule until a rebuild succeeds.
type CatchUp struct {
	rebuilder Rebuilder
	logger    *logrus.Logger
	timeout   time.Duration
	cron      *cron.Cron

	mu    sync.Mutex
	dirty map[uint]struct{}

	jobMutex sync.Mutex // Ensures sweeps never overlap
}

// NewCatchUp creates a catch-up scheduler
func NewCatchUp(rebuilder Rebuilder, timeout time.Duration, logger *logrus.Logger) *CatchUp {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatchUp{
		rebuilder: rebuilder,
		logger:    logger,
		timeout:   timeout,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		dirty:     make(map[uint]struct{}),
	}
}

// MarkDirty schedules the tenant for the next sweep
func (c *CatchUp) MarkDirty(tenantID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dirty[tenantID]; !ok {
		c.logger.WithField("tenant_id", tenantID).Warn("Catalog marked for catch-up refresh")
	}
	c.dirty[tenantID] = struct{}{}
}

// Dirty returns the tenants waiting for a catch-up refresh in ascending order
func (c *CatchUp) Dirty() []uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	tenants := make([]uint, 0, len(c.dirty))
	for id := range c.dirty {
		tenants = append(tenants, id)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })
	return tenants
}

// Start schedules the sweep with the given cron spec
func (c *CatchUp) Start(spec string) error {
	_, err := c.cron.AddFunc(spec, func() {
		c.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	c.cron.Start()
	c.logger.WithField("spec", spec).Info("Catch-up refresh scheduled")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (c *CatchUp) Stop() {
	<-c.cron.Stop().Done()
}

// RunOnce rebuilds every dirty tenant and returns how many succeeded.
// Tenants that fail again stay dirty for the next sweep.
func (c *CatchUp) RunOnce(ctx context.Context) int {
	c.jobMutex.Lock()
	defer c.jobMutex.Unlock()

	tenants := c.Dirty()
	if len(tenants) == 0 {
		return 0
	}

	c.logger.WithField("tenants", len(tenants)).Info("Starting catch-up refresh")

	succeeded := 0
	for _, tenantID := range tenants {
		// Cleared before the rebuild so a failure reported meanwhile re-marks it
		c.clear(tenantID)

		runCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.rebuilder.Rebuild(runCtx, tenantID)
		cancel()

		if err != nil {
			c.logger.WithError(err).WithField("tenant_id", tenantID).Error("Catch-up refresh failed")
			c.MarkDirty(tenantID)
			continue
		}
		succeeded++
	}

	c.logger.WithFields(logrus.Fields{
		"tenants":   len(tenants),
		"succeeded": succeeded,
	}).Info("Completed catch-up refresh")
	return succeeded
}

func (c *CatchUp) clear(tenantID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dirty, tenantID)
}
