package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"estatecatalog/server/config"
	"estatecatalog/server/internal/queue"
)

const defaultTimeout = 30 * time.Second

// Rebuilder rebuilds one tenant's read model.
type Rebuilder interface {
	Rebuild(ctx context.Context, tenantID uint) error
}

// CatchUp receives tenants whose rebuild kept failing.
type CatchUp interface {
	MarkDirty(tenantID uint)
}

// RefreshProcessor runs queued non-blocking refreshes with timeout and retry
type RefreshProcessor struct {
	rebuilder Rebuilder
	queue     *queue.RefreshQueue
	catchUp   CatchUp
	config    *config.Config
	logger    *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRefreshProcessor creates a new refresh processor instance
func NewRefreshProcessor(rebuilder Rebuilder, q *queue.RefreshQueue, catchUp CatchUp, cfg *config.Config, logger *logrus.Logger) *RefreshProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshProcessor{
		rebuilder: rebuilder,
		queue:     q,
		catchUp:   catchUp,
		config:    cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the queue and starts its workers
func (p *RefreshProcessor) Start() {
	p.queue.Subscribe(p.processRequest)
	p.queue.Start(p.config.Refresh.Workers)
}

// Stop cancels pending retries and waits for running rebuilds to return
func (p *RefreshProcessor) Stop() {
	p.cancel()
	p.queue.Close()
}

// processRequest rebuilds the tenant, retrying failed attempts. Once retries
// are exhausted the tenant is handed to the catch-up sweep.
func (p *RefreshProcessor) processRequest(req queue.RefreshRequest) error {
	log := p.logger.WithFields(logrus.Fields{
		"tenant_id":  req.TenantID,
		"request_id": req.ID,
	})

	var err error
	for attempt := 0; attempt <= p.config.Refresh.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Infof("Retrying catalog refresh, attempt %d of %d", attempt, p.config.Refresh.MaxRetries)
			select {
			case <-p.ctx.Done():
				return p.giveUp(req.TenantID, p.ctx.Err())
			case <-time.After(p.config.RetryDelayDuration()):
			}
		}

		err = p.rebuild(req.TenantID)
		if err == nil {
			log.WithField("queued_for", time.Since(req.EnqueuedAt).String()).Debug("Processed catalog refresh")
			return nil
		}

		log.WithError(err).WithField("attempt", attempt).Error("Catalog refresh attempt failed")
	}

	return p.giveUp(req.TenantID, fmt.Errorf("failed to refresh catalog after %d attempts: %w", p.config.Refresh.MaxRetries, err))
}

func (p *RefreshProcessor) rebuild(tenantID uint) error {
	timeout := p.config.Refresh.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return p.rebuilder.Rebuild(ctx, tenantID)
}

func (p *RefreshProcessor) giveUp(tenantID uint, err error) error {
	if p.catchUp != nil {
		p.catchUp.MarkDirty(tenantID)
	}
	return err
}
