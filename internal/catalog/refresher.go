package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"estatecatalog/server/internal/queue"
)

// Mode selects how a refresh interacts with concurrent readers.
type Mode int

const (
	// NonBlocking queues the rebuild and returns at once. Readers keep the
	// previous snapshot until the rebuild swaps in.
	NonBlocking Mode = iota
	// Blocking rebuilds before returning and holds readers off meanwhile.
	Blocking
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	default:
		return "nonblocking"
	}
}

// ParseMode accepts "blocking" and "nonblocking" (or "non-blocking").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocking":
		return Blocking, nil
	case "", "nonblocking", "non-blocking", "non_blocking":
		return NonBlocking, nil
	}
	return NonBlocking, fmt.Errorf("unknown refresh mode %q", s)
}

// Enqueuer accepts non-blocking refresh requests.
type Enqueuer interface {
	Push(tenantID uint) (queue.RefreshRequest, error)
}

// CatchUp remembers tenants whose refresh failed so a later sweep retries them.
type CatchUp interface {
	MarkDirty(tenantID uint)
}

// Refresher is the entry point write paths call after committing.
type Refresher struct {
	catalog     *Catalog
	enqueuer    Enqueuer
	catchUp     CatchUp
	timeout     time.Duration
	defaultMode Mode
	logger      *logrus.Logger
}

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	Timeout     time.Duration
	DefaultMode Mode
}

// NewRefresher wires a refresher. enqueuer and catchUp may be nil; without an
// enqueuer non-blocking refreshes run on their own goroutine.
func NewRefresher(c *Catalog, enqueuer Enqueuer, catchUp CatchUp, opts RefresherOptions, logger *logrus.Logger) *Refresher {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Refresher{
		catalog:     c,
		enqueuer:    enqueuer,
		catchUp:     catchUp,
		timeout:     opts.Timeout,
		defaultMode: opts.DefaultMode,
		logger:      logger,
	}
}

// DefaultMode is the mode used by writes that do not ask for one.
func (r *Refresher) DefaultMode() Mode {
	return r.defaultMode
}

// Refresh brings the tenant's read model up to date. It is idempotent and
// safe to call redundantly from concurrent write paths. A returned error has
// already been logged and the tenant marked for catch-up; write paths should
// not fail because of it.
func (r *Refresher) Refresh(ctx context.Context, tenantID uint, mode Mode) error {
	log := r.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"mode":      mode.String(),
	})

	if mode == Blocking {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.catalog.RebuildBlocking(ctx, tenantID); err != nil {
			log.WithError(err).Error("Blocking catalog refresh failed")
			r.markDirty(tenantID)
			return err
		}
		return nil
	}

	if r.enqueuer == nil {
		go r.rebuildDetached(tenantID)
		return nil
	}

	if _, err := r.enqueuer.Push(tenantID); err != nil {
		log.WithError(err).Warn("Could not queue catalog refresh")
		r.markDirty(tenantID)
		return fmt.Errorf("%w: tenant %d: %w", ErrRefreshFailed, tenantID, err)
	}
	return nil
}

func (r *Refresher) rebuildDetached(tenantID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.catalog.Rebuild(ctx, tenantID); err != nil {
		r.markDirty(tenantID)
	}
}

func (r *Refresher) markDirty(tenantID uint) {
	if r.catchUp != nil {
		r.catchUp.MarkDirty(tenantID)
	}
}
