package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// RefreshRequest asks for one tenant's catalog to be rebuilt.
type RefreshRequest struct {
	ID         uuid.UUID
	TenantID   uint
	EnqueuedAt time.Time
}

// RefreshQueue is an in-memory queue of catalog refresh requests. Requests
// for a tenant that is already waiting are coalesced into the waiting one.
type RefreshQueue struct {
	items    chan RefreshRequest
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	pending  map[uint]uuid.UUID
	logger   *logrus.Logger
	handlers []func(RefreshRequest) error
	wg       sync.WaitGroup
}

// NewRefreshQueue creates a new refresh queue with the specified buffer size
func NewRefreshQueue(bufferSize int, logger *logrus.Logger) *RefreshQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &RefreshQueue{
		items:    make(chan RefreshRequest, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		pending:  make(map[uint]uuid.UUID),
		logger:   logger,
		handlers: make([]func(RefreshRequest) error, 0),
	}
}

// Push enqueues a refresh for the tenant. If one is already waiting the
// waiting request is returned and nothing new is queued.
func (q *RefreshQueue) Push(tenantID uint) (RefreshRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return RefreshRequest{}, ErrQueueClosed
	}

	if id, ok := q.pending[tenantID]; ok {
		q.logger.WithField("tenant_id", tenantID).Debug("Refresh already queued")
		return RefreshRequest{ID: id, TenantID: tenantID}, nil
	}

	req := RefreshRequest{ID: uuid.New(), TenantID: tenantID, EnqueuedAt: time.Now()}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- req:
		q.pending[tenantID] = req.ID
		q.logger.WithFields(logrus.Fields{
			"tenant_id":  tenantID,
			"request_id": req.ID,
		}).Debug("Pushed refresh request to queue")
		return req, nil
	default:
		return RefreshRequest{}, ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each request
func (q *RefreshQueue) Subscribe(handler func(RefreshRequest) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing requests with the given number of workers
func (q *RefreshQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

// process handles the queue processing loop
func (q *RefreshQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case req := <-q.items:
			q.processRequest(req)
		}
	}
}

// processRequest releases the tenant's pending slot and runs every handler.
// The slot is released first so writes landing during the rebuild queue a
// follow-up refresh instead of being folded into one that already started.
func (q *RefreshQueue) processRequest(req RefreshRequest) {
	q.mu.Lock()
	if q.pending[req.TenantID] == req.ID {
		delete(q.pending, req.TenantID)
	}
	handlers := q.handlers
	q.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(req); err != nil {
			q.logger.WithError(err).WithField("tenant_id", req.TenantID).Error("Handler failed to process refresh request")
		}
	}
}

// Close stops the queue and waits for running handlers to return
func (q *RefreshQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of requests in the queue
func (q *RefreshQueue) Len() int {
	return len(q.items)
}

// Pending reports whether a refresh for the tenant is waiting to start.
func (q *RefreshQueue) Pending(tenantID uint) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.pending[tenantID]
	return ok
}

// IsClosed returns whether the queue has been closed
func (q *RefreshQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
