package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plantdoctor/internal/logging"
)

const hitWriteTimeout = 5 * time.Second

// HitCounter increments the hit counter of a cache entry
type HitCounter interface {
	IncrementHit(ctx context.Context, id uuid.UUID) error
}

// HitRecorder applies cache hit increments in the background.
// Record never blocks the caller; increments are dropped when the queue is full.
type HitRecorder struct {
	store  HitCounter
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	hits   chan uuid.UUID
	done   chan struct{}
}

// NewHitRecorder starts the background writer
func NewHitRecorder(store HitCounter, queueSize int, logger *zap.Logger) *HitRecorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	r := &HitRecorder{
		store:  store,
		logger: logger.Named("hits"),
		hits:   make(chan uuid.UUID, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues a hit increment. It reports false if the hit was dropped.
func (r *HitRecorder) Record(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.hits <- id:
		return true
	default:
		r.logger.Warn("Hit queue full, dropping increment", zap.String("id", id.String()))
		return false
	}
}

// Close stops accepting hits and waits for queued ones to be written
func (r *HitRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.hits)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *HitRecorder) run() {
	defer close(r.done)
	for id := range r.hits {
		ctx, cancel := context.WithTimeout(context.Background(), hitWriteTimeout)
		if err := r.store.IncrementHit(ctx, id); err != nil {
			r.logger.Warn("Failed to increment cache hit",
				zap.String("id", id.String()),
				zap.String("error", logging.SanitizeError(err)))
		}
		cancel()
	}
}
