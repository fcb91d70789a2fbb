package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxWorkers bounds concurrent node executions within one
// ready-set.
const DefaultMaxWorkers = 10

// WorkerPool gates concurrent node executions with a semaphore so a
// wide ready-set cannot exhaust connections or file handles.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	log        *slog.Logger

	mu     sync.Mutex
	active int
}

// NewWorkerPool creates a pool with the given concurrency limit
// (0 or negative selects DefaultMaxWorkers).
func NewWorkerPool(maxWorkers int, log *slog.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		log:        log,
	}
}

// ExecuteSync runs fn once a slot is available, blocking the caller
// until fn returns. Acquisition is cancellable.
func (wp *WorkerPool) ExecuteSync(ctx context.Context, fn func() error) error {
	select {
	case wp.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-wp.semaphore }()

	wp.mu.Lock()
	wp.active++
	wp.mu.Unlock()

	defer func() {
		wp.mu.Lock()
		wp.active--
		wp.mu.Unlock()
	}()

	return fn()
}

// ActiveCount returns the number of currently running workers.
func (wp *WorkerPool) ActiveCount() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.active
}

// Capacity returns the concurrency limit.
func (wp *WorkerPool) Capacity() int {
	return wp.maxWorkers
}

// Stats returns a snapshot of pool utilization.
func (wp *WorkerPool) Stats() WorkerPoolStats {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return WorkerPoolStats{
		MaxWorkers: wp.maxWorkers,
		Active:     wp.active,
		Available:  wp.maxWorkers - wp.active,
	}
}

// WorkerPoolStats is a point-in-time view of the pool.
type WorkerPoolStats struct {
	MaxWorkers int `json:"max_workers"`
	Active     int `json:"active"`
	Available  int `json:"available"`
}

func (s WorkerPoolStats) String() string {
	return fmt.Sprintf("WorkerPool[%d/%d active, %d available]", s.Active, s.MaxWorkers, s.Available)
}
