package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRunTimeout bounds one scheduled workflow invocation.
const DefaultRunTimeout = 5 * time.Minute

// Scheduler fires workflow runs on cron schedules. Runs are gated
// through the worker pool so overlapping schedules cannot pile up
// unbounded.
type Scheduler struct {
	cron *cron.Cron
	pool *WorkerPool
	log  *slog.Logger
}

// NewScheduler creates a stopped scheduler; call Start after adding
// schedules.
func NewScheduler(pool *WorkerPool, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		pool: pool,
		log:  log,
	}
}

// Schedule registers run under a cron spec. Each firing gets its own
// timeout-bounded context.
func (s *Scheduler) Schedule(spec, name string, run func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Info("schedule fired", "name", name, "spec", spec)

		ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
		defer cancel()

		err := s.pool.ExecuteSync(ctx, func() error {
			return run(ctx)
		})
		if err != nil {
			s.log.Error("scheduled run failed", "name", name, "err", err)
			return
		}
		s.log.Info("scheduled run completed", "name", name)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
