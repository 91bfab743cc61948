package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

const shutdownTimeout = 2 * time.Minute

// Scheduler runs registered workers on their cron schedules
type Scheduler struct {
	cron    *cron.Cron
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		// a pass still running when the next tick fires is not doubled up
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		workers: make([]Worker, 0),
		log:     log.With("component", "scheduler"),
	}
}

// RegisterWorker adds a worker. Disabled workers are kept but never scheduled.
func (s *Scheduler) RegisterWorker(w Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(errors.ErrInternal, "cannot register worker %s after start", w.Name())
	}
	for _, existing := range s.workers {
		if existing.Name() == w.Name() {
			return errors.Wrapf(errors.ErrAlreadyExists, "worker %s already registered", w.Name())
		}
	}

	if w.Enabled() {
		if _, err := s.cron.AddFunc(w.Schedule(), func() { s.executeWorker(w) }); err != nil {
			return errors.Wrapf(errors.ErrInvalidInput, "worker %s: bad schedule %q: %v", w.Name(), w.Schedule(), err)
		}
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "schedule", w.Schedule(), "enabled", w.Enabled())
	return nil
}

// Start begins running all registered workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.log.Infow("Worker scheduler started", "workers", len(s.workers))
	return nil
}

// Stop cancels running passes and waits for them to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Infow("Stopping worker scheduler...")

	var shutdownErr error
	select {
	case <-s.cron.Stop().Done():
		s.log.Infow("All workers stopped gracefully")
	case <-time.After(shutdownTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", shutdownTimeout)
		shutdownErr = errors.Wrapf(errors.ErrTimeout, "shutdown timeout after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

// RunNow executes a registered worker once, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, w := range s.GetWorkers() {
		if w.Name() == name {
			return s.run(ctx, w)
		}
	}
	return errors.Wrapf(errors.ErrNotFound, "worker %s not found", name)
}

// executeWorker is the cron callback
func (s *Scheduler) executeWorker(w Worker) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	// SetEnabled(false) after registration pauses the worker
	if !w.Enabled() {
		return
	}

	_ = s.run(ctx, w)
}

// run executes a single pass with panic recovery, health and metrics
func (s *Scheduler) run(ctx context.Context, w Worker) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "worker %s panicked: %s", w.Name(), fmt.Sprint(r))
			s.log.Errorw("Worker panicked", "worker", w.Name(), "panic", r)
		}

		duration := time.Since(start)
		if h, ok := w.(healthRecorder); ok {
			if err != nil {
				h.RecordError(err, duration)
			} else {
				h.RecordRun(duration)
			}
		}
		metrics.RecordWorkerExecution(w.Name(), duration, err)
	}()

	if err = w.Run(ctx); err != nil {
		s.log.Errorw("Worker execution failed",
			"worker", w.Name(),
			"error", err,
			"duration", time.Since(start),
		)
		return err
	}

	s.log.Debugw("Worker execution completed",
		"worker", w.Name(),
		"duration", time.Since(start),
	)
	return nil
}

// GetWorkers returns a list of all registered workers
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
