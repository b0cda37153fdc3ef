package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the size of the scheduler's worker pool.
const DefaultWorkers = 2

// Scheduler runs recurring jobs on a fixed-size worker pool. A job that is
// still running when it comes due again is skipped for that tick. Job errors
// are logged and never stop the pool; the worker group only reports workers
// that exited on cancellation.
type Scheduler struct {
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*scheduledJob
	order   []string
	queue   chan *scheduledJob
	stopCh  chan struct{}
	started bool
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	tickers sync.WaitGroup
}

type scheduledJob struct {
	id       string
	interval time.Duration
	job      func(ctx context.Context) error
	running  atomic.Bool
	runs     atomic.Int64
}

// NewScheduler returns a scheduler with the given pool size (DefaultWorkers when <= 0).
func NewScheduler(workers int, logger *slog.Logger) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		workers: workers,
		logger:  logger,
		entries: make(map[string]*scheduledJob),
		stopCh:  make(chan struct{}),
	}
}

// Every registers job to run each interval once the scheduler is started.
func (s *Scheduler) Every(id string, interval time.Duration, job func(ctx context.Context) error) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if interval <= 0 {
		return fmt.Errorf("schedule %q: interval must be positive", id)
	}
	if job == nil {
		return fmt.Errorf("schedule %q: job is required", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("schedule %q: scheduler already started", id)
	}
	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("schedule %q already exists", id)
	}
	s.entries[id] = &scheduledJob{id: id, interval: interval, job: job}
	s.order = append(s.order, id)
	return nil
}

// Start launches the workers and one ticker per registered job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	s.queue = make(chan *scheduledJob, len(s.entries)+s.workers)

	for i := 0; i < s.workers; i++ {
		s.group.Go(func() error {
			return s.work(ctx)
		})
	}
	for _, id := range s.order {
		e := s.entries[id]
		s.tickers.Add(1)
		go s.tick(ctx, e)
	}
	s.logger.Debug("scheduler started", "workers", s.workers, "jobs", len(s.entries))
}

// RunNow queues the job for immediate execution.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("schedule %q not found", id)
	}
	if !s.started || s.stopped {
		return fmt.Errorf("scheduler is not running")
	}
	select {
	case s.queue <- e:
		return nil
	default:
		return fmt.Errorf("schedule %q: queue is full", id)
	}
}

// Runs returns how many times the job has completed.
func (s *Scheduler) Runs(id string) int64 {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return e.runs.Load()
}

// Stop stops the tickers and lets the workers finish queued jobs. If ctx ends
// first, running jobs are cancelled and Stop returns ctx.Err() once they return.
// If the context given to Start was cancelled, Stop returns that error.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.tickers.Wait()
	s.mu.Lock()
	close(s.queue)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.group.Wait()
	}()

	select {
	case err := <-done:
		s.cancel()
		if err != nil {
			s.logger.Warn("scheduler workers cancelled", "error", err)
			return err
		}
		s.logger.Debug("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		s.logger.Warn("scheduler stop timed out, running jobs were cancelled")
		return ctx.Err()
	}
}

func (s *Scheduler) tick(ctx context.Context, e *scheduledJob) {
	defer s.tickers.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			select {
			case s.queue <- e:
			default:
				s.logger.Warn("scheduler queue full, skipping run", "schedule_id", e.id)
			}
		}
	}
}

// work runs queued jobs until the queue is closed or ctx ends. It returns
// ctx.Err(), so a cancelled run is reported either way.
func (s *Scheduler) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-s.queue:
			if !ok {
				return ctx.Err()
			}
			s.run(ctx, e)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, e *scheduledJob) {
	if !e.running.CompareAndSwap(false, true) {
		s.logger.Debug("job still running, skipping", "schedule_id", e.id)
		return
	}
	start := time.Now()
	err := e.job(ctx)
	e.running.Store(false)
	e.runs.Add(1)
	if err != nil {
		s.logger.Warn("scheduled job failed", "schedule_id", e.id, "error", err)
		return
	}
	s.logger.Debug("scheduled job done", "schedule_id", e.id, "duration_ms", time.Since(start).Milliseconds())
}
