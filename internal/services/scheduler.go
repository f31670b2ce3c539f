package services

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "finboard/internal/log"
)

// Job is one unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// SchedulerConfig holds configuration for the scheduler
type SchedulerConfig struct {
	// Interval between runs (default: 1h)
	Interval time.Duration
	// RunOnStart runs every job once before the first tick.
	RunOnStart bool
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}
}

// Scheduler runs jobs on a fixed interval. Jobs run sequentially; a failing
// job is logged and does not stop the others.
type Scheduler struct {
	jobs   []Job
	config SchedulerConfig
	logger *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(config SchedulerConfig, logger *applog.Logger, jobs ...Job) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Scheduler{
		jobs:   jobs,
		config: config,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Start begins the loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler started",
		"interval", s.config.Interval.String(),
		"jobs", len(s.jobs))
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce executes every job once.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed",
				"job", job.Name, applog.FieldError, err)
			continue
		}
		s.logger.DebugContext(ctx, "Scheduled job finished",
			"job", job.Name, applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
