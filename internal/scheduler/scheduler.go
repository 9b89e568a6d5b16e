package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mail-expense-intake/internal/config"
	"mail-expense-intake/internal/pipeline"
)

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = errors.New("an intake run is already in progress")

// ErrShutdown is returned for runs requested after Shutdown
var ErrShutdown = errors.New("scheduler is shut down")

// Runner performs one intake pass
type Runner interface {
	Run(ctx context.Context) (pipeline.RunStats, error)
}

// Status is a snapshot of the scheduler
type Status struct {
	Running       bool              `json:"running"`
	RunInProgress bool              `json:"run_in_progress"`
	NextRun       time.Time         `json:"next_run"`
	LastRun       time.Time         `json:"last_run"`
	LastStats     pipeline.RunStats `json:"last_stats"`
	LastError     string            `json:"last_error,omitempty"`
}

// Scheduler manages the periodic intake runs
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	runner    Runner
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex

	// life bounds every run, scheduled or manual; Shutdown cancels it
	life       context.Context
	lifeCancel context.CancelFunc
	closeMu    sync.Mutex
	closed     bool

	inProgress atomic.Bool
	lastMu     sync.RWMutex
	lastRun    time.Time
	lastStats  pipeline.RunStats
	lastErr    error
}

// New creates a new scheduler
func New(cfg *config.SchedulerConfig, runner Runner) *Scheduler {
	life, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:     cfg,
		runner:     runner,
		life:       life,
		lifeCancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}

	s.cron = cron.New(cron.WithSeconds())
	s.ctx, s.cancel = context.WithCancel(context.Background())

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)
	entryID, err := s.cron.AddFunc(schedule, s.runScheduled)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler and cancels any scheduled run in progress
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) runScheduled() {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping intake run")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			logrus.Info("Previous intake run still active, skipping")
			return
		}
		logrus.WithError(err).Error("Scheduled intake run failed")
	}
}

// RunOnce runs the intake once. Only one run may be active at a time. The
// run ends early when ctx is done or the scheduler shuts down.
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.RunStats, error) {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return pipeline.RunStats{}, ErrShutdown
	}
	s.wg.Add(1)
	s.closeMu.Unlock()
	defer s.wg.Done()

	if !s.inProgress.CompareAndSwap(false, true) {
		return pipeline.RunStats{}, ErrRunInProgress
	}
	defer s.inProgress.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.life, cancel)
	defer stop()

	logrus.Info("Starting intake run")
	stats, err := s.runner.Run(runCtx)

	s.lastMu.Lock()
	s.lastRun = time.Now()
	s.lastStats = stats
	s.lastErr = err
	s.lastMu.Unlock()

	return stats, err
}

// Status returns a snapshot of the scheduler state
func (s *Scheduler) Status() Status {
	st := Status{
		Running:       s.IsRunning(),
		RunInProgress: s.inProgress.Load(),
	}

	s.mu.RLock()
	if s.isRunning {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	s.mu.RUnlock()

	s.lastMu.RLock()
	st.LastRun = s.lastRun
	st.LastStats = s.lastStats
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.lastMu.RUnlock()
	return st
}

// Shutdown stops the cron trigger, cancels any active run and waits for it
// until ctx is done. Later RunOnce calls fail with ErrShutdown.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()
	s.lifeCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for intake run: %w", ctx.Err())
	}
}

// Wait waits for any active run to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
