package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the automatic backup check on a cron schedule.
type Scheduler struct {
	runner          *Runner
	schedule        string
	backupOnStartup bool
	logger          *slog.Logger

	mu        sync.Mutex
	running   bool
	cron      *cron.Cron
	entry     cron.EntryID
	runCtx    context.Context
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedule sets the cron schedule, e.g. "@every 1h" or "0 * * * *".
func WithSchedule(expr string) SchedulerOption {
	return func(s *Scheduler) {
		s.schedule = expr
	}
}

// WithBackupOnStartup sets whether to run a check immediately on start.
func WithBackupOnStartup(b bool) SchedulerOption {
	return func(s *Scheduler) {
		s.backupOnStartup = b
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(runner *Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:          runner,
		schedule:        "@every 1h",
		backupOnStartup: true,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the scheduler until Stop is called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	schedule, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.runCtx = ctx
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.entry = s.cron.Schedule(schedule, s.job(ctx, "scheduled"))
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.stoppedCh)
		s.mu.Unlock()
	}()

	s.logger.Info("scheduler started",
		"schedule", s.schedule,
		"backup_on_startup", s.backupOnStartup,
	)

	if s.backupOnStartup {
		s.logger.Debug("running backup check on startup")
		s.run(ctx, "startup")
	}

	s.cron.Start()

	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopping due to context cancellation")
	case <-stopCh:
		s.logger.Info("scheduler stopping due to stop signal")
	}

	<-s.cron.Stop().Done()
	s.pushFinalMetrics()

	return ctx.Err()
}

// Reschedule replaces the schedule of a running scheduler.
func (s *Scheduler) Reschedule(expr string) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedule = expr
	if !s.running {
		return nil
	}

	s.cron.Remove(s.entry)
	s.entry = s.cron.Schedule(schedule, s.job(s.runCtx, "scheduled"))
	s.logger.Info("schedule updated", "schedule", expr)
	return nil
}

// Stop signals the scheduler to stop and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	stoppedCh := s.stoppedCh
	s.mu.Unlock()

	<-stoppedCh
}

// IsRunning returns true if the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns when the next scheduled check fires, or the zero time
// when the scheduler is not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) job(ctx context.Context, trigger string) cron.Job {
	return cron.FuncJob(func() {
		s.run(ctx, trigger)
	})
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("backup check failed", "trigger", trigger, "error", err)
	}
}

// pushFinalMetrics reports the service as down before stopping.
func (s *Scheduler) pushFinalMetrics() {
	s.logger.Debug("pushing final metrics before shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.runner.pushServiceDown(ctx); err != nil {
		s.logger.Warn("failed to push final metrics", "error", err)
	}
}
