package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"carrental-backend/internal/jobs"
	"carrental-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. A run
// that is still in progress when its next tick arrives makes that tick a
// no-op, so each sweep behaves like a fixed-delay timer.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Session expiry sweep
	expirySpec := fmt.Sprintf("@every %s", cfg.ExpirySweepInterval)
	if _, err := s.cron.AddFunc(expirySpec, s.jobs.ExpirePendingPayments); err != nil {
		logger.Error("Failed to register ExpirePendingPayments job", "spec", expirySpec, "error", err)
		return fmt.Errorf("register ExpirePendingPayments: %w", err)
	}

	// Overdue rental detection
	if _, err := s.cron.AddFunc(cfg.OverdueRentals, s.jobs.DetectOverdueRentals); err != nil {
		logger.Error("Failed to register DetectOverdueRentals job", "spec", cfg.OverdueRentals, "error", err)
		return fmt.Errorf("register DetectOverdueRentals: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "expiry_sweep", expirySpec, "overdue_rentals", cfg.OverdueRentals)
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Get().Debug(msg, append([]any{"component", "cron"}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Get().Error(msg, append([]any{"component", "cron", "error", err}, keysAndValues...)...)
}
