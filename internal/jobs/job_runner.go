package jobs

import (
	"fmt"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/service"
)

// Job names accepted by RunJob.
const (
	JobExpirePayments = "expire-payments"
	JobOverdueRentals = "overdue-rentals"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Payment  service.PaymentService
	Rental   service.RentalService
	Notifier service.Notifier
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config exposes the configuration the scheduler reads its specs from.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// RunJob runs one job by name, for manual execution.
func (jr *JobRunner) RunJob(name string) error {
	switch name {
	case JobExpirePayments:
		jr.ExpirePendingPayments()
	case JobOverdueRentals:
		jr.DetectOverdueRentals()
	default:
		return fmt.Errorf("unknown job %q (want %s or %s)", name, JobExpirePayments, JobOverdueRentals)
	}
	return nil
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	start := jr.now()
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration", jr.now().Sub(start))
}
