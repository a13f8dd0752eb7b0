package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/shared"
)

// idempotencyTTL keeps the per-day run marker long enough to cover
// retries and late manual triggers for the same calendar day
const idempotencyTTL = 48 * time.Hour

// JobReport summarizes a single daily job run. The cron HTTP endpoints
// return it as JSON, so the field names are part of the API surface.
type JobReport struct {
	Job        JobType       `json:"job"`
	RunDate    string        `json:"run_date"`
	AlreadyRan bool          `json:"already_ran"`
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// NewJobReport creates an empty report for the given job and run date
func NewJobReport(jobType JobType, runDate time.Time) *JobReport {
	return &JobReport{
		Job:     jobType,
		RunDate: runDate.Format("2006-01-02"),
	}
}

// AddError records one failed item on the report
func (r *JobReport) AddError(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err.Error())
}

// JobRunner holds the business logic behind each daily job.
// The billing lifecycle service implements it; the scheduler and the
// cron HTTP endpoints both drive jobs through this interface.
type JobRunner interface {
	// ProcessRecurringPayments charges saved cards for subscriptions
	// due inside the renewal lookahead window
	ProcessRecurringPayments(ctx context.Context, now time.Time) (*JobReport, error)

	// CheckSubscriptionStatus sends expiry reminders and suspends
	// subscriptions past the grace window
	CheckSubscriptionStatus(ctx context.Context, now time.Time) (*JobReport, error)

	// ProcessTrialExpirations suspends tenants whose trial has ended
	ProcessTrialExpirations(ctx context.Context, now time.Time) (*JobReport, error)

	// CleanupExpiredRegistrations deletes stale unprocessed registrations
	CleanupExpiredRegistrations(ctx context.Context, now time.Time) (*JobReport, error)

	// PruneUsageLogs removes usage rows past the retention window
	PruneUsageLogs(ctx context.Context, now time.Time) (*JobReport, error)
}

// BillingJobExecutor dispatches scheduler jobs to the JobRunner with a
// once-per-day guard backed by the idempotency store. The same guard
// covers manual runs triggered over HTTP, so a serverless cron hitting
// the endpoint after the in-process trigger fired is a no-op.
type BillingJobExecutor struct {
	runner      JobRunner
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
}

// NewBillingJobExecutor creates a new billing job executor
func NewBillingJobExecutor(
	runner JobRunner,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *BillingJobExecutor {
	return &BillingJobExecutor{
		runner:      runner,
		idempotency: idempotency,
		logger:      logger,
	}
}

// runKey builds the per-day idempotency key for a job type
func runKey(jobType JobType, runDate time.Time) string {
	return fmt.Sprintf("cron:%s:%s", jobType, runDate.Format("2006-01-02"))
}

// Run executes one job type for the given date, guarded so each job
// runs at most once per calendar day across all trigger paths.
// The run marker is written only after a successful run, so a failed
// job stays eligible for the worker pool's retry.
func (e *BillingJobExecutor) Run(ctx context.Context, jobType JobType, runDate time.Time) (*JobReport, error) {
	key := runKey(jobType, runDate)
	done, err := e.idempotency.IsProcessed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if done {
		e.logger.Info("Daily job already ran, skipping",
			zap.String("job_type", string(jobType)),
			zap.String("run_date", runDate.Format("2006-01-02")),
		)
		report := NewJobReport(jobType, runDate)
		report.AlreadyRan = true
		return report, nil
	}

	started := time.Now()
	report, err := e.dispatch(ctx, jobType, runDate)
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(started)

	if _, err := e.idempotency.MarkProcessed(ctx, key, idempotencyTTL); err != nil {
		e.logger.Warn("Failed to record daily job run marker",
			zap.String("job_type", string(jobType)),
			zap.Error(err),
		)
	}

	e.logger.Info("Daily job completed",
		zap.String("job_type", string(jobType)),
		zap.String("run_date", report.RunDate),
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// dispatch routes the job type to the matching runner method
func (e *BillingJobExecutor) dispatch(ctx context.Context, jobType JobType, runDate time.Time) (*JobReport, error) {
	switch jobType {
	case JobTypeRecurringPayments:
		return e.runner.ProcessRecurringPayments(ctx, runDate)
	case JobTypeSubscriptionCheck:
		return e.runner.CheckSubscriptionStatus(ctx, runDate)
	case JobTypeTrialExpirations:
		return e.runner.ProcessTrialExpirations(ctx, runDate)
	case JobTypeRegistrationCleanup:
		return e.runner.CleanupExpiredRegistrations(ctx, runDate)
	case JobTypeUsageRetention:
		return e.runner.PruneUsageLogs(ctx, runDate)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
}

// Execute implements JobExecutor for the worker pool
func (e *BillingJobExecutor) Execute(ctx context.Context, job *Job) error {
	_, err := e.Run(ctx, job.Type, job.RunDate)
	return err
}

// Ensure BillingJobExecutor implements JobExecutor
var _ JobExecutor = (*BillingJobExecutor)(nil)
