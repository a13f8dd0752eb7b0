package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobType identifies one of the daily billing maintenance jobs
type JobType string

const (
	// JobTypeRecurringPayments charges saved cards for subscriptions
	// whose next billing date falls inside the renewal lookahead window
	JobTypeRecurringPayments JobType = "RECURRING_PAYMENTS"

	// JobTypeSubscriptionCheck sends expiry reminders and suspends
	// tenants whose subscription grace period has run out
	JobTypeSubscriptionCheck JobType = "SUBSCRIPTION_CHECK"

	// JobTypeTrialExpirations suspends tenants whose trial has ended
	JobTypeTrialExpirations JobType = "TRIAL_EXPIRATIONS"

	// JobTypeRegistrationCleanup deletes expired unprocessed registrations
	JobTypeRegistrationCleanup JobType = "REGISTRATION_CLEANUP"

	// JobTypeUsageRetention prunes usage log rows past the retention window
	JobTypeUsageRetention JobType = "USAGE_RETENTION"
)

// AllDailyJobTypes returns every job type the daily cron run submits
func AllDailyJobTypes() []JobType {
	return []JobType{
		JobTypeRecurringPayments,
		JobTypeSubscriptionCheck,
		JobTypeTrialExpirations,
		JobTypeRegistrationCleanup,
		JobTypeUsageRetention,
	}
}

// Job represents a scheduled billing job
type Job struct {
	ID          uuid.UUID
	Type        JobType
	RunDate     time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a new job instance
func NewJob(jobType JobType, runDate time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		RunDate:    runDate,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor is the interface for executing billing jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// Scheduler manages scheduled billing jobs
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, 100),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Start worker pool
	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Billing job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Close job channel
	close(s.jobs)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Billing job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing job scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue until the context is cancelled
// or the queue is closed.
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// requeue puts a job back on the queue without blocking the worker.
func (s *Scheduler) requeue(job *Job) {
	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("Failed to re-queue job for retry",
			zap.String("job_id", job.ID.String()),
		)
	}
}

// processJob runs one job under the configured timeout, retrying failed
// jobs until their retry budget runs out.
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	// A retried job waits on the queue until its backoff elapses.
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		s.requeue(job)
		return
	}

	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
	}

	job.Start()
	s.logger.Info("Processing job", fields...)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Job failed", append(fields, zap.Error(err))...)

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			s.requeue(job)
		}
		return
	}

	job.Complete()
	s.logger.Info("Job completed successfully", fields...)
}

// ScheduleDailyJobs submits every daily job type for the given run date
func (s *Scheduler) ScheduleDailyJobs(runDate time.Time) error {
	for _, jobType := range AllDailyJobTypes() {
		job := NewJob(jobType, runDate, s.config.RetryAttempts)
		if err := s.SubmitJob(job); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleJob submits a single job of the given type
func (s *Scheduler) ScheduleJob(jobType JobType, runDate time.Time) error {
	job := NewJob(jobType, runDate, s.config.RetryAttempts)
	return s.SubmitJob(job)
}
