package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// BillingCronSchedulerConfig holds configuration for the cron-based billing scheduler
type BillingCronSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the daily jobs
	CronHour int
	// CronMinute is the minute (0-59) to run the daily jobs
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a single job can run
	JobTimeout time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent jobs
	MaxConcurrentJobs int
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultBillingCronSchedulerConfig returns default cron scheduler configuration
// Defaults to running at 2:00 AM daily
func DefaultBillingCronSchedulerConfig() BillingCronSchedulerConfig {
	return BillingCronSchedulerConfig{
		Enabled:           true,
		CronHour:          2, // 2 AM
		CronMinute:        0, // 0 minutes
		DailyCronSchedule: "0 2 * * *",
		JobTimeout:        30 * time.Minute,
		MaxConcurrentJobs: 3,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute
// Returns defaults (2:00) if parsing fails or expression is empty
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	// Default values
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	// Use strings.Fields for simple whitespace splitting
	parts := strings.Fields(cronExpr)

	if len(parts) < 2 {
		return hour, minute, nil
	}

	// Parse minute
	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}

	// Parse hour
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	// Validate ranges
	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// SchedulerJobRecord represents a record of a scheduled job execution
type SchedulerJobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	JobType     string     `gorm:"column:job_type;size:50;not null"`
	RunDate     string     `gorm:"column:run_date;size:10;not null"`
	Status      string     `gorm:"column:last_run_status;size:20"`
	Error       string     `gorm:"column:last_error;type:text"`
	StartedAt   *time.Time `gorm:"column:last_run_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	NextRunAt   *time.Time `gorm:"column:next_run_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (SchedulerJobRecord) TableName() string {
	return "billing_scheduler_jobs"
}

// SchedulerJobRepository handles persistence of scheduler job records
type SchedulerJobRepository struct {
	db *gorm.DB
}

// NewSchedulerJobRepository creates a new SchedulerJobRepository
func NewSchedulerJobRepository(db *gorm.DB) *SchedulerJobRepository {
	return &SchedulerJobRepository{db: db}
}

// RecordJobStart records the start of a job execution
func (r *SchedulerJobRepository) RecordJobStart(ctx context.Context, jobType JobType, runDate time.Time) (uuid.UUID, error) {
	now := time.Now()
	record := &SchedulerJobRecord{
		ID:        uuid.New(),
		JobType:   string(jobType),
		RunDate:   runDate.Format("2006-01-02"),
		Status:    string(JobStatusRunning),
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordJobComplete records the completion of a job
func (r *SchedulerJobRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	now := time.Now()
	status := string(JobStatusSuccess)
	if !success {
		status = string(JobStatusFailed)
	}
	return r.db.WithContext(ctx).
		Model(&SchedulerJobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"last_run_status": status,
			"last_error":      errMsg,
			"completed_at":    now,
			"updated_at":      now,
		}).Error
}

// GetLastJobStatus gets the last recorded run for a job type
func (r *SchedulerJobRepository) GetLastJobStatus(ctx context.Context, jobType JobType) (*SchedulerJobRecord, error) {
	var record SchedulerJobRecord
	if err := r.db.WithContext(ctx).
		Where("job_type = ?", string(jobType)).
		Order("last_run_at DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// BillingCronScheduler implements cron-based scheduling for the daily billing jobs
type BillingCronScheduler struct {
	config    BillingCronSchedulerConfig
	executor  JobExecutor
	jobRepo   *SchedulerJobRepository
	logger    *zap.Logger
	scheduler *Scheduler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewBillingCronScheduler creates a new cron-based billing scheduler
func NewBillingCronScheduler(
	config BillingCronSchedulerConfig,
	executor JobExecutor,
	jobRepo *SchedulerJobRepository,
	logger *zap.Logger,
) *BillingCronScheduler {
	schedulerConfig := SchedulerConfig{
		Enabled:           config.Enabled,
		MaxConcurrentJobs: config.MaxConcurrentJobs,
		JobTimeout:        config.JobTimeout,
		RetryAttempts:     config.RetryAttempts,
		RetryDelay:        config.RetryDelay,
	}
	scheduler := NewScheduler(schedulerConfig, executor, logger)

	return &BillingCronScheduler{
		config:    config,
		executor:  executor,
		jobRepo:   jobRepo,
		logger:    logger,
		scheduler: scheduler,
	}
}

// Start starts the cron scheduler
func (s *BillingCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	// Start the underlying job scheduler
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Calculate next run time
	s.calculateNextRunTime()

	// Start the cron ticker
	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Billing cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *BillingCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	// Cancel the cron loop
	if s.cancel != nil {
		s.cancel()
	}

	// Wait for cron loop to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Now stop the underlying scheduler
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Billing cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing cron scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *BillingCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	// Use a ticker that checks every minute for cron execution
	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runDailyJobs(ctx, now)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *BillingCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *BillingCronScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())

	// If we've already passed today's run time, schedule for tomorrow
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runDailyJobs submits every daily billing job for the given run date.
// Duplicate submissions for the same day land on the executor's
// idempotency guard, so a restart mid-day does not double-charge.
func (s *BillingCronScheduler) runDailyJobs(ctx context.Context, runDate time.Time) {
	s.logger.Info("Starting daily billing jobs", zap.String("run_date", runDate.Format("2006-01-02")))

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	for _, jobType := range AllDailyJobTypes() {
		// Record job start
		var jobID uuid.UUID
		if s.jobRepo != nil {
			var recordErr error
			jobID, recordErr = s.jobRepo.RecordJobStart(ctx, jobType, runDate)
			if recordErr != nil {
				s.logger.Warn("Failed to record job start",
					zap.String("job_type", string(jobType)),
					zap.Error(recordErr),
				)
			}
		}

		// Create and submit job
		job := NewJob(jobType, runDate, s.config.RetryAttempts)
		if err := s.scheduler.SubmitJob(job); err != nil {
			s.logger.Error("Failed to submit billing job",
				zap.String("job_type", string(jobType)),
				zap.Error(err),
			)
			// Record failure
			if s.jobRepo != nil && jobID != uuid.Nil {
				_ = s.jobRepo.RecordJobComplete(ctx, jobID, false, err.Error())
			}
			continue
		}

		s.logger.Debug("Scheduled billing job", zap.String("job_type", string(jobType)))
	}

	s.logger.Info("Daily billing jobs scheduled", zap.Int("job_count", len(AllDailyJobTypes())))
}

// TriggerManualRun triggers a manual run of all daily jobs
// Note: Uses background context to avoid premature cancellation when HTTP request completes
func (s *BillingCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	// Use background context to prevent premature cancellation when HTTP request completes
	go s.runDailyJobs(context.Background(), time.Now())
	return nil
}

// TriggerJob submits a single job type for immediate execution
func (s *BillingCronScheduler) TriggerJob(ctx context.Context, jobType JobType) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	return s.scheduler.ScheduleJob(jobType, time.Now())
}

// GetStatus returns the current status of the cron scheduler
func (s *BillingCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"cron_schedule": "Daily",
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
		"job_types":     AllDailyJobTypes(),
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *BillingCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *BillingCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
