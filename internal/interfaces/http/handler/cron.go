package handler

import (
	"time"

	"github.com/echodesk/backend/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// CronHandler exposes the daily billing jobs over HTTP so an external
// scheduler can drive them. Each job is idempotent per calendar day:
// re-firing a route reports already_ran instead of double charging.
type CronHandler struct {
	BaseHandler
	executor *scheduler.BillingJobExecutor
}

// NewCronHandler creates a new cron handler
func NewCronHandler(executor *scheduler.BillingJobExecutor) *CronHandler {
	return &CronHandler{
		executor: executor,
	}
}

// CronHealthResponse reports the cron surface is reachable.
type CronHealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Health godoc
//
//	@ID				cronHealth
//	@Summary		Cron surface health check
//	@Tags			cron
//	@Produce		json
//	@Success		200	{object}	APIResponse[CronHealthResponse]
//	@Router			/cron/health [get]
func (h *CronHandler) Health(c *gin.Context) {
	h.Success(c, CronHealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// RecurringPayments godoc
//
//	@ID				cronRecurringPayments
//	@Summary		Charge saved cards for due subscriptions
//	@Tags			cron
//	@Produce		json
//	@Param			date	query		string	false	"Run date override (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[scheduler.JobReport]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/cron/recurring-payments [post]
func (h *CronHandler) RecurringPayments(c *gin.Context) {
	h.run(c, scheduler.JobTypeRecurringPayments)
}

// SubscriptionCheck godoc
//
//	@ID				cronSubscriptionCheck
//	@Summary		Expire overdue subscriptions past their grace period
//	@Tags			cron
//	@Produce		json
//	@Param			date	query		string	false	"Run date override (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[scheduler.JobReport]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/cron/subscription-check [post]
func (h *CronHandler) SubscriptionCheck(c *gin.Context) {
	h.run(c, scheduler.JobTypeSubscriptionCheck)
}

// TrialExpirations godoc
//
//	@ID				cronTrialExpirations
//	@Summary		Suspend tenants whose trial ran out
//	@Tags			cron
//	@Produce		json
//	@Param			date	query		string	false	"Run date override (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[scheduler.JobReport]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/cron/trial-expirations [post]
func (h *CronHandler) TrialExpirations(c *gin.Context) {
	h.run(c, scheduler.JobTypeTrialExpirations)
}

// RegistrationCleanup godoc
//
//	@ID				cronRegistrationCleanup
//	@Summary		Drop stale unpaid registrations
//	@Tags			cron
//	@Produce		json
//	@Param			date	query		string	false	"Run date override (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[scheduler.JobReport]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/cron/registration-cleanup [post]
func (h *CronHandler) RegistrationCleanup(c *gin.Context) {
	h.run(c, scheduler.JobTypeRegistrationCleanup)
}

// UsageRetention godoc
//
//	@ID				cronUsageRetention
//	@Summary		Prune old usage log rows
//	@Tags			cron
//	@Produce		json
//	@Param			date	query		string	false	"Run date override (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[scheduler.JobReport]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/cron/usage-retention [post]
func (h *CronHandler) UsageRetention(c *gin.Context) {
	h.run(c, scheduler.JobTypeUsageRetention)
}

func (h *CronHandler) run(c *gin.Context, jobType scheduler.JobType) {
	runDate := time.Now().UTC()
	if v := c.Query("date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		runDate = t
	}

	report, err := h.executor.Run(c.Request.Context(), jobType, runDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
