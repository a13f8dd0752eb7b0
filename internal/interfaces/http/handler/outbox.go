package handler

import (
	"time"

	"github.com/echodesk/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxHandler exposes the event outbox to operators: inspecting stuck
// entries, retrying dead letters, and watching delivery statistics.
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

// GetDeadLetterEntries godoc
//
//	@ID				getOutboxDeadLetterEntries
//	@Summary		List dead letter entries
//	@Description	Get a paginated list of dead letter queue entries
//	@Tags			outbox
//	@Produce		json
//	@Param			page		query		int	false	"Page number"		default(1)
//	@Param			page_size	query		int	false	"Items per page"	default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[OutboxListResponse]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		403			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/system/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxListResponse(result))
}

// GetEntry godoc
//
//	@ID				getOutboxEntry
//	@Summary		Get an outbox entry by ID
//	@Description	Retrieve a single outbox entry by its ID
//	@Tags			outbox
//	@Produce		json
//	@Param			id	path		string	true	"Outbox Entry ID"	format(uuid)
//	@Success		200	{object}	APIResponse[OutboxEntryResponse]
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/system/outbox/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxEntryResponse(entry))
}

// RetryDeadEntry godoc
//
//	@ID				retryDeadEntryOutbox
//	@Summary		Retry a dead letter entry
//	@Description	Reset a dead letter entry for retry processing
//	@Tags			outbox
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Outbox Entry ID"	format(uuid)
//	@Success		200	{object}	APIResponse[OutboxEntryResponse]
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/system/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxEntryResponse(entry))
}

// RetryAllDeadEntries godoc
//
//	@ID				retryAllDeadEntriesOutbox
//	@Summary		Retry all dead letter entries
//	@Description	Reset all dead letter entries for retry processing
//	@Tags			outbox
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	APIResponse[RetryAllResponse]
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/system/outbox/dead/retry-all [post]
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	count, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RetryAllResponse{Count: count})
}

// GetStats godoc
//
//	@ID				getOutboxStats
//	@Summary		Get outbox statistics
//	@Description	Get statistics about outbox entries by status
//	@Tags			outbox
//	@Produce		json
//	@Success		200	{object}	APIResponse[OutboxStatsResponse]
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOutboxStatsResponse(stats))
}

// OutboxEntryResponse represents an outbox entry in API responses
// @Name HandlerOutboxEntryResponse
type OutboxEntryResponse struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	AggregateID   string  `json:"aggregate_id"`
	AggregateType string  `json:"aggregate_type"`
	Status        string  `json:"status"`
	RetryCount    int     `json:"retry_count"`
	MaxRetries    int     `json:"max_retries"`
	LastError     string  `json:"last_error,omitempty"`
	NextRetryAt   *string `json:"next_retry_at,omitempty"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// OutboxListResponse represents a paginated outbox list
// @Name HandlerOutboxListResponse
type OutboxListResponse struct {
	Entries    []OutboxEntryResponse `json:"entries"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// OutboxStatsResponse represents outbox entry counts by status
// @Name HandlerOutboxStatsResponse
type OutboxStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// RetryAllResponse represents the response for the retry-all operation
// @Name HandlerRetryAllResponse
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

func toOutboxEntryResponse(entry *event.OutboxEntryDTO) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            entry.ID.String(),
		TenantID:      entry.TenantID.String(),
		EventID:       entry.EventID.String(),
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID.String(),
		AggregateType: entry.AggregateType,
		Status:        entry.Status,
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   formatOptionalTime(entry.NextRetryAt),
		ProcessedAt:   formatOptionalTime(entry.ProcessedAt),
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     entry.UpdatedAt.Format(time.RFC3339),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toOutboxListResponse(result *event.OutboxListResult) OutboxListResponse {
	entries := make([]OutboxEntryResponse, len(result.Entries))
	for i := range result.Entries {
		entries[i] = toOutboxEntryResponse(&result.Entries[i])
	}
	return OutboxListResponse{
		Entries:    entries,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
}

func toOutboxStatsResponse(stats *event.OutboxStatsDTO) OutboxStatsResponse {
	return OutboxStatsResponse{
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Sent:       stats.Sent,
		Failed:     stats.Failed,
		Dead:       stats.Dead,
		Total:      stats.Total,
	}
}
