package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCallLogRepository implements CallLogRepository using GORM
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new GormCallLogRepository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// Save creates or updates a call log
func (r *GormCallLogRepository) Save(ctx context.Context, call *crm.CallLog) error {
	return r.db.WithContext(ctx).Save(call).Error
}

// FindByID finds a call log by ID within a tenant
func (r *GormCallLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.CallLog, error) {
	var call crm.CallLog
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &call, nil
}

// FindBySipCallID finds a call log by its SIP call identifier
func (r *GormCallLogRepository) FindBySipCallID(ctx context.Context, tenantID uuid.UUID, sipCallID string) (*crm.CallLog, error) {
	if sipCallID == "" {
		return nil, shared.ErrNotFound
	}
	var call crm.CallLog
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sip_call_id = ?", tenantID, sipCallID).
		First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &call, nil
}

// FindAll returns call logs for a tenant with filtering and pagination
func (r *GormCallLogRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter crm.CallLogFilter) (*shared.Paginated[*crm.CallLog], error) {
	query := r.db.WithContext(ctx).
		Model(&crm.CallLog{}).
		Where("tenant_id = ?", tenantID)

	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, CallLogSortFields, "started_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var calls []*crm.CallLog
	if err := query.Find(&calls).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(calls, total, page, pageSize)
	return &result, nil
}

// FindLive returns calls currently in progress, newest first
func (r *GormCallLogRepository) FindLive(ctx context.Context, tenantID uuid.UUID) ([]*crm.CallLog, error) {
	var calls []*crm.CallLog
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", crm.LiveCallStatuses()).
		Order("started_at DESC").
		Find(&calls).Error; err != nil {
		return nil, err
	}
	return calls, nil
}

// CountByStatus returns call counts per status over a time window
func (r *GormCallLogRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[crm.CallStatus]int64, error) {
	type statusCount struct {
		Status crm.CallStatus
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&crm.CallLog{}).
		Select("status, COUNT(*) as count").
		Where("tenant_id = ?", tenantID).
		Where("started_at >= ? AND started_at < ?", from, to).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[crm.CallStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Delete deletes a call log within a tenant
func (r *GormCallLogRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&crm.CallLog{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormCallLogRepository) applyFilter(query *gorm.DB, filter crm.CallLogFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.HandledBy != nil {
		query = query.Where("handled_by = ?", *filter.HandledBy)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.From != nil {
		query = query.Where("started_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("started_at < ?", *filter.To)
	}
	if filter.Number != "" {
		pattern := "%" + filter.Number + "%"
		query = query.Where("caller_number LIKE ? OR recipient_number LIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormCallLogRepository implements CallLogRepository
var _ crm.CallLogRepository = (*GormCallLogRepository)(nil)

// GormCallEventRepository implements CallEventRepository using GORM
type GormCallEventRepository struct {
	db *gorm.DB
}

// NewGormCallEventRepository creates a new GormCallEventRepository
func NewGormCallEventRepository(db *gorm.DB) *GormCallEventRepository {
	return &GormCallEventRepository{db: db}
}

// Append inserts one timeline row. Events are never updated.
func (r *GormCallEventRepository) Append(ctx context.Context, event *crm.CallEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByCall returns a call's timeline in chronological order
func (r *GormCallEventRepository) FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*crm.CallEvent, error) {
	var events []*crm.CallEvent
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND call_log_id = ?", tenantID, callLogID).
		Order("occurred_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Ensure GormCallEventRepository implements CallEventRepository
var _ crm.CallEventRepository = (*GormCallEventRepository)(nil)

// GormCallRecordingRepository implements CallRecordingRepository using GORM
type GormCallRecordingRepository struct {
	db *gorm.DB
}

// NewGormCallRecordingRepository creates a new GormCallRecordingRepository
func NewGormCallRecordingRepository(db *gorm.DB) *GormCallRecordingRepository {
	return &GormCallRecordingRepository{db: db}
}

// Save creates or updates a recording row
func (r *GormCallRecordingRepository) Save(ctx context.Context, rec *crm.CallRecording) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// FindByID finds a recording by ID within a tenant
func (r *GormCallRecordingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.CallRecording, error) {
	var rec crm.CallRecording
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByCall returns all recordings of a call
func (r *GormCallRecordingRepository) FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*crm.CallRecording, error) {
	var recs []*crm.CallRecording
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND call_log_id = ?", tenantID, callLogID).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// SumStorageBytes totals recording storage consumed by a tenant
func (r *GormCallRecordingRepository) SumStorageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&crm.CallRecording{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(file_size_bytes), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Ensure GormCallRecordingRepository implements CallRecordingRepository
var _ crm.CallRecordingRepository = (*GormCallRecordingRepository)(nil)
