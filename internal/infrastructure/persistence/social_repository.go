package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSocialMessageRepository implements MessageRepository using GORM
type GormSocialMessageRepository struct {
	db *gorm.DB
}

// NewGormSocialMessageRepository creates a new GormSocialMessageRepository
func NewGormSocialMessageRepository(db *gorm.DB) *GormSocialMessageRepository {
	return &GormSocialMessageRepository{db: db}
}

// Save creates or updates a message
func (r *GormSocialMessageRepository) Save(ctx context.Context, msg *social.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

// FindByID finds a message by ID within a tenant
func (r *GormSocialMessageRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*social.Message, error) {
	var msg social.Message
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// FindAll returns inbox messages for a tenant with filtering and pagination
func (r *GormSocialMessageRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter social.MessageFilter) (*shared.Paginated[*social.Message], error) {
	query := r.db.WithContext(ctx).
		Model(&social.Message{}).
		Where("tenant_id = ?", tenantID)

	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.SenderID != "" {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.Unread {
		query = query.Where("is_read = ?", false)
	}
	if filter.From != nil {
		query = query.Where("sent_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sent_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, SocialMessageSortFields, "sent_at")
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

	var messages []*social.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(messages, total, page, pageSize)
	return &result, nil
}

// ExistsByExternalID is the dedup check for at-least-once webhook
// delivery, scoped per tenant and platform
func (r *GormSocialMessageRepository) ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform social.Platform, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&social.Message{}).
		Where("tenant_id = ? AND platform = ? AND external_id = ?", tenantID, platform, externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountInbound counts customer messages received over a time window,
// the input to WhatsApp quota enforcement
func (r *GormSocialMessageRepository) CountInbound(ctx context.Context, tenantID uuid.UUID, platform social.Platform, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&social.Message{}).
		Where("tenant_id = ? AND platform = ?", tenantID, platform).
		Where("direction = ?", social.MessageInbound).
		Where("sent_at >= ? AND sent_at < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormSocialMessageRepository implements MessageRepository
var _ social.MessageRepository = (*GormSocialMessageRepository)(nil)

// GormSocialConnectionRepository implements ConnectionRepository using GORM
type GormSocialConnectionRepository struct {
	db *gorm.DB
}

// NewGormSocialConnectionRepository creates a new GormSocialConnectionRepository
func NewGormSocialConnectionRepository(db *gorm.DB) *GormSocialConnectionRepository {
	return &GormSocialConnectionRepository{db: db}
}

// Save creates or updates a connection
func (r *GormSocialConnectionRepository) Save(ctx context.Context, conn *social.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

// FindByID finds a connection by ID within a tenant
func (r *GormSocialConnectionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*social.Connection, error) {
	var conn social.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByAccount resolves which tenant owns a platform account. Webhook
// payloads carry only the account ID, so this lookup is cross-tenant.
func (r *GormSocialConnectionRepository) FindByAccount(ctx context.Context, platform social.Platform, accountID string) (*social.Connection, error) {
	if accountID == "" {
		return nil, shared.ErrNotFound
	}
	var conn social.Connection
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND account_id = ?", platform, accountID).
		Where("is_active = ?", true).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByTenant returns all of a tenant's platform connections
func (r *GormSocialConnectionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*social.Connection, error) {
	var conns []*social.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("platform ASC, account_name ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Delete deletes a connection within a tenant
func (r *GormSocialConnectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&social.Connection{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormSocialConnectionRepository implements ConnectionRepository
var _ social.ConnectionRepository = (*GormSocialConnectionRepository)(nil)
