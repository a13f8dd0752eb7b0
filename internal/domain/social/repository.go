package social

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// MessageFilter narrows inbox listings.
type MessageFilter struct {
	shared.Filter
	Platform  Platform
	AccountID string
	SenderID  string
	Unread    bool
	From      *time.Time
	To        *time.Time
}

// MessageRepository persists the unified inbox.
type MessageRepository interface {
	Save(ctx context.Context, msg *Message) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Message, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter MessageFilter) (*shared.Paginated[*Message], error)

	// ExistsByExternalID is the dedup check for at-least-once webhook
	// delivery, scoped per tenant and platform.
	ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, platform Platform, externalID string) (bool, error)

	CountInbound(ctx context.Context, tenantID uuid.UUID, platform Platform, from, to time.Time) (int64, error)
}

// ConnectionRepository persists platform account links.
type ConnectionRepository interface {
	Save(ctx context.Context, conn *Connection) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Connection, error)
	FindByAccount(ctx context.Context, platform Platform, accountID string) (*Connection, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Connection, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
