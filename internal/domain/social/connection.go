package social

import (
	"strings"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// Connection links a tenant to one platform account: a Facebook page, an
// Instagram business account or a WhatsApp phone number. The access
// token is stored encrypted at the persistence layer.
type Connection struct {
	shared.TenantAggregateRoot
	Platform    Platform `json:"platform" gorm:"size:20;index;not null"`
	AccountID   string   `json:"account_id" gorm:"index;size:100;not null"`
	AccountName string   `json:"account_name" gorm:"size:200"`
	AccessToken string   `json:"-" gorm:"type:text;not null"`
	IsActive    bool     `json:"is_active" gorm:"not null;default:true"`
}

func (Connection) TableName() string {
	return "social_connections"
}

// NewConnection activates a platform account for a tenant.
func NewConnection(tenantID uuid.UUID, platform Platform, accountID, accountName, accessToken string) (*Connection, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown platform: "+string(platform))
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Platform account ID is required")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Access token is required")
	}
	return &Connection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		AccountID:           accountID,
		AccountName:         strings.TrimSpace(accountName),
		AccessToken:         accessToken,
		IsActive:            true,
	}, nil
}

// RotateToken replaces the stored access token after a refresh.
func (c *Connection) RotateToken(accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return shared.NewDomainError("INVALID_TOKEN", "Access token is required")
	}
	c.AccessToken = accessToken
	c.IncrementVersion()
	return nil
}

// Disconnect deactivates the connection without deleting its message history.
func (c *Connection) Disconnect() {
	if !c.IsActive {
		return
	}
	c.IsActive = false
	c.IncrementVersion()
}

// Reconnect reactivates with a fresh token.
func (c *Connection) Reconnect(accessToken string) error {
	if err := c.RotateToken(accessToken); err != nil {
		return err
	}
	c.IsActive = true
	return nil
}
