package crm

import (
	"strings"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// Client is a customer contact. Calls are matched to clients by phone
// number when a log row is created.
type Client struct {
	shared.TenantAggregateRoot
	Name     string `json:"name" gorm:"size:100;not null"`
	Email    string `json:"email" gorm:"index;size:254"`
	Phone    string `json:"phone" gorm:"index;size:20"`
	Company  string `json:"company,omitempty" gorm:"size:100"`
	IsActive bool   `json:"is_active" gorm:"not null;default:true"`
}

func (Client) TableName() string {
	return "crm_clients"
}

// NewClient creates an active client contact.
func NewClient(tenantID uuid.UUID, name, email, phone string) (*Client, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT_NAME", "Client name is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email != "" && !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid client email")
	}
	if phone != "" {
		normalized, err := normalizeNumber(phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}
	return &Client{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Email:               email,
		Phone:               phone,
		IsActive:            true,
	}, nil
}

// Update changes contact details, leaving blanks untouched.
func (c *Client) Update(name, email, phone, company string) error {
	if name = strings.TrimSpace(name); name != "" {
		c.Name = name
	}
	if email = strings.TrimSpace(strings.ToLower(email)); email != "" {
		if !strings.Contains(email, "@") {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid client email")
		}
		c.Email = email
	}
	if phone != "" {
		normalized, err := normalizeNumber(phone)
		if err != nil {
			return err
		}
		c.Phone = normalized
	}
	if company = strings.TrimSpace(company); company != "" {
		c.Company = company
	}
	c.IncrementVersion()
	return nil
}

func (c *Client) Deactivate() {
	c.IsActive = false
	c.IncrementVersion()
}

func (c *Client) Activate() {
	c.IsActive = true
	c.IncrementVersion()
}
