package ticket

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Column is one lane on a tenant's ticket board. Columns are ordered by
// Position; exactly one column per tenant is the default landing lane
// for new tickets and for tickets whose column is deleted.
type Column struct {
	shared.TenantAggregateRoot
	Name           string `json:"name" gorm:"size:100;not null"`
	Description    string `json:"description,omitempty" gorm:"size:500"`
	Color          string `json:"color" gorm:"size:7;not null;default:'#6B7280'"`
	Position       int    `json:"position" gorm:"not null;default:0"`
	IsDefault      bool   `json:"is_default" gorm:"not null;default:false"`
	IsClosedStatus bool   `json:"is_closed_status" gorm:"not null;default:false"`
	TrackTime      bool   `json:"track_time" gorm:"not null;default:false"`
}

func (Column) TableName() string {
	return "ticket_columns"
}

// NewColumn creates a board lane at the given position. The service
// layer assigns position as max+1 when the caller does not choose one.
func NewColumn(tenantID uuid.UUID, name string, position int) (*Column, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_COLUMN_NAME", "Column name is required")
	}
	if position < 0 {
		return nil, shared.NewDomainError("INVALID_POSITION", "Column position cannot be negative")
	}
	return &Column{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Color:               "#6B7280",
		Position:            position,
	}, nil
}

// Rename changes the visible name.
func (c *Column) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_COLUMN_NAME", "Column name is required")
	}
	c.Name = name
	c.IncrementVersion()
	return nil
}

// SetColor validates a #RRGGBB hex color.
func (c *Column) SetColor(color string) error {
	if !colorPattern.MatchString(color) {
		return shared.NewDomainError("INVALID_COLOR", "Color must be a #RRGGBB hex value")
	}
	c.Color = color
	c.IncrementVersion()
	return nil
}

// MoveTo changes the column's board position.
func (c *Column) MoveTo(position int) error {
	if position < 0 {
		return shared.NewDomainError("INVALID_POSITION", "Column position cannot be negative")
	}
	c.Position = position
	c.IncrementVersion()
	return nil
}

// MakeDefault flags this column as the landing lane. The service layer
// clears the flag on the previous default in the same transaction.
func (c *Column) MakeDefault() {
	c.IsDefault = true
	c.IncrementVersion()
}

func (c *Column) ClearDefault() {
	c.IsDefault = false
	c.IncrementVersion()
}

// SetClosedStatus marks tickets in this column as closed for reporting.
func (c *Column) SetClosedStatus(closed bool) {
	c.IsClosedStatus = closed
	c.IncrementVersion()
}

func (c *Column) SetTrackTime(track bool) {
	c.TrackTime = track
	c.IncrementVersion()
}
