package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users. Queries are tenant-scoped through the
// tenant ID carried in the context by the persistence layer. Role
// assignments live in a join table; SaveUserRoles replaces the full set
// and LoadUserRoles hydrates User.RoleIDs.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter UserFilter) ([]*User, int64, error)
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	SaveUserRoles(ctx context.Context, user *User) error
	LoadUserRoles(ctx context.Context, user *User) error
}

// UserFilter narrows and paginates user queries. Keyword matches
// email, first name and last name.
type UserFilter struct {
	Keyword string
	Status  *UserStatus
	RoleID  *uuid.UUID

	Page     int
	PageSize int

	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewUserFilter returns a filter with the default page size and sort.
func NewUserFilter() UserFilter {
	return UserFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

func (f UserFilter) WithKeyword(keyword string) UserFilter {
	f.Keyword = keyword
	return f
}

func (f UserFilter) WithStatus(status UserStatus) UserFilter {
	f.Status = &status
	return f
}

func (f UserFilter) WithRoleID(roleID uuid.UUID) UserFilter {
	f.RoleID = &roleID
	return f
}

// Offset returns the row offset for the current page.
func (f UserFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the page size clamped to 100 rows.
func (f UserFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	return min(f.PageSize, 100)
}
