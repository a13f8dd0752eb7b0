package identity

import (
	"context"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantRepository persists tenants. Schema names and custom domains
// are unique across all tenants, so lookups by either return at most
// one row.
type TenantRepository interface {
	Save(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySchema(ctx context.Context, schema string) (*Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)
	FindByStatus(ctx context.Context, status TenantStatus, filter shared.Filter) ([]Tenant, error)

	// FindActiveIDs returns the IDs of all active and trial tenants,
	// the set the daily billing jobs iterate over.
	FindActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// FindTrialExpired returns trial tenants whose trial window has
	// already ended.
	FindTrialExpired(ctx context.Context) ([]Tenant, error)

	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByStatus(ctx context.Context, status TenantStatus) (int64, error)
	ExistsBySchema(ctx context.Context, schema string) (bool, error)
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}
