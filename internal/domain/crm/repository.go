package crm

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// CallLogFilter narrows call log listings.
type CallLogFilter struct {
	shared.Filter
	Status    CallStatus
	Direction CallDirection
	HandledBy *uuid.UUID
	ClientID  *uuid.UUID
	From      *time.Time
	To        *time.Time
	Number    string // matches caller or recipient
}

// CallLogRepository persists call logs.
type CallLogRepository interface {
	Save(ctx context.Context, call *CallLog) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CallLog, error)
	FindBySipCallID(ctx context.Context, tenantID uuid.UUID, sipCallID string) (*CallLog, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter CallLogFilter) (*shared.Paginated[*CallLog], error)
	FindLive(ctx context.Context, tenantID uuid.UUID) ([]*CallLog, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (map[CallStatus]int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// CallEventRepository persists the append-only call timeline.
type CallEventRepository interface {
	Append(ctx context.Context, event *CallEvent) error
	FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*CallEvent, error)
}

// CallRecordingRepository persists recording rows.
type CallRecordingRepository interface {
	Save(ctx context.Context, rec *CallRecording) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CallRecording, error)
	FindByCall(ctx context.Context, tenantID, callLogID uuid.UUID) ([]*CallRecording, error)
	SumStorageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// ClientRepository persists customer contacts.
type ClientRepository interface {
	Save(ctx context.Context, client *Client) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Client, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Client, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Client], error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
