package crm

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/shared"
)

// RecordingStatus tracks a recording from capture through storage.
type RecordingStatus string

const (
	RecordingStatusPending    RecordingStatus = "pending"
	RecordingStatusRecording  RecordingStatus = "recording"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusCompleted  RecordingStatus = "completed"
	RecordingStatusFailed     RecordingStatus = "failed"
	RecordingStatusDeleted    RecordingStatus = "deleted"
)

func (s RecordingStatus) IsValid() bool {
	switch s {
	case RecordingStatusPending, RecordingStatusRecording, RecordingStatusProcessing,
		RecordingStatusCompleted, RecordingStatusFailed, RecordingStatusDeleted:
		return true
	default:
		return false
	}
}

// CallRecording is one audio capture of a call. The file itself lives in
// object storage under StorageKey; completed recordings also carry a
// presignable URL.
type CallRecording struct {
	shared.TenantAggregateRoot
	CallLogID       uuid.UUID       `json:"call_log_id" gorm:"type:uuid;index;not null"`
	Status          RecordingStatus `json:"status" gorm:"size:15;index;not null;default:'pending'"`
	StorageKey      string          `json:"storage_key,omitempty" gorm:"size:500"`
	FileURL         string          `json:"file_url,omitempty" gorm:"size:500"`
	FileSizeBytes   int64           `json:"file_size_bytes,omitempty"`
	DurationSeconds int             `json:"duration_seconds,omitempty"`
	Format          string          `json:"format" gorm:"size:10;not null;default:'wav'"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty" gorm:"size:500"`
}

func (CallRecording) TableName() string {
	return "call_recordings"
}

// NewCallRecording registers a pending recording for a call.
func NewCallRecording(tenantID, callLogID uuid.UUID) (*CallRecording, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if callLogID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CALL", "Call log ID is required")
	}
	return &CallRecording{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CallLogID:           callLogID,
		Status:              RecordingStatusPending,
		Format:              "wav",
	}, nil
}

func (r *CallRecording) transition(to RecordingStatus, allowedFrom ...RecordingStatus) error {
	if r.Status == to {
		return nil
	}
	for _, from := range allowedFrom {
		if r.Status == from {
			r.Status = to
			r.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("Cannot move recording from %s to %s", r.Status, to))
}

// Start marks capture in progress.
func (r *CallRecording) Start() error {
	if err := r.transition(RecordingStatusRecording, RecordingStatusPending); err != nil {
		return err
	}
	now := time.Now()
	r.StartedAt = &now
	return nil
}

// Process marks capture finished and post-processing underway.
func (r *CallRecording) Process() error {
	return r.transition(RecordingStatusProcessing, RecordingStatusRecording)
}

// Complete stores the final file location and metadata.
func (r *CallRecording) Complete(storageKey, fileURL string, sizeBytes int64, durationSeconds int) error {
	if storageKey == "" {
		return shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key is required")
	}
	if err := r.transition(RecordingStatusCompleted, RecordingStatusRecording, RecordingStatusProcessing); err != nil {
		return err
	}
	now := time.Now()
	r.StorageKey = storageKey
	r.FileURL = fileURL
	r.FileSizeBytes = sizeBytes
	r.DurationSeconds = durationSeconds
	r.CompletedAt = &now
	r.AddDomainEvent(NewRecordingCompletedEvent(r))
	return nil
}

// Fail records a capture or upload failure.
func (r *CallRecording) Fail(reason string) error {
	if err := r.transition(RecordingStatusFailed, RecordingStatusPending, RecordingStatusRecording, RecordingStatusProcessing); err != nil {
		return err
	}
	r.FailureReason = reason
	return nil
}

// MarkDeleted tombstones a recording after its file is removed from
// storage, keeping the row for audit.
func (r *CallRecording) MarkDeleted() error {
	if err := r.transition(RecordingStatusDeleted, RecordingStatusCompleted, RecordingStatusFailed); err != nil {
		return err
	}
	r.FileURL = ""
	return nil
}

// IsPlayable reports whether the audio can be fetched.
func (r *CallRecording) IsPlayable() bool {
	return r.Status == RecordingStatusCompleted && r.StorageKey != ""
}
