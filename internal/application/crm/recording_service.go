package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordingStorage is the object-store port for call audio. The
// infrastructure layer provides the S3 implementation.
type RecordingStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// StorageQuota gates recording uploads on the tenant's package limit.
// The billing quota service implements it.
type StorageQuota interface {
	CheckStorageQuota(ctx context.Context, tenantID uuid.UUID, deltaGB decimal.Decimal) error
}

const (
	uploadURLTTL   = 15 * time.Minute
	playbackURLTTL = time.Hour
)

// RecordingDTO is the read model for a call recording.
type RecordingDTO struct {
	ID              uuid.UUID  `json:"id"`
	CallLogID       uuid.UUID  `json:"call_log_id"`
	Status          string     `json:"status"`
	Format          string     `json:"format"`
	FileSizeBytes   int64      `json:"file_size_bytes,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty"`
}

// UploadSlotDTO tells the PBX where to put the audio file.
type UploadSlotDTO struct {
	RecordingID uuid.UUID `json:"recording_id"`
	UploadURL   string    `json:"upload_url"`
	StorageKey  string    `json:"storage_key"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PlaybackDTO carries a short-lived download URL.
type PlaybackDTO struct {
	RecordingID uuid.UUID `json:"recording_id"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RecordingService manages call audio: starting a capture, reserving an
// upload slot, settling the uploaded file, playback, and deletion.
type RecordingService struct {
	recRepo  crm.CallRecordingRepository
	callRepo crm.CallLogRepository
	storage  RecordingStorage
	quota    StorageQuota
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewRecordingService creates a new RecordingService
func NewRecordingService(
	recRepo crm.CallRecordingRepository,
	callRepo crm.CallLogRepository,
	storage RecordingStorage,
	quota StorageQuota,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *RecordingService {
	return &RecordingService{
		recRepo:  recRepo,
		callRepo: callRepo,
		storage:  storage,
		quota:    quota,
		eventBus: eventBus,
		logger:   logger,
	}
}

// recordingKey builds the object key for a recording. Keys are prefixed
// by tenant so storage can be measured and purged per tenant.
func recordingKey(tenantID, recordingID uuid.UUID, format string) string {
	return fmt.Sprintf("recordings/%s/%s.%s", tenantID, recordingID, format)
}

// Start flags the live call as recorded and registers a pending capture.
func (s *RecordingService) Start(ctx context.Context, tenantID, callID uuid.UUID) (*RecordingDTO, error) {
	call, err := s.callRepo.FindByID(ctx, tenantID, callID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("CALL_NOT_FOUND", "Call not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load call")
	}

	if err := call.StartRecording(); err != nil {
		return nil, err
	}

	rec, err := crm.NewCallRecording(tenantID, callID)
	if err != nil {
		return nil, err
	}
	if err := rec.Start(); err != nil {
		return nil, err
	}

	if err := s.callRepo.Save(ctx, call); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save call")
	}
	if err := s.recRepo.Save(ctx, rec); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save recording")
	}

	s.logger.Info("Recording started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("call_id", callID.String()),
		zap.String("recording_id", rec.ID.String()))
	return toRecordingDTO(rec), nil
}

// Stop returns the call to plain answered and moves the recording into
// processing while the PBX uploads the file.
func (s *RecordingService) Stop(ctx context.Context, tenantID, callID, recordingID uuid.UUID) (*UploadSlotDTO, error) {
	rec, err := s.loadRecording(ctx, tenantID, recordingID)
	if err != nil {
		return nil, err
	}

	call, err := s.callRepo.FindByID(ctx, tenantID, callID)
	if err == nil && call.Status == crm.CallStatusRecording {
		if err := call.StopRecording(); err == nil {
			if err := s.callRepo.Save(ctx, call); err != nil {
				s.logger.Warn("Failed to save call after recording stop", zap.Error(err))
			}
		}
	}

	if err := rec.Process(); err != nil {
		return nil, err
	}
	if err := s.recRepo.Save(ctx, rec); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save recording")
	}

	key := recordingKey(tenantID, rec.ID, rec.Format)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, "audio/wav", uploadURLTTL)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to create upload URL")
	}

	return &UploadSlotDTO{
		RecordingID: rec.ID,
		UploadURL:   url,
		StorageKey:  key,
		ExpiresAt:   expiresAt,
	}, nil
}

// Complete settles an uploaded recording after verifying the object
// landed and fits the tenant's storage quota.
func (s *RecordingService) Complete(ctx context.Context, tenantID, recordingID uuid.UUID, sizeBytes int64, durationSeconds int) (*RecordingDTO, error) {
	rec, err := s.loadRecording(ctx, tenantID, recordingID)
	if err != nil {
		return nil, err
	}

	key := recordingKey(tenantID, rec.ID, rec.Format)
	exists, err := s.storage.ObjectExists(ctx, key)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to verify uploaded file")
	}
	if !exists {
		return nil, shared.NewDomainError("FILE_MISSING", "Recording file was not uploaded")
	}

	if s.quota != nil {
		deltaGB := decimal.NewFromInt(sizeBytes).Div(decimal.NewFromInt(1 << 30))
		if err := s.quota.CheckStorageQuota(ctx, tenantID, deltaGB); err != nil {
			return nil, err
		}
	}

	url, _, err := s.storage.GenerateDownloadURL(ctx, key, playbackURLTTL)
	if err != nil {
		s.logger.Warn("Failed to presign initial download URL", zap.Error(err))
		url = ""
	}
	if err := rec.Complete(key, url, sizeBytes, durationSeconds); err != nil {
		return nil, err
	}
	if err := s.recRepo.Save(ctx, rec); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save recording")
	}
	s.publishEvents(ctx, rec)

	s.logger.Info("Recording completed",
		zap.String("recording_id", rec.ID.String()),
		zap.Int64("size_bytes", sizeBytes))
	return toRecordingDTO(rec), nil
}

// Fail marks a capture that never produced a usable file.
func (s *RecordingService) Fail(ctx context.Context, tenantID, recordingID uuid.UUID, reason string) error {
	rec, err := s.loadRecording(ctx, tenantID, recordingID)
	if err != nil {
		return err
	}
	if err := rec.Fail(reason); err != nil {
		return err
	}
	if err := s.recRepo.Save(ctx, rec); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save recording")
	}
	return nil
}

// GetPlaybackURL presigns a short-lived download link.
func (s *RecordingService) GetPlaybackURL(ctx context.Context, tenantID, recordingID uuid.UUID) (*PlaybackDTO, error) {
	rec, err := s.loadRecording(ctx, tenantID, recordingID)
	if err != nil {
		return nil, err
	}
	if !rec.IsPlayable() {
		return nil, shared.NewDomainError("RECORDING_NOT_READY", "Recording is not ready for playback")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, rec.StorageKey, playbackURLTTL)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to create playback URL")
	}
	return &PlaybackDTO{RecordingID: rec.ID, URL: url, ExpiresAt: expiresAt}, nil
}

// ListByCall returns all recordings of one call.
func (s *RecordingService) ListByCall(ctx context.Context, tenantID, callID uuid.UUID) ([]*RecordingDTO, error) {
	recs, err := s.recRepo.FindByCall(ctx, tenantID, callID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list recordings")
	}
	dtos := make([]*RecordingDTO, 0, len(recs))
	for _, rec := range recs {
		dtos = append(dtos, toRecordingDTO(rec))
	}
	return dtos, nil
}

// Delete removes the audio object and tombstones the row.
func (s *RecordingService) Delete(ctx context.Context, tenantID, recordingID uuid.UUID) error {
	rec, err := s.loadRecording(ctx, tenantID, recordingID)
	if err != nil {
		return err
	}

	if rec.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, rec.StorageKey); err != nil {
			return shared.NewDomainError("STORAGE_ERROR", "Failed to delete recording file")
		}
	}
	if err := rec.MarkDeleted(); err != nil {
		return err
	}
	if err := s.recRepo.Save(ctx, rec); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save recording")
	}

	s.logger.Info("Recording deleted", zap.String("recording_id", rec.ID.String()))
	return nil
}

// MeasureTenantStorage sums completed recording sizes for the billing
// storage snapshot.
func (s *RecordingService) MeasureTenantStorage(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return s.recRepo.SumStorageBytes(ctx, tenantID)
}

func (s *RecordingService) loadRecording(ctx context.Context, tenantID, recordingID uuid.UUID) (*crm.CallRecording, error) {
	rec, err := s.recRepo.FindByID(ctx, tenantID, recordingID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("RECORDING_NOT_FOUND", "Recording not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load recording")
	}
	return rec, nil
}

func (s *RecordingService) publishEvents(ctx context.Context, rec *crm.CallRecording) {
	events := rec.PullDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish recording events", zap.Error(err))
	}
}

func toRecordingDTO(rec *crm.CallRecording) *RecordingDTO {
	return &RecordingDTO{
		ID:              rec.ID,
		CallLogID:       rec.CallLogID,
		Status:          string(rec.Status),
		Format:          rec.Format,
		FileSizeBytes:   rec.FileSizeBytes,
		DurationSeconds: rec.DurationSeconds,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
		FailureReason:   rec.FailureReason,
	}
}
