// Package storage provides object storage for call recording files.
package storage

import (
	"context"
	"errors"
	"time"

	crmapp "github.com/echodesk/backend/internal/application/crm"
)

// StubRecordingStorage is a placeholder implementation of RecordingStorage.
// Use this for development until a real bucket is configured.
type StubRecordingStorage struct {
	// BaseURL is the base URL for generating upload/download URLs
	// Defaults to "https://storage.example.com" if not set
	BaseURL string
}

// NewStubRecordingStorage creates a new StubRecordingStorage
func NewStubRecordingStorage() *StubRecordingStorage {
	return &StubRecordingStorage{
		BaseURL: "https://storage.example.com",
	}
}

// Ensure StubRecordingStorage implements RecordingStorage
var _ crmapp.RecordingStorage = (*StubRecordingStorage)(nil)

// GenerateUploadURL generates a stub presigned URL for uploading a recording
func (s *StubRecordingStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// GenerateDownloadURL generates a stub presigned URL for playback
func (s *StubRecordingStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// Upload is a no-op stub that always succeeds
func (s *StubRecordingStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	return nil
}

// DeleteObject is a no-op stub that always succeeds
func (s *StubRecordingStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	return nil
}

// ObjectExists always returns true in stub mode
// This keeps the recording confirmation flow working during development
func (s *StubRecordingStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	return true, nil
}
