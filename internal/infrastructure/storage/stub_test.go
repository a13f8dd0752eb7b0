package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStubRecordingStorage(t *testing.T) {
	s := NewStubRecordingStorage()
	require.NotNil(t, s)
	assert.Equal(t, "https://storage.example.com", s.BaseURL)
}

func TestStubRecordingStorage_GenerateUploadURL(t *testing.T) {
	s := NewStubRecordingStorage()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		url, expiresAt, err := s.GenerateUploadURL(ctx, "recordings/t/c.wav", "audio/wav", 15*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, "https://storage.example.com/upload/recordings/t/c.wav")
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("empty storage key", func(t *testing.T) {
		_, _, err := s.GenerateUploadURL(ctx, "", "audio/wav", 15*time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage key is required")
	})
}

func TestStubRecordingStorage_GenerateDownloadURL(t *testing.T) {
	s := NewStubRecordingStorage()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		url, expiresAt, err := s.GenerateDownloadURL(ctx, "recordings/t/c.wav", 15*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, "https://storage.example.com/download/recordings/t/c.wav")
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("empty storage key", func(t *testing.T) {
		_, _, err := s.GenerateDownloadURL(ctx, "", 15*time.Minute)
		require.Error(t, err)
	})
}

func TestStubRecordingStorage_DeleteAndExists(t *testing.T) {
	s := NewStubRecordingStorage()
	ctx := context.Background()

	require.NoError(t, s.DeleteObject(ctx, "recordings/t/c.wav"))
	require.Error(t, s.DeleteObject(ctx, ""))

	exists, err := s.ObjectExists(ctx, "recordings/t/c.wav")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.ObjectExists(ctx, "")
	require.Error(t, err)

	require.NoError(t, s.Upload(ctx, "recordings/t/c.wav", []byte("data"), "audio/wav"))
	require.Error(t, s.Upload(ctx, "", nil, ""))
}
