package social

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInboundMessage(t *testing.T) {
	tenantID := uuid.New()
	sentAt := time.Now().Add(-5 * time.Minute)

	t.Run("ingests customer message", func(t *testing.T) {
		msg, err := NewInboundMessage(tenantID, PlatformFacebook, "mid.123", "page-1", "user-9", "hello", sentAt)
		require.NoError(t, err)

		assert.Equal(t, MessageInbound, msg.Direction)
		assert.Equal(t, "mid.123", msg.ExternalID)
		assert.False(t, msg.IsRead)
		assert.Equal(t, sentAt, msg.SentAt)
		assert.Len(t, msg.GetDomainEvents(), 1, "inbound messages announce themselves")
	})

	t.Run("outbound echo carries no event", func(t *testing.T) {
		msg, err := NewOutboundMessage(tenantID, PlatformInstagram, "mid.456", "ig-1", "ig-1", "thanks!", sentAt)
		require.NoError(t, err)
		assert.Equal(t, MessageOutbound, msg.Direction)
		assert.Empty(t, msg.GetDomainEvents())
	})

	t.Run("zero timestamp defaults to now", func(t *testing.T) {
		msg, err := NewInboundMessage(tenantID, PlatformWhatsApp, "wamid.1", "15551234567", "15557654321", "hi", time.Time{})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), msg.SentAt, time.Minute)
	})

	t.Run("sender and attachment builders trim input", func(t *testing.T) {
		msg, err := NewInboundMessage(tenantID, PlatformFacebook, "mid.1", "page-1", "user-1", "", sentAt)
		require.NoError(t, err)
		msg.WithSender(" Nino ", " https://cdn.example/pic.jpg ").WithAttachment(" https://cdn.example/img.png ")

		assert.Equal(t, "Nino", msg.SenderName)
		assert.Equal(t, "https://cdn.example/pic.jpg", msg.ProfilePicURL)
		assert.Equal(t, "https://cdn.example/img.png", msg.AttachmentURL)
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		_, err := NewInboundMessage(uuid.Nil, PlatformFacebook, "mid.1", "p", "u", "x", sentAt)
		assert.Error(t, err)
		_, err = NewInboundMessage(tenantID, "telegram", "mid.1", "p", "u", "x", sentAt)
		assert.Error(t, err)
		_, err = NewInboundMessage(tenantID, PlatformFacebook, "  ", "p", "u", "x", sentAt)
		assert.Error(t, err)
		_, err = NewInboundMessage(tenantID, PlatformFacebook, "mid.1", "", "u", "x", sentAt)
		assert.Error(t, err)
		_, err = NewInboundMessage(tenantID, PlatformFacebook, "mid.1", "p", "", "x", sentAt)
		assert.Error(t, err)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		msg, err := NewInboundMessage(tenantID, PlatformFacebook, "mid.2", "p", "u", "x", sentAt)
		require.NoError(t, err)
		v := msg.GetVersion()
		msg.MarkRead()
		assert.True(t, msg.IsRead)
		assert.Equal(t, v+1, msg.GetVersion())
		msg.MarkRead()
		assert.Equal(t, v+1, msg.GetVersion())
	})
}

func TestConnection(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creation and token rotation", func(t *testing.T) {
		conn, err := NewConnection(tenantID, PlatformFacebook, "page-1", "Acme Support", "tok-1")
		require.NoError(t, err)
		assert.True(t, conn.IsActive)

		require.NoError(t, conn.RotateToken("tok-2"))
		assert.Equal(t, "tok-2", conn.AccessToken)
		assert.Error(t, conn.RotateToken("  "))
	})

	t.Run("disconnect keeps history, reconnect needs a token", func(t *testing.T) {
		conn, err := NewConnection(tenantID, PlatformWhatsApp, "15551234567", "", "tok-1")
		require.NoError(t, err)

		conn.Disconnect()
		assert.False(t, conn.IsActive)
		conn.Disconnect()
		assert.False(t, conn.IsActive)

		require.NoError(t, conn.Reconnect("tok-3"))
		assert.True(t, conn.IsActive)
		assert.Equal(t, "tok-3", conn.AccessToken)
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		_, err := NewConnection(tenantID, "tiktok", "a", "", "t")
		assert.Error(t, err)
		_, err = NewConnection(tenantID, PlatformFacebook, "", "", "t")
		assert.Error(t, err)
		_, err = NewConnection(tenantID, PlatformFacebook, "a", "", "")
		assert.Error(t, err)
	})
}
