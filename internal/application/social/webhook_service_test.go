package social

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type webhookFixture struct {
	msgRepo  *MockMessageRepository
	connRepo *MockConnectionRepository
	quota    *fakeMessageQuota
	bus      *fakeEventBus
	service  *WebhookService
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		msgRepo:  new(MockMessageRepository),
		connRepo: new(MockConnectionRepository),
		quota:    &fakeMessageQuota{},
		bus:      &fakeEventBus{},
	}
	f.service = NewWebhookService(WebhookServiceConfig{
		MessageRepo:    f.msgRepo,
		ConnectionRepo: f.connRepo,
		Quota:          f.quota,
		EventBus:       f.bus,
		Tokens: VerifyTokens{
			Facebook:  "fb-verify-1",
			Instagram: "ig-verify-1",
			WhatsApp:  "wa-verify-1",
		},
		AppSecret: "meta-app-secret",
		Logger:    zap.NewNop(),
	})
	return f
}

func newTestConnection(t *testing.T, tenantID uuid.UUID, platform social.Platform, accountID string) *social.Connection {
	t.Helper()
	conn, err := social.NewConnection(tenantID, platform, accountID, "EchoDesk Page", "page-token")
	require.NoError(t, err)
	return conn
}

func messengerBody(accountID, mid, senderID, text string, echo bool) []byte {
	return []byte(fmt.Sprintf(`{
		"object": "page",
		"entry": [{
			"id": %q,
			"time": 1756500000000,
			"messaging": [{
				"sender": {"id": %q},
				"recipient": {"id": %q},
				"timestamp": 1756500000123,
				"message": {"mid": %q, "text": %q, "is_echo": %t}
			}]
		}]
	}`, accountID, senderID, accountID, mid, text, echo))
}

func whatsAppBody(phoneNumberID, messageID, from, text string) []byte {
	return []byte(fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"metadata": {"phone_number_id": %q, "display_phone_number": "995322000100"},
					"contacts": [{"wa_id": %q, "profile": {"name": "Nino Beridze"}}],
					"messages": [{
						"id": %q,
						"from": %q,
						"timestamp": "1756500000",
						"type": "text",
						"text": {"body": %q}
					}]
				}
			}]
		}]
	}`, phoneNumberID, from, messageID, from, text))
}

func TestWebhook_VerifySubscription(t *testing.T) {
	f := newWebhookFixture()

	challenge, err := f.service.VerifySubscription(social.PlatformFacebook, "subscribe", "fb-verify-1", "challenge-42")
	require.NoError(t, err)
	assert.Equal(t, "challenge-42", challenge)

	_, err = f.service.VerifySubscription(social.PlatformFacebook, "subscribe", "wrong-token", "challenge-42")
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VERIFICATION_FAILED", domainErr.Code)

	_, err = f.service.VerifySubscription(social.PlatformInstagram, "unsubscribe", "ig-verify-1", "challenge-42")
	require.Error(t, err)
}

func TestWebhook_VerifySignature(t *testing.T) {
	f := newWebhookFixture()
	body := []byte(`{"object":"page"}`)

	mac := hmac.New(sha256.New, []byte("meta-app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	require.NoError(t, f.service.VerifySignature(body, header))

	err := f.service.VerifySignature([]byte(`{"tampered":true}`), header)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SIGNATURE", domainErr.Code)

	err = f.service.VerifySignature(body, "")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SIGNATURE", domainErr.Code)
}

func TestWebhook_FacebookMessageStored(t *testing.T) {
	f := newWebhookFixture()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformFacebook, "page-100")

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-100").Return(conn, nil)
	f.msgRepo.On("ExistsByExternalID", mock.Anything, tenantID, social.PlatformFacebook, "mid.fb.1").
		Return(false, nil)
	var saved *social.Message
	f.msgRepo.On("Save", mock.Anything, mock.AnythingOfType("*social.Message")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*social.Message) }).
		Return(nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformFacebook,
		messengerBody("page-100", "mid.fb.1", "psid-7", "gamarjoba, when do you open?", false))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Received)
	assert.Equal(t, 1, report.Stored)
	require.NotNil(t, saved)
	assert.Equal(t, tenantID, saved.TenantID)
	assert.Equal(t, "mid.fb.1", saved.ExternalID)
	assert.Equal(t, "psid-7", saved.SenderID)
	assert.Equal(t, social.MessageInbound, saved.Direction)
	assert.NotEmpty(t, f.bus.events, "message received event should be published")
}

func TestWebhook_EchoMessageSkipped(t *testing.T) {
	f := newWebhookFixture()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformFacebook, "page-100")

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-100").Return(conn, nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformFacebook,
		messengerBody("page-100", "mid.echo.1", "page-100", "our own reply", true))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Received)
	assert.Equal(t, 0, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWebhook_DuplicateDeliveryDeduped(t *testing.T) {
	f := newWebhookFixture()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformInstagram, "ig-200")

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformInstagram, "ig-200").Return(conn, nil)
	f.msgRepo.On("ExistsByExternalID", mock.Anything, tenantID, social.PlatformInstagram, "mid.ig.1").
		Return(true, nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformInstagram,
		messengerBody("ig-200", "mid.ig.1", "igsid-3", "hello again", false))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.Stored)
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWebhook_UnconnectedAccountSkipped(t *testing.T) {
	f := newWebhookFixture()

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-999").
		Return(nil, shared.ErrNotFound)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformFacebook,
		messengerBody("page-999", "mid.fb.9", "psid-1", "hi", false))

	require.NoError(t, err, "deliveries for unconnected pages are acknowledged")
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Stored)
}

func TestWebhook_WhatsAppMessageCountsQuota(t *testing.T) {
	f := newWebhookFixture()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformWhatsApp, "phone-300")

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformWhatsApp, "phone-300").Return(conn, nil)
	f.msgRepo.On("ExistsByExternalID", mock.Anything, tenantID, social.PlatformWhatsApp, "wamid.1").
		Return(false, nil)
	var saved *social.Message
	f.msgRepo.On("Save", mock.Anything, mock.AnythingOfType("*social.Message")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*social.Message) }).
		Return(nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformWhatsApp,
		whatsAppBody("phone-300", "wamid.1", "995599112233", "minda shekveta"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored)
	require.Len(t, f.quota.counted, 1)
	assert.Equal(t, tenantID, f.quota.counted[0])
	require.NotNil(t, saved)
	assert.Equal(t, "Nino Beridze", saved.SenderName)
	assert.Equal(t, "995599112233", saved.SenderID)
}

func TestWebhook_WhatsAppRejectedPastQuota(t *testing.T) {
	f := newWebhookFixture()
	f.quota.exhausted = true
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformWhatsApp, "phone-300")

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformWhatsApp, "phone-300").Return(conn, nil)
	f.msgRepo.On("ExistsByExternalID", mock.Anything, tenantID, social.PlatformWhatsApp, "wamid.2").
		Return(false, nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformWhatsApp,
		whatsAppBody("phone-300", "wamid.2", "995599112233", "one too many"))

	require.NoError(t, err, "over-quota deliveries still return success to the platform")
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 0, report.Stored)
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWebhook_DisconnectedAccountSkipped(t *testing.T) {
	f := newWebhookFixture()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformFacebook, "page-100")
	conn.Disconnect()

	f.connRepo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-100").Return(conn, nil)

	report, err := f.service.ProcessPayload(context.Background(), social.PlatformFacebook,
		messengerBody("page-100", "mid.fb.2", "psid-7", "hello?", false))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	f.msgRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	f := newWebhookFixture()

	_, err := f.service.ProcessPayload(context.Background(), social.PlatformFacebook, []byte("{not json"))

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "MALFORMED_PAYLOAD", domainErr.Code)
}
