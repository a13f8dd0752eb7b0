package social

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerifyTokens holds the per-platform webhook verification tokens
// configured in the Meta developer console.
type VerifyTokens struct {
	Facebook  string
	Instagram string
	WhatsApp  string
}

func (t VerifyTokens) forPlatform(platform social.Platform) string {
	switch platform {
	case social.PlatformFacebook:
		return t.Facebook
	case social.PlatformInstagram:
		return t.Instagram
	case social.PlatformWhatsApp:
		return t.WhatsApp
	default:
		return ""
	}
}

// MessageQuota counts WhatsApp messages against the tenant's package
// limit. The billing quota service implements it.
type MessageQuota interface {
	RecordWhatsAppMessage(ctx context.Context, tenantID uuid.UUID) error
}

// IngestReport summarizes one webhook delivery.
type IngestReport struct {
	Platform   string `json:"platform"`
	Received   int    `json:"received"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Rejected   int    `json:"rejected"`
}

// WebhookService ingests Meta platform webhooks into the unified inbox.
// Deliveries are at-least-once, so every message is deduplicated on the
// platform's own message ID before it is stored.
type WebhookService struct {
	msgRepo   social.MessageRepository
	connRepo  social.ConnectionRepository
	quota     MessageQuota
	eventBus  shared.EventPublisher
	tokens    VerifyTokens
	appSecret string
	logger    *zap.Logger
}

// WebhookServiceConfig wires a WebhookService
type WebhookServiceConfig struct {
	MessageRepo    social.MessageRepository
	ConnectionRepo social.ConnectionRepository
	Quota          MessageQuota
	EventBus       shared.EventPublisher
	Tokens         VerifyTokens
	AppSecret      string
	Logger         *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	return &WebhookService{
		msgRepo:   cfg.MessageRepo,
		connRepo:  cfg.ConnectionRepo,
		quota:     cfg.Quota,
		eventBus:  cfg.EventBus,
		tokens:    cfg.Tokens,
		appSecret: cfg.AppSecret,
		logger:    cfg.Logger,
	}
}

// VerifySubscription answers the Meta webhook handshake. On a valid
// subscribe request it returns the challenge to echo back as plain text.
func (s *WebhookService) VerifySubscription(platform social.Platform, mode, token, challenge string) (string, error) {
	expected := s.tokens.forPlatform(platform)
	if mode != "subscribe" || expected == "" || token != expected {
		return "", shared.NewDomainError("VERIFICATION_FAILED", "Webhook verification failed")
	}
	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// app secret. A service without a configured secret accepts everything,
// which keeps local development usable.
func (s *WebhookService) VerifySignature(body []byte, header string) error {
	if s.appSecret == "" {
		return nil
	}
	if !strings.HasPrefix(header, "sha256=") {
		return shared.NewDomainError("INVALID_SIGNATURE", "Missing webhook signature")
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature mismatch")
	}
	return nil
}

// ProcessPayload parses and stores one webhook delivery. Individual
// message failures never fail the delivery: Meta retries the whole
// payload, so a hard error here would re-deliver messages that were
// already stored.
func (s *WebhookService) ProcessPayload(ctx context.Context, platform social.Platform, body []byte) (*IngestReport, error) {
	switch platform {
	case social.PlatformFacebook, social.PlatformInstagram:
		return s.processMessenger(ctx, platform, body)
	case social.PlatformWhatsApp:
		return s.processWhatsApp(ctx, body)
	default:
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown platform: "+string(platform))
	}
}

// messengerPayload is the FB/IG webhook shape: entry[].messaging[].
type messengerPayload struct {
	Object string           `json:"object"`
	Entry  []messengerEntry `json:"entry"`
}

type messengerEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging []messengerItem `json:"messaging"`
}

type messengerItem struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64             `json:"timestamp"`
	Message   *messengerMessage `json:"message"`
}

type messengerMessage struct {
	MID         string `json:"mid"`
	Text        string `json:"text"`
	IsEcho      bool   `json:"is_echo"`
	Attachments []struct {
		Type    string `json:"type"`
		Payload struct {
			URL string `json:"url"`
		} `json:"payload"`
	} `json:"attachments"`
}

func (s *WebhookService) processMessenger(ctx context.Context, platform social.Platform, body []byte) (*IngestReport, error) {
	var payload messengerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewDomainError("MALFORMED_PAYLOAD", "Webhook payload is not valid JSON")
	}

	report := &IngestReport{Platform: string(platform)}
	for _, entry := range payload.Entry {
		conn, err := s.resolveConnection(ctx, platform, entry.ID)
		if err != nil {
			report.Skipped += countMessengerMessages(entry.Messaging)
			continue
		}
		for _, item := range entry.Messaging {
			if item.Message == nil {
				continue
			}
			report.Received++
			if item.Message.IsEcho {
				// The page's own replies come back as echoes.
				report.Skipped++
				continue
			}
			dup, err := s.msgRepo.ExistsByExternalID(ctx, conn.TenantID, platform, item.Message.MID)
			if err != nil {
				s.logger.Warn("Dedup check failed", zap.Error(err))
				report.Skipped++
				continue
			}
			if dup {
				report.Duplicates++
				continue
			}

			msg, err := social.NewInboundMessage(conn.TenantID, platform, item.Message.MID,
				entry.ID, item.Sender.ID, item.Message.Text, time.UnixMilli(item.Timestamp))
			if err != nil {
				s.logger.Warn("Dropping invalid webhook message",
					zap.String("platform", string(platform)),
					zap.Error(err))
				report.Skipped++
				continue
			}
			if len(item.Message.Attachments) > 0 {
				msg.WithAttachment(item.Message.Attachments[0].Payload.URL)
			}
			s.store(ctx, msg, report)
		}
	}
	return report, nil
}

func countMessengerMessages(items []messengerItem) int {
	n := 0
	for _, item := range items {
		if item.Message != nil {
			n++
		}
	}
	return n
}

// whatsAppPayload is the Cloud API shape: entry[].changes[].value.messages[].
type whatsAppPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID      string `json:"phone_number_id"`
					DisplayPhoneNumber string `json:"display_phone_number"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
					Image *struct {
						Link string `json:"link"`
					} `json:"image"`
					Document *struct {
						Link string `json:"link"`
					} `json:"document"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (s *WebhookService) processWhatsApp(ctx context.Context, body []byte) (*IngestReport, error) {
	var payload whatsAppPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewDomainError("MALFORMED_PAYLOAD", "Webhook payload is not valid JSON")
	}

	report := &IngestReport{Platform: string(social.PlatformWhatsApp)}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			accountID := change.Value.Metadata.PhoneNumberID
			if accountID == "" || len(change.Value.Messages) == 0 {
				continue
			}
			conn, err := s.resolveConnection(ctx, social.PlatformWhatsApp, accountID)
			if err != nil {
				report.Skipped += len(change.Value.Messages)
				continue
			}

			senderNames := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				senderNames[contact.WaID] = contact.Profile.Name
			}

			for _, wa := range change.Value.Messages {
				report.Received++
				dup, err := s.msgRepo.ExistsByExternalID(ctx, conn.TenantID, social.PlatformWhatsApp, wa.ID)
				if err != nil {
					s.logger.Warn("Dedup check failed", zap.Error(err))
					report.Skipped++
					continue
				}
				if dup {
					report.Duplicates++
					continue
				}

				// Counting before storing means a tenant at its limit
				// never accumulates an invisible backlog.
				if s.quota != nil {
					if err := s.quota.RecordWhatsAppMessage(ctx, conn.TenantID); err != nil {
						s.logger.Warn("WhatsApp message rejected by quota",
							zap.String("tenant_id", conn.TenantID.String()),
							zap.Error(err))
						report.Rejected++
						continue
					}
				}

				text := ""
				if wa.Text != nil {
					text = wa.Text.Body
				}
				msg, err := social.NewInboundMessage(conn.TenantID, social.PlatformWhatsApp,
					wa.ID, accountID, wa.From, text, parseWhatsAppTimestamp(wa.Timestamp))
				if err != nil {
					s.logger.Warn("Dropping invalid WhatsApp message", zap.Error(err))
					report.Skipped++
					continue
				}
				if name, ok := senderNames[wa.From]; ok {
					msg.WithSender(name, "")
				}
				if wa.Image != nil {
					msg.WithAttachment(wa.Image.Link)
				} else if wa.Document != nil {
					msg.WithAttachment(wa.Document.Link)
				}
				s.store(ctx, msg, report)
			}
		}
	}
	return report, nil
}

// parseWhatsAppTimestamp reads the Cloud API's unix-seconds string.
func parseWhatsAppTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(secs, 0)
}

// resolveConnection maps a platform account to the owning tenant.
func (s *WebhookService) resolveConnection(ctx context.Context, platform social.Platform, accountID string) (*social.Connection, error) {
	conn, err := s.connRepo.FindByAccount(ctx, platform, accountID)
	if err != nil {
		if err == shared.ErrNotFound {
			s.logger.Debug("Webhook for unconnected account",
				zap.String("platform", string(platform)),
				zap.String("account_id", accountID))
		} else {
			s.logger.Warn("Connection lookup failed", zap.Error(err))
		}
		return nil, err
	}
	if !conn.IsActive {
		return nil, shared.ErrNotFound
	}
	return conn, nil
}

func (s *WebhookService) store(ctx context.Context, msg *social.Message, report *IngestReport) {
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		s.logger.Error("Failed to store inbound message",
			zap.String("platform", string(msg.Platform)),
			zap.String("external_id", msg.ExternalID),
			zap.Error(err))
		report.Skipped++
		return
	}
	report.Stored++

	events := msg.PullDomainEvents()
	if s.eventBus != nil && len(events) > 0 {
		if err := s.eventBus.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish message events", zap.Error(err))
		}
	}
}
