package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/echodesk/backend/internal/infrastructure/telemetry"
)

// BusinessMetricsHandler feeds domain events into the business metrics
// counters. It subscribes to terminal call states, ingested social messages
// and payment outcomes.
type BusinessMetricsHandler struct {
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

// NewBusinessMetricsHandler creates a new BusinessMetricsHandler.
func NewBusinessMetricsHandler(metrics *telemetry.BusinessMetrics, logger *zap.Logger) *BusinessMetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusinessMetricsHandler{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler subscribes to.
func (h *BusinessMetricsHandler) EventTypes() []string {
	return []string{
		crm.EventTypeCallEnded,
		social.EventTypeMessageReceived,
		billing.EventTypePaymentOrderPaid,
		billing.EventTypePaymentOrderFailed,
	}
}

// Handle records the metric matching the event. Unknown event types are
// ignored so new subscriptions cannot break delivery.
func (h *BusinessMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.metrics == nil {
		return nil
	}

	switch e := event.(type) {
	case *crm.CallEndedEvent:
		h.metrics.RecordCall(ctx, e.TenantID(), string(e.Direction), string(e.Status), int64(e.DurationSeconds))
	case *social.MessageReceivedEvent:
		h.metrics.RecordSocialMessage(ctx, e.TenantID(), string(e.Platform), "inbound")
	case *billing.PaymentOrderPaidEvent:
		h.metrics.RecordPayment(ctx, e.TenantID(), "bog", telemetry.PaymentStatusSuccess)
	case *billing.PaymentOrderFailedEvent:
		h.metrics.RecordPayment(ctx, e.TenantID(), "bog", telemetry.PaymentStatusFailed)
	default:
		h.logger.Debug("Unhandled event type for business metrics",
			zap.String("event_type", event.EventType()))
	}
	return nil
}
