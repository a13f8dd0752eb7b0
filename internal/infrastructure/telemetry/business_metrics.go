// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the CRM backend.
// It tracks call activity, social message volume, payment outcomes and
// per-tenant subscription health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	callTotal          *Counter
	callSecondsTotal   *Counter
	socialMessageTotal *Counter
	paymentTotal       *Counter

	// Gauge metrics (point-in-time values)
	subscriptionSeatsUsed *Gauge
	storageUsedGB         *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	subscriptionProvider SubscriptionMetricsProvider
}

// SubscriptionMetricsProvider provides subscription data for periodic metrics
// collection. This interface allows the telemetry layer to query subscription
// state without depending on the billing domain directly.
type SubscriptionMetricsProvider interface {
	// GetSeatUsage returns the number of seats currently in use for a tenant
	GetSeatUsage(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetStorageUsedGB returns the storage used by a tenant in gigabytes
	GetStorageUsedGB(ctx context.Context, tenantID uuid.UUID) (float64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter                metric.Meter
	Logger               *zap.Logger
	CollectInterval      time.Duration // Default: 5 minutes
	SubscriptionProvider SubscriptionMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:                cfg.Meter,
		logger:               logger,
		stopChan:             make(chan struct{}),
		subscriptionProvider: cfg.SubscriptionProvider,
	}

	var err error
	counter := func(name, desc, unit string) *Counter {
		if err != nil {
			return nil
		}
		var c *Counter
		c, err = NewCounter(cfg.Meter, name, desc, unit)
		return c
	}

	bm.callTotal = counter("echodesk_call_total", "Total number of calls logged", "{calls}")
	bm.callSecondsTotal = counter("echodesk_call_seconds_total", "Total talk time in seconds", "s")
	bm.socialMessageTotal = counter("echodesk_social_message_total", "Total number of social messages processed", "{messages}")
	bm.paymentTotal = counter("echodesk_payment_total", "Total number of payment transactions", "{payments}")
	if err != nil {
		return nil, err
	}

	bm.subscriptionSeatsUsed, err = NewGauge(
		cfg.Meter,
		"echodesk_subscription_seats_used",
		"Seats currently in use per tenant",
		"{seats}",
	)
	if err != nil {
		return nil, err
	}

	bm.storageUsedGB, err = NewFloatGauge(
		cfg.Meter,
		"echodesk_storage_used_gb",
		"Recording storage used per tenant",
		"GBy",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Call Metrics
// =============================================================================

// RecordCall records a finished call.
// This should be called from the application layer when a call reaches a
// terminal state.
func (bm *BusinessMetrics) RecordCall(ctx context.Context, tenantID uuid.UUID, direction, status string, durationSeconds int64) {
	bm.callTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCallDirection.String(direction),
		AttrCallStatus.String(status),
	)
	if durationSeconds > 0 {
		bm.callSecondsTotal.Add(ctx, durationSeconds,
			AttrTenantID.String(tenantID.String()),
			AttrCallDirection.String(direction),
		)
	}
}

// =============================================================================
// Social Inbox Metrics
// =============================================================================

// RecordSocialMessage records an ingested or sent social message.
func (bm *BusinessMetrics) RecordSocialMessage(ctx context.Context, tenantID uuid.UUID, platform, direction string) {
	bm.socialMessageTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrCallDirection.String(direction),
	)
}

// =============================================================================
// Payment Metrics
// =============================================================================

// PaymentStatus represents the outcome of a payment for metrics labeling.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// RecordPayment records a payment transaction.
// This should be called when a payment callback is processed.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, paymentMethod string, status PaymentStatus) {
	bm.paymentTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(string(status)),
	)
}

// =============================================================================
// Subscription Metrics
// =============================================================================

// RecordSeatUsage records the seats currently in use for a tenant.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordSeatUsage(ctx context.Context, tenantID uuid.UUID, seats int64) {
	bm.subscriptionSeatsUsed.Record(ctx, seats,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordStorageUsed records the recording storage used by a tenant.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordStorageUsed(ctx context.Context, tenantID uuid.UUID, usedGB float64) {
	bm.storageUsedGB.Record(ctx, usedGB,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects subscription metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectSubscriptionMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectSubscriptionMetrics(ctx, tenantProvider)
		}
	}
}

// collectSubscriptionMetrics collects subscription gauge metrics for all tenants.
func (bm *BusinessMetrics) collectSubscriptionMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.subscriptionProvider == nil {
		bm.logger.Debug("No subscription provider configured, skipping subscription metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantSubscriptionMetrics(ctx, tenantID)
	}
}

// collectTenantSubscriptionMetrics collects subscription metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantSubscriptionMetrics(ctx context.Context, tenantID uuid.UUID) {
	seats, err := bm.subscriptionProvider.GetSeatUsage(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get seat usage for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordSeatUsage(ctx, tenantID, seats)
	}

	usedGB, err := bm.subscriptionProvider.GetStorageUsedGB(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get storage usage for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordStorageUsed(ctx, tenantID, usedGB)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
