package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a handler has already seen,
// so webhook retries and at-least-once delivery do not double-process.
type IdempotencyStore interface {
	// MarkProcessed records the event ID with a TTL. It reports true on
	// first sight and false when the ID was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event ID is currently recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// IdempotencyConfig controls duplicate suppression. Once the TTL passes,
// a replayed event ID is treated as new again.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig enables suppression with a 24 hour window,
// comfortably longer than any platform's webhook retry schedule.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
