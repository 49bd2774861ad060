package outbox

import "context"

// Repository defines outbox persistence
type Repository interface {
	// SaveAll stores events; called inside the aggregate's transaction
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns the oldest undelivered events that may still be retried
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished marks an event as delivered
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry records a failed delivery attempt
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
}
