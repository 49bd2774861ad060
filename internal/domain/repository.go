package domain

import "context"

// FloorRepository defines the interface for floor persistence
type FloorRepository interface {
	// Load returns a snapshot of the floor for reads
	Load(ctx context.Context) (*Floor, error)

	// Update applies fn to the floor as one atomic transaction. If fn returns
	// an error nothing is persisted. On success the domain events raised by fn
	// are handed to the event outbox and the committed floor is returned.
	Update(ctx context.Context, fn func(*Floor) error) (*Floor, error)

	// HealthCheck reports whether the store is reachable
	HealthCheck(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish publishes a single domain event
	Publish(ctx context.Context, event DomainEvent) error

	// PublishAll publishes multiple domain events
	PublishAll(ctx context.Context, events []DomainEvent) error
}
