package kafka

import (
	"context"
	"fmt"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/kafka"

	"github.com/wms-platform/batching-service/internal/domain"
)

// EventPublisher implements domain.EventPublisher using Kafka
type EventPublisher struct {
	producer     kafka.EventProducer
	eventFactory *cloudevents.EventFactory
	topic        string
}

// NewEventPublisher creates a new Kafka-based event publisher
func NewEventPublisher(producer kafka.EventProducer, eventFactory *cloudevents.EventFactory, topic string) *EventPublisher {
	return &EventPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
	}
}

// Publish publishes a single domain event to Kafka
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	ce := p.eventFactory.CreateEvent(ctx, event.EventType(), event.Subject(), event)

	if err := p.producer.PublishEvent(ctx, p.topic, ce); err != nil {
		return fmt.Errorf("failed to publish event to kafka: %w", err)
	}
	return nil
}

// PublishAll publishes events in order, stopping at the first failure
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
