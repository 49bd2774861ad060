package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
	"github.com/wms-platform/batching-service/pkg/resilience"
)

// EventProducer is anything that can put a CloudEvent on a topic
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// InstrumentedProducer wraps a producer with metrics and tracing
type InstrumentedProducer struct {
	producer EventProducer
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer EventProducer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes inside a producer span and records the outcome
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
			attribute.String("messaging.kafka.event_type", event.Type),
			attribute.String("messaging.message_id", event.ID),
		),
	)
	defer span.End()

	if event.BatchID != "" {
		span.SetAttributes(attribute.String("wms.batch_id", event.BatchID))
	}

	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)
	success := err == nil

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// CircuitBreakerProducer rejects publishes fast while Kafka is failing
type CircuitBreakerProducer struct {
	producer EventProducer
	breaker  *resilience.CircuitBreaker
}

// NewCircuitBreakerProducer wraps producer with a breaker named kafka-producer
func NewCircuitBreakerProducer(producer EventProducer, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	config := resilience.DefaultCircuitBreakerConfig("kafka-producer")
	config.MaxRequests = 5

	var listeners []resilience.StateListener
	if m != nil {
		listeners = append(listeners, func(name string, state int) {
			m.SetCircuitBreakerState(name, state)
			if state == 2 {
				m.RecordCircuitBreakerTrip(name)
			}
		})
	}

	if logger == nil {
		logger = logging.NewNop()
	}

	return &CircuitBreakerProducer{
		producer: producer,
		breaker:  resilience.NewCircuitBreaker(config, logger.Logger, listeners...),
	}
}

// PublishEvent publishes through the breaker
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	return p.breaker.Execute(ctx, func() error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
}

// NewProductionProducer builds producer -> instrumentation -> circuit breaker
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) (*CircuitBreakerProducer, *Producer) {
	base := NewProducer(config)
	return NewCircuitBreakerProducer(NewInstrumentedProducer(base, m, logger), m, logger), base
}
