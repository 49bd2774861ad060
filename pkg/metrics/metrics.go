package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Outbox metrics
	OutboxPending   prometheus.Gauge
	OutboxPublished *prometheus.CounterVec

	// Batching metrics
	BatchesPlanned        *prometheus.CounterVec
	BatchTransitions      *prometheus.CounterVec
	BatchProcessingTime   prometheus.Histogram
	BatchActive           prometheus.Gauge
	OrdersAssigned        *prometheus.CounterVec
	OrdersUnassigned      *prometheus.CounterVec
	SLAAlertsRaised       prometheus.Counter
	SLAChecksTotal        prometheus.Counter
	BatchWorkflowsStarted prometheus.Counter
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates and registers all collectors on a private registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	svc := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: svc,
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.MongoDBOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "mongodb_operations_total",
		Help:      "Total number of MongoDB operations",
	}, []string{"service", "collection", "operation", "status"})

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "mongodb_operation_duration_seconds",
		Help:      "MongoDB operation duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "collection", "operation"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	m.CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	}, []string{"service", "name"})

	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_events_pending",
		Help:        "Unpublished outbox events seen by the last relay poll",
		ConstLabels: svc,
	})

	m.OutboxPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "outbox_events_published_total",
		Help:      "Outbox relay attempts, by event type and outcome",
	}, []string{"service", "event_type", "status"})

	m.BatchesPlanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "batches_planned_total",
		Help:      "Batches produced by the classifier, by principle",
	}, []string{"service", "principle"})

	m.BatchTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "batch_transitions_total",
		Help:      "Batch lifecycle transitions, by target status and outcome",
	}, []string{"service", "status", "outcome"})

	m.BatchProcessingTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "batch_processing_minutes",
		Help:        "Minutes between batch start and completion",
		Buckets:     []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		ConstLabels: svc,
	})

	m.BatchActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "batch_active",
		Help:        "1 while a batch is being picked",
		ConstLabels: svc,
	})

	m.OrdersAssigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "orders_assigned_total",
		Help:      "Orders assigned by the allocation engine, by priority and tier",
	}, []string{"service", "priority", "tier"})

	m.OrdersUnassigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "orders_unassigned_total",
		Help:      "Orders left pending by an allocation run, by priority",
	}, []string{"service", "priority"})

	m.SLAAlertsRaised = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sla_alerts_raised_total",
		Help:        "Urgent SLA alerts raised",
		ConstLabels: svc,
	})

	m.SLAChecksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "sla_checks_total",
		Help:        "SLA monitor ticks executed",
		ConstLabels: svc,
	})

	m.BatchWorkflowsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "batch_workflows_started_total",
		Help:        "Batch picking workflows dispatched to Temporal",
		ConstLabels: svc,
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.OutboxPending,
		m.OutboxPublished,
		m.BatchesPlanned,
		m.BatchTransitions,
		m.BatchProcessingTime,
		m.BatchActive,
		m.OrdersAssigned,
		m.OrdersUnassigned,
		m.SLAAlertsRaised,
		m.SLAChecksTotal,
		m.BatchWorkflowsStarted,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, outcome(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// SetOutboxPending sets the number of unpublished outbox events
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxPublish records one outbox relay attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, outcome(success)).Inc()
}

// RecordBatchPlanned records one classifier output batch
func (m *Metrics) RecordBatchPlanned(principle string) {
	m.BatchesPlanned.WithLabelValues(m.serviceName, principle).Inc()
}

// RecordBatchStarted records a start attempt
func (m *Metrics) RecordBatchStarted(success bool) {
	m.BatchTransitions.WithLabelValues(m.serviceName, "processing", outcome(success)).Inc()
	if success {
		m.BatchActive.Set(1)
	}
}

// RecordBatchCompleted records a completion attempt
func (m *Metrics) RecordBatchCompleted(success bool, processingMinutes int) {
	m.BatchTransitions.WithLabelValues(m.serviceName, "completed", outcome(success)).Inc()
	if success {
		m.BatchActive.Set(0)
		m.BatchProcessingTime.Observe(float64(processingMinutes))
	}
}

// RecordOrderAssigned records an allocation
func (m *Metrics) RecordOrderAssigned(priority, tier string) {
	m.OrdersAssigned.WithLabelValues(m.serviceName, priority, tier).Inc()
}

// RecordOrderUnassigned records an order the allocator could not place
func (m *Metrics) RecordOrderUnassigned(priority string) {
	m.OrdersUnassigned.WithLabelValues(m.serviceName, priority).Inc()
}

// RecordSLACheck records one monitor tick and the alerts it raised
func (m *Metrics) RecordSLACheck(alerts int) {
	m.SLAChecksTotal.Inc()
	m.SLAAlertsRaised.Add(float64(alerts))
}

// RecordBatchWorkflowStarted records a Temporal dispatch
func (m *Metrics) RecordBatchWorkflowStarted() {
	m.BatchWorkflowsStarted.Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
