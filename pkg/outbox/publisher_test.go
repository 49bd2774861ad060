package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	return m.Called(ctx, events).Error(0)
}

func (m *mockRepository) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*OutboxEvent)
	return events, args.Error(1)
}

func (m *mockRepository) MarkPublished(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	return m.Called(ctx, eventID, errorMsg).Error(0)
}

type stubProducer struct {
	published []string
	failType  string
}

func (p *stubProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	if event.Type == p.failType {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, topic+":"+event.Type)
	return nil
}

func newEvent(t *testing.T, eventType string) *OutboxEvent {
	t.Helper()
	ce := cloudevents.NewEventFactory(cloudevents.SourceBatching).CreateEvent(context.Background(), eventType, "batch/B-1", map[string]string{"batchId": "B-1"})
	event, err := NewOutboxEventFromCloudEvent("floor", "Floor", "wms.batches.events", ce)
	require.NoError(t, err)
	return event
}

func TestPublisher_ProcessOnce(t *testing.T) {
	ctx := context.Background()
	started := newEvent(t, cloudevents.BatchStarted)
	completed := newEvent(t, cloudevents.BatchCompleted)

	repo := &mockRepository{}
	repo.On("FindUnpublished", ctx, 10).Return([]*OutboxEvent{started, completed}, nil)
	repo.On("MarkPublished", ctx, started.ID).Return(nil)
	repo.On("IncrementRetry", ctx, completed.ID, mock.AnythingOfType("string")).Return(nil)

	producer := &stubProducer{failType: cloudevents.BatchCompleted}
	publisher := NewPublisher(repo, producer, logging.NewNop(), metrics.New(metrics.DefaultConfig("outbox-test")), &PublisherConfig{BatchSize: 10})

	publisher.ProcessOnce(ctx)

	repo.AssertExpectations(t)
	assert.Equal(t, []string{"wms.batches.events:wms.batch.started"}, producer.published)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, publisher.Stats())
}

func TestPublisher_FindFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	repo.On("FindUnpublished", ctx, 100).Return(nil, errors.New("mongo down"))

	publisher := NewPublisher(repo, &stubProducer{}, logging.NewNop(), nil, nil)
	publisher.ProcessOnce(ctx)

	repo.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything)
	assert.Equal(t, 0, publisher.Stats()["published"])
}

func TestPublisher_StartStop(t *testing.T) {
	repo := &mockRepository{}
	repo.On("FindUnpublished", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	publisher := NewPublisher(repo, &stubProducer{}, logging.NewNop(), nil, nil)

	require.NoError(t, publisher.Start(context.Background()))
	assert.True(t, publisher.IsRunning())
	assert.Error(t, publisher.Start(context.Background()))

	require.NoError(t, publisher.Stop())
	assert.False(t, publisher.IsRunning())
	assert.Error(t, publisher.Stop())
}

func TestOutboxEvent_RoundTrip(t *testing.T) {
	event := newEvent(t, cloudevents.BatchPlanned)
	assert.Equal(t, cloudevents.BatchPlanned, event.EventType)
	assert.True(t, event.ShouldRetry())

	ce, err := event.ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, "B-1", ce.BatchID)
	assert.Equal(t, cloudevents.SourceBatching, ce.Source)

	event.RetryCount = DefaultMaxRetries
	assert.False(t, event.ShouldRetry())
}
