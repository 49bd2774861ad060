package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/batching-service/pkg/cloudevents"

	"github.com/wms-platform/batching-service/internal/domain"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func TestEventPublisher_Publish(t *testing.T) {
	producer := new(mockProducer)
	publisher := NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceBatching), "wms.batches.events")

	producer.On("PublishEvent", mock.Anything, "wms.batches.events", mock.MatchedBy(func(ce *cloudevents.WMSCloudEvent) bool {
		return ce.Type == cloudevents.BatchStarted && ce.Subject == "batch/B-1" && ce.BatchID == "B-1"
	})).Return(nil).Once()

	err := publisher.Publish(context.Background(), &domain.BatchStartedEvent{BatchID: "B-1", StartedAt: time.Now()})

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestEventPublisher_PublishAll_StopsOnError(t *testing.T) {
	producer := new(mockProducer)
	publisher := NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceBatching), "topic")

	producer.On("PublishEvent", mock.Anything, "topic", mock.Anything).Return(errors.New("broker down")).Once()

	err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
		&domain.OrderAssignedEvent{OrderID: "O1", EmployeeID: "E1"},
		&domain.OrderAssignedEvent{OrderID: "O2", EmployeeID: "E1"},
	})

	assert.ErrorContains(t, err, "broker down")
	producer.AssertNumberOfCalls(t, "PublishEvent", 1)
}
