package cloudevents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/batching-service/pkg/logging"
)

// EventFactory creates CloudEvents for a fixed source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent wraps data in a new envelope. The correlation id is taken from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if ctx != nil {
		if id, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
			event.CorrelationID = id
		}
	}
	if strings.HasPrefix(subject, "batch/") {
		event.BatchID = strings.TrimPrefix(subject, "batch/")
	}

	return event
}
