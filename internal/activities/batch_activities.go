package activities

import (
	"context"
	"net/http"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/pkg/logging"
	pkgtemporal "github.com/wms-platform/batching-service/pkg/temporal"

	"github.com/wms-platform/batching-service/internal/application"
)

// BatchInput identifies the batch an activity acts on
type BatchInput struct {
	BatchID string `json:"batchId"`
	Actor   string `json:"actor"`
}

// BatchActivities drives the batch lifecycle from the picking workflow
type BatchActivities struct {
	service *application.BatchingApplicationService
	logger  *logging.Logger
}

// NewBatchActivities creates a new BatchActivities instance
func NewBatchActivities(service *application.BatchingApplicationService, logger *logging.Logger) *BatchActivities {
	return &BatchActivities{
		service: service,
		logger:  logger.WithComponent("batch-activities"),
	}
}

// StartBatch sends the batch to the floor. A retry after a start that
// already went through returns the processing batch.
func (a *BatchActivities) StartBatch(ctx context.Context, input BatchInput) (*application.BatchDTO, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting batch", "batchId", input.BatchID)

	batch, err := a.service.StartBatch(ctx, application.StartBatchCommand{BatchID: input.BatchID, Actor: input.Actor})
	if err == nil {
		return batch, nil
	}
	if existing := a.alreadyIn(ctx, input.BatchID, "processing", err); existing != nil {
		logger.Info("Batch already started", "batchId", input.BatchID)
		return existing, nil
	}
	return nil, toActivityError(err)
}

// CompleteBatch finishes the processing batch. A retry after a completion
// that already went through returns the completed batch.
func (a *BatchActivities) CompleteBatch(ctx context.Context, input BatchInput) (*application.BatchDTO, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Completing batch", "batchId", input.BatchID)

	batch, err := a.service.CompleteBatch(ctx, application.CompleteBatchCommand{BatchID: input.BatchID, Actor: input.Actor})
	if err == nil {
		return batch, nil
	}
	if existing := a.alreadyIn(ctx, input.BatchID, "completed", err); existing != nil {
		logger.Info("Batch already completed", "batchId", input.BatchID)
		return existing, nil
	}
	return nil, toActivityError(err)
}

func (a *BatchActivities) alreadyIn(ctx context.Context, batchID, status string, err error) *application.BatchDTO {
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.HTTPStatus != http.StatusConflict {
		return nil
	}
	batch, getErr := a.service.GetBatch(ctx, application.GetBatchQuery{BatchID: batchID})
	if getErr != nil || batch.Status != status {
		return nil
	}
	return batch
}

// toActivityError tags conflicts and missing batches so the retry policy stops
func toActivityError(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err
	}
	switch appErr.HTTPStatus {
	case http.StatusConflict:
		return temporal.NewApplicationError(appErr.Message, pkgtemporal.NonRetryableConflict, err)
	case http.StatusNotFound:
		return temporal.NewApplicationError(appErr.Message, pkgtemporal.NonRetryableNotFound, err)
	}
	return err
}
