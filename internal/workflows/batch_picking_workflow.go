package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	pkgtemporal "github.com/wms-platform/batching-service/pkg/temporal"
)

// BatchPickedSignal is the signal sent when the floor reports a batch picked
const BatchPickedSignal = "batchPicked"

// DefaultPickTimeout bounds the wait for the picked signal
const DefaultPickTimeout = 2 * time.Hour

// BatchPickingInput is the input of BatchPickingWorkflow
type BatchPickingInput struct {
	BatchID     string        `json:"batchId"`
	Actor       string        `json:"actor"`
	PickTimeout time.Duration `json:"pickTimeout"`
}

// BatchPicked is the payload of the picked signal
type BatchPicked struct {
	PickedBy string `json:"pickedBy"`
}

// BatchPickingResult is the result of BatchPickingWorkflow
type BatchPickingResult struct {
	BatchID               string `json:"batchId"`
	Status                string `json:"status"`
	ProcessingTimeMinutes int    `json:"processingTimeMinutes"`
	CompletedBy           string `json:"completedBy"`
}

// batchActivityInput mirrors activities.BatchInput
type batchActivityInput struct {
	BatchID string `json:"batchId"`
	Actor   string `json:"actor"`
}

// batchActivityResult holds the fields of the returned batch the workflow reads
type batchActivityResult struct {
	ID                    string `json:"id"`
	Status                string `json:"status"`
	ProcessingTimeMinutes int    `json:"processingTimeMinutes"`
}

// BatchPickingWorkflow starts a batch, waits for the picked signal and
// completes it. If the signal does not arrive within the pick timeout the
// batch is left processing and the workflow fails.
func BatchPickingWorkflow(ctx workflow.Context, input BatchPickingInput) (*BatchPickingResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting batch picking workflow", "batchId", input.BatchID)

	timeout := input.PickTimeout
	if timeout <= 0 {
		timeout = DefaultPickTimeout
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         pkgtemporal.DefaultRetryPolicy(),
	})

	var started batchActivityResult
	err := workflow.ExecuteActivity(ctx, "StartBatch", batchActivityInput{
		BatchID: input.BatchID,
		Actor:   input.Actor,
	}).Get(ctx, &started)
	if err != nil {
		return nil, fmt.Errorf("failed to start batch %s: %w", input.BatchID, err)
	}

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	var picked BatchPicked
	received := false
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, BatchPickedSignal), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &picked)
		received = true
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, timeout), func(f workflow.Future) {
		logger.Warn("Batch pick timeout", "batchId", input.BatchID, "timeout", timeout)
	})
	selector.Select(ctx)

	if !received {
		return nil, fmt.Errorf("batch %s was not picked within %s", input.BatchID, timeout)
	}
	cancelTimer()

	actor := picked.PickedBy
	if actor == "" {
		actor = input.Actor
	}

	var completed batchActivityResult
	err = workflow.ExecuteActivity(ctx, "CompleteBatch", batchActivityInput{
		BatchID: input.BatchID,
		Actor:   actor,
	}).Get(ctx, &completed)
	if err != nil {
		return nil, fmt.Errorf("failed to complete batch %s: %w", input.BatchID, err)
	}

	logger.Info("Batch picking workflow completed", "batchId", input.BatchID, "minutes", completed.ProcessingTimeMinutes)
	return &BatchPickingResult{
		BatchID:               completed.ID,
		Status:                completed.Status,
		ProcessingTimeMinutes: completed.ProcessingTimeMinutes,
		CompletedBy:           actor,
	}, nil
}

// WorkflowID returns the workflow id for a batch
func WorkflowID(batchID string) string {
	return "batch-picking-" + batchID
}
