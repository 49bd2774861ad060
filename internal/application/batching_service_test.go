package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"

	"github.com/wms-platform/batching-service/internal/domain"
)

func newBatchingService(repo domain.FloorRepository, clock Clock) *BatchingApplicationService {
	n := 0
	classifier := domain.NewClassifier(domain.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("B-%d", n)
	}))
	return NewBatchingApplicationService(repo, classifier, clock, metrics.New(metrics.DefaultConfig("batching-test")), logging.NewNop())
}

func seedOrders(t *testing.T, svc *BatchingApplicationService, orders ...domain.Order) {
	t.Helper()
	_, err := svc.ReplaceOrders(context.Background(), ReplaceOrdersCommand{Orders: orders})
	require.NoError(t, err)
}

func TestBatchingService_AddOrder(t *testing.T) {
	ctx := context.Background()
	repo := newFakeFloorRepo()
	svc := newBatchingService(repo, &fixedClock{now: testNow})

	dto, err := svc.AddOrder(ctx, AddOrderCommand{Order: newOrder("O-1", domain.PriorityP2, testNow.Add(time.Hour), item("S1", "A1"))})
	require.NoError(t, err)
	assert.Equal(t, "O-1", dto.ID)
	assert.Equal(t, "pending", dto.Status)

	t.Run("duplicate is a conflict", func(t *testing.T) {
		_, err := svc.AddOrder(ctx, AddOrderCommand{Order: newOrder("O-1", domain.PriorityP2, testNow, item("S1", "A1"))})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, appStatus(t, err))
	})

	t.Run("order without items is invalid", func(t *testing.T) {
		_, err := svc.AddOrder(ctx, AddOrderCommand{Order: newOrder("O-2", domain.PriorityP2, testNow)})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
	})

	floor, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, floor.Orders, 1)
	assert.Equal(t, 1, floor.PendingOrders)
}

func TestBatchingService_ListOrders(t *testing.T) {
	ctx := context.Background()
	svc := newBatchingService(newFakeFloorRepo(), &fixedClock{now: testNow})
	seedOrders(t, svc,
		newOrder("O-1", domain.PriorityP1, testNow.Add(time.Hour), item("S1", "A1")),
		newOrder("O-2", domain.PriorityP3, testNow.Add(time.Hour), item("S2", "A2")),
	)

	all, err := svc.ListOrders(ctx, ListOrdersQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.ListOrders(ctx, ListOrdersQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.ListOrders(ctx, ListOrdersQuery{Status: "lost"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
}

func TestBatchingService_PlanStartComplete(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: testNow}
	repo := newFakeFloorRepo()
	svc := newBatchingService(repo, clock)
	seedOrders(t, svc,
		newOrder("O-1", domain.PriorityP1, testNow.Add(time.Hour), item("S1", "A1"), item("S2", "A2")),
		newOrder("O-2", domain.PriorityP3, testNow.Add(time.Hour), item("S3", "B1")),
	)

	plan, err := svc.PlanBatches(ctx, PlanBatchesCommand{Actor: "lead"})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 2)
	assert.Equal(t, 2, plan.PendingCount)
	assert.Equal(t, "P1_FIRST", plan.Batches[0].Principle)
	assert.Equal(t, "SINGLE_PRODUCT", plan.Batches[1].Principle)
	assert.Equal(t, []string{"A1", "A2"}, plan.Batches[0].Locations)

	first := plan.Batches[0].ID
	started, err := svc.StartBatch(ctx, StartBatchCommand{BatchID: first, Actor: "lead"})
	require.NoError(t, err)
	assert.Equal(t, "processing", started.Status)
	require.NotNil(t, started.StartTime)

	highlights, err := svc.GetHighlights(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, highlights.BatchID)
	assert.Equal(t, []string{"A1", "A2"}, highlights.Locations)

	_, err = svc.StartBatch(ctx, StartBatchCommand{BatchID: plan.Batches[1].ID, Actor: "lead"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appStatus(t, err))

	clock.Advance(12*time.Minute + 40*time.Second)
	completed, err := svc.CompleteBatch(ctx, CompleteBatchCommand{BatchID: first, Actor: "lead"})
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	assert.Equal(t, 13, completed.ProcessingTimeMinutes)

	summary, err := svc.GetFloorSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingOrders)
	assert.Equal(t, 1, summary.CompletedOrders)
	assert.Equal(t, 1, summary.OpenBatches)
	assert.Nil(t, summary.ActiveBatch)
	assert.Empty(t, summary.HighlightedLocations)

	assert.Equal(t, []string{
		"wms.batch.planned", "wms.batch.planned", "wms.batch.started", "wms.batch.completed",
	}, repo.eventTypes())

	alerts, err := svc.GetAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "success", alerts[0].Type)
}

func TestBatchingService_CompleteRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	svc := newBatchingService(newFakeFloorRepo(), &fixedClock{now: testNow})
	seedOrders(t, svc, newOrder("O-1", domain.PriorityP3, testNow.Add(time.Hour), item("S1", "A1")))

	plan, err := svc.PlanBatches(ctx, PlanBatchesCommand{})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 1)

	_, err = svc.CompleteBatch(ctx, CompleteBatchCommand{BatchID: plan.Batches[0].ID})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appStatus(t, err))

	_, err = svc.StartBatch(ctx, StartBatchCommand{BatchID: "missing"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestBatchingService_EmptyPlanRaisesInfoAlert(t *testing.T) {
	ctx := context.Background()
	svc := newBatchingService(newFakeFloorRepo(), &fixedClock{now: testNow})

	plan, err := svc.PlanBatches(ctx, PlanBatchesCommand{})
	require.NoError(t, err)
	assert.Empty(t, plan.Batches)
	assert.Equal(t, 0, plan.PendingCount)

	alerts, err := svc.GetAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "info", alerts[0].Type)
}

func TestBatchingService_ListBatchesAndGetBatch(t *testing.T) {
	ctx := context.Background()
	svc := newBatchingService(newFakeFloorRepo(), &fixedClock{now: testNow})
	seedOrders(t, svc,
		newOrder("O-1", domain.PriorityP1, testNow.Add(time.Hour), item("S1", "A1")),
		newOrder("O-2", domain.PriorityP3, testNow.Add(time.Hour), item("S2", "A2")),
	)
	plan, err := svc.PlanBatches(ctx, PlanBatchesCommand{})
	require.NoError(t, err)
	_, err = svc.StartBatch(ctx, StartBatchCommand{BatchID: plan.Batches[0].ID})
	require.NoError(t, err)

	pending, err := svc.ListBatches(ctx, ListBatchesQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.ListBatches(ctx, ListBatchesQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListBatches(ctx, ListBatchesQuery{Status: "paused"})
	require.Error(t, err)

	got, err := svc.GetBatch(ctx, GetBatchQuery{BatchID: plan.Batches[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status)
	assert.Equal(t, 1, got.OrderCount)

	_, err = svc.GetBatch(ctx, GetBatchQuery{BatchID: "missing"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestBatchingService_GetActivityLimit(t *testing.T) {
	ctx := context.Background()
	svc := newBatchingService(newFakeFloorRepo(), &fixedClock{now: testNow})
	for _, id := range []string{"O-1", "O-2", "O-3"} {
		_, err := svc.AddOrder(ctx, AddOrderCommand{Order: newOrder(id, domain.PriorityP4, testNow.Add(time.Hour), item("S1", "A1"))})
		require.NoError(t, err)
	}

	entries, err := svc.GetActivity(ctx, GetActivityQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Action, "O-3")

	entries, err = svc.GetActivity(ctx, GetActivityQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestBatchingService_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeFloorRepo()
	repo.loadErr = errors.New("connection refused")
	repo.updateFn = func(context.Context, func(*domain.Floor) error) (*domain.Floor, error) {
		return nil, errors.New("connection refused")
	}
	svc := newBatchingService(repo, &fixedClock{now: testNow})

	_, err := svc.GetFloorSummary(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appStatus(t, err))

	_, err = svc.PlanBatches(ctx, PlanBatchesCommand{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appStatus(t, err))
}
