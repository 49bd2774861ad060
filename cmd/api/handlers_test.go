package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
	"github.com/wms-platform/batching-service/pkg/middleware"

	"github.com/wms-platform/batching-service/internal/application"
	"github.com/wms-platform/batching-service/internal/domain"
	"github.com/wms-platform/batching-service/internal/infrastructure/memory"
	"github.com/wms-platform/batching-service/internal/workflows"
)

type stubWorkflowClient struct {
	StartWorkflowFn  func(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflowFn func(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
}

func (s *stubWorkflowClient) StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
	if s.StartWorkflowFn != nil {
		return s.StartWorkflowFn(ctx, workflowID, taskQueue, workflowName, args...)
	}
	return nil, nil
}

func (s *stubWorkflowClient) SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
	if s.SignalWorkflowFn != nil {
		return s.SignalWorkflowFn(ctx, workflowID, runID, signalName, arg)
	}
	return nil
}

type testServer struct {
	router *gin.Engine
	sla    *application.SLAMonitor
}

func newTestServer(t *testing.T, wf workflowClient) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()
	m := metrics.New(metrics.DefaultConfig("batching-api-test"))
	repo := memory.NewFloorRepository(nil, logger)
	policy := application.DefaultPolicy()

	sla := application.NewSLAMonitor(repo, nil, policy.SLA, m, logger)
	t.Cleanup(func() {
		if sla.IsRunning() {
			sla.Stop()
		}
	})

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("batching-api-test", logger.Logger))
	registerRoutes(router, &services{
		batching:    application.NewBatchingApplicationService(repo, nil, nil, m, logger),
		staffing:    application.NewStaffingApplicationService(repo, policy.Allocation, nil, m, logger),
		sla:         sla,
		workflows:   wf,
		pickTimeout: time.Hour,
		logger:      logger,
	})
	return &testServer{router: router, sla: sla}
}

func requestJSON(t *testing.T, router *gin.Engine, method, path string, payload any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func orderPayload(id, priority string, deadline time.Time, location string) map[string]any {
	return map[string]any{
		"id":       id,
		"priority": priority,
		"deadline": deadline.Format(time.RFC3339),
		"channel":  "web",
		"items": []map[string]any{
			{"sku": "SKU-" + id, "name": "Item " + id, "location": location, "quantity": 1},
		},
	}
}

// planOne seeds a single order and plans it, returning the batch id.
func planOne(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := requestJSON(t, router, http.MethodPost, "/api/v1/orders", orderPayload("O-1", "P1", time.Now().Add(2*time.Hour), "A12"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = requestJSON(t, router, http.MethodPost, "/api/v1/batches/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[application.PlanResultDTO](t, rec)
	require.Len(t, plan.Batches, 1)
	return plan.Batches[0].ID
}

func TestOrderHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("create", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-1", "P2", time.Now().Add(time.Hour), "B-02"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		order := decode[application.OrderDTO](t, rec)
		assert.Equal(t, "O-1", order.ID)
		assert.Equal(t, "pending", order.Status)
	})

	t.Run("duplicate", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-1", "P2", time.Now().Add(time.Hour), "B-02"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad priority", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-2", "P9", time.Now().Add(time.Hour), "A1"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[middleware.APIErrorResponse](t, rec)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.NotEmpty(t, resp.Details)
	})

	t.Run("bad location", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-2", "P2", time.Now().Add(time.Hour), "A 1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("replace", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPut, "/api/v1/orders", map[string]any{
			"orders": []map[string]any{
				orderPayload("O-10", "P1", time.Now().Add(time.Hour), "A1"),
				orderPayload("O-11", "P4", time.Now().Add(time.Hour), "C3"),
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode[[]application.OrderDTO](t, rec), 2)

		rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/orders?status=pending", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]application.OrderDTO](t, rec), 2)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodGet, "/api/v1/orders?status=lost", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBatchLifecycleHandlers(t *testing.T) {
	srv := newTestServer(t, nil)
	batchID := planOne(t, srv.router)

	rec := requestJSON(t, srv.router, http.MethodGet, "/api/v1/batches/"+batchID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decode[application.BatchDTO](t, rec).Status)

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "a pending batch cannot be completed")

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/start", nil, actorHeader, "picker-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decode[application.BatchDTO](t, rec).Status)

	rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/floor/highlights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	highlights := decode[application.HighlightsDTO](t, rec)
	assert.Equal(t, batchID, highlights.BatchID)
	assert.Equal(t, []string{"A12"}, highlights.Locations)

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/complete", nil, actorHeader, "picker-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[application.BatchDTO](t, rec).Status)

	rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/floor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[application.FloorSummaryDTO](t, rec)
	assert.Equal(t, 1, summary.CompletedOrders)
	assert.Nil(t, summary.ActiveBatch)

	rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/activity?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	activity := decode[[]application.ActivityDTO](t, rec)
	require.Len(t, activity, 2)
	assert.Equal(t, "picker-1", activity[0].User)

	rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]application.AlertDTO](t, rec))

	t.Run("unknown batch", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodGet, "/api/v1/batches/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad activity limit", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodGet, "/api/v1/activity?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDispatchHandler(t *testing.T) {
	t.Run("workflow engine disabled", func(t *testing.T) {
		srv := newTestServer(t, nil)
		batchID := planOne(t, srv.router)

		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/dispatch", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("starts the picking workflow", func(t *testing.T) {
		var gotID, gotName string
		var gotInput workflows.BatchPickingInput
		wf := &stubWorkflowClient{
			StartWorkflowFn: func(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
				gotID, gotName = workflowID, workflowName
				gotInput = args[0].(workflows.BatchPickingInput)
				run := &mocks.WorkflowRun{}
				run.On("GetID").Return(workflowID)
				run.On("GetRunID").Return("run-1")
				return run, nil
			},
		}
		srv := newTestServer(t, wf)
		batchID := planOne(t, srv.router)

		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/dispatch", nil, actorHeader, "lead-3")
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		body := decode[map[string]string](t, rec)
		assert.Equal(t, workflows.WorkflowID(batchID), body["workflowId"])
		assert.Equal(t, "run-1", body["runId"])
		assert.Equal(t, workflows.WorkflowID(batchID), gotID)
		assert.Equal(t, "BatchPickingWorkflow", gotName)
		assert.Equal(t, workflows.BatchPickingInput{BatchID: batchID, Actor: "lead-3", PickTimeout: time.Hour}, gotInput)
	})

	t.Run("already dispatched", func(t *testing.T) {
		wf := &stubWorkflowClient{
			StartWorkflowFn: func(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
				return nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "run-0")
			},
		}
		srv := newTestServer(t, wf)
		batchID := planOne(t, srv.router)

		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/dispatch", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("batch not pending", func(t *testing.T) {
		wf := &stubWorkflowClient{
			StartWorkflowFn: func(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
				t.Fatal("workflow must not start")
				return nil, nil
			},
		}
		srv := newTestServer(t, wf)
		batchID := planOne(t, srv.router)
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/start", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/"+batchID+"/dispatch", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestBatchPickedHandler(t *testing.T) {
	t.Run("signals the workflow", func(t *testing.T) {
		var gotSignal string
		var gotArg workflows.BatchPicked
		wf := &stubWorkflowClient{
			SignalWorkflowFn: func(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
				assert.Equal(t, workflows.WorkflowID("B-1"), workflowID)
				gotSignal = signalName
				gotArg = arg.(workflows.BatchPicked)
				return nil
			},
		}
		srv := newTestServer(t, wf)

		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/B-1/picked", nil, actorHeader, "picker-7")
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, workflows.BatchPickedSignal, gotSignal)
		assert.Equal(t, "picker-7", gotArg.PickedBy)
	})

	t.Run("no running workflow", func(t *testing.T) {
		wf := &stubWorkflowClient{
			SignalWorkflowFn: func(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
				return serviceerror.NewNotFound("workflow not found")
			},
		}
		srv := newTestServer(t, wf)

		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/batches/B-1/picked", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEmployeeHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := requestJSON(t, srv.router, http.MethodPut, "/api/v1/employees", map[string]any{
		"employees": []map[string]any{
			{"id": "E-1", "name": "Ada", "efficiencyScore": 45, "maxLoad": 5},
			{"id": "E-2", "name": "Bo", "efficiencyScore": 20, "maxLoad": 5},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	employees := decode[[]application.EmployeeDTO](t, rec)
	require.Len(t, employees, 2)
	assert.Equal(t, "high", employees[0].Tier)
	assert.Equal(t, "active", employees[0].Status)

	t.Run("invalid status", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPatch, "/api/v1/employees/E-1/status", map[string]string{"status": "asleep"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown employee", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPatch, "/api/v1/employees/E-9/status", map[string]string{"status": "break"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("break", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPatch, "/api/v1/employees/E-2/status", map[string]string{"status": "break"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "break", decode[application.EmployeeDTO](t, rec).Status)
	})

	t.Run("allocation", func(t *testing.T) {
		rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-1", "P1", time.Now().Add(time.Hour), "A1"))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/allocation", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[application.AllocationResultDTO](t, rec)
		require.Len(t, result.Assignments, 1)
		assert.Equal(t, "E-1", result.Assignments[0].EmployeeID)
	})
}

func TestSLAHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := requestJSON(t, srv.router, http.MethodPost, "/api/v1/orders", orderPayload("O-1", "P1", time.Now().Add(10*time.Minute), "A1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/sla/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[application.SLACheckDTO](t, rec)
	require.Len(t, check.Alerts, 1)
	assert.Equal(t, "O-1", check.Alerts[0].OrderID)
	assert.Equal(t, string(domain.AlertTypeUrgent), check.Alerts[0].Type)

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/sla/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.sla.IsRunning())

	rec = requestJSON(t, srv.router, http.MethodGet, "/api/v1/sla/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[application.SLAStatusDTO](t, rec)
	assert.True(t, status.Running)
	assert.Equal(t, "30m0s", status.Threshold)

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/sla/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.sla.IsRunning())

	rec = requestJSON(t, srv.router, http.MethodPost, "/api/v1/sla/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
