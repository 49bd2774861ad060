package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	apperrors "github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/middleware"
	"github.com/wms-platform/batching-service/pkg/temporal"

	"github.com/wms-platform/batching-service/internal/application"
	"github.com/wms-platform/batching-service/internal/domain"
	"github.com/wms-platform/batching-service/internal/workflows"
)

// actorHeader names the user performing an action
const actorHeader = "X-User-ID"

// workflowClient is the part of the Temporal client the API uses
type workflowClient interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
}

// services groups what the routes need
type services struct {
	batching    *application.BatchingApplicationService
	staffing    *application.StaffingApplicationService
	sla         *application.SLAMonitor
	workflows   workflowClient // nil when Temporal is disabled
	pickTimeout time.Duration
	logger      *logging.Logger
}

func registerRoutes(router *gin.Engine, s *services) {
	api := router.Group("/api/v1")
	{
		orders := api.Group("/orders")
		{
			orders.GET("", listOrdersHandler(s.batching, s.logger))
			orders.POST("", addOrderHandler(s.batching, s.logger))
			orders.PUT("", replaceOrdersHandler(s.batching, s.logger))
		}

		batches := api.Group("/batches")
		{
			batches.POST("/plan", planBatchesHandler(s.batching, s.logger))
			batches.GET("", listBatchesHandler(s.batching, s.logger))
			batches.GET("/:batchId", getBatchHandler(s.batching, s.logger))
			batches.POST("/:batchId/start", startBatchHandler(s.batching, s.logger))
			batches.POST("/:batchId/complete", completeBatchHandler(s.batching, s.logger))
			batches.POST("/:batchId/dispatch", dispatchBatchHandler(s.batching, s.workflows, s.pickTimeout, s.logger))
			batches.POST("/:batchId/picked", batchPickedHandler(s.workflows, s.logger))
		}

		employees := api.Group("/employees")
		{
			employees.GET("", listEmployeesHandler(s.staffing, s.logger))
			employees.POST("", addEmployeeHandler(s.staffing, s.logger))
			employees.PUT("", replaceEmployeesHandler(s.staffing, s.logger))
			employees.PATCH("/:employeeId/status", setEmployeeStatusHandler(s.staffing, s.logger))
		}

		api.POST("/allocation", allocateHandler(s.staffing, s.logger))
		api.GET("/alerts", alertsHandler(s.batching, s.logger))
		api.GET("/activity", activityHandler(s.batching, s.logger))
		api.GET("/floor", floorSummaryHandler(s.batching, s.logger))
		api.GET("/floor/highlights", highlightsHandler(s.batching, s.logger))

		sla := api.Group("/sla")
		{
			sla.GET("/status", slaStatusHandler(s.sla))
			sla.POST("/start", slaStartHandler(s.sla, s.logger))
			sla.POST("/stop", slaStopHandler(s.sla, s.logger))
			sla.POST("/check", slaCheckHandler(s.sla, s.logger))
		}
	}
}

func actor(c *gin.Context) string {
	if user := c.GetHeader(actorHeader); user != "" {
		return user
	}
	return domain.SystemUser
}

// Request bodies

type orderItemRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name"`
	Location string `json:"location" binding:"required,location_id"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type orderRequest struct {
	ID          string             `json:"id" binding:"required"`
	Priority    string             `json:"priority" binding:"required,priority"`
	Items       []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	Deadline    time.Time          `json:"deadline" binding:"required"`
	Channel     string             `json:"channel"`
	Transporter string             `json:"transporter"`
}

func (r orderRequest) toDomain() domain.Order {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItem{SKU: item.SKU, Name: item.Name, Location: item.Location, Quantity: item.Quantity}
	}
	return domain.Order{
		ID:          r.ID,
		Priority:    domain.Priority(r.Priority),
		Status:      domain.OrderStatusPending,
		Items:       items,
		Deadline:    r.Deadline,
		Channel:     r.Channel,
		Transporter: r.Transporter,
	}
}

type replaceOrdersRequest struct {
	Orders []orderRequest `json:"orders" binding:"dive"`
}

type employeeRequest struct {
	ID              string  `json:"id" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	EfficiencyScore float64 `json:"efficiencyScore" binding:"gte=0"`
	Status          string  `json:"status" binding:"omitempty,employee_status"`
	CurrentOrders   int     `json:"currentOrders" binding:"gte=0"`
	MaxLoad         int     `json:"maxLoad" binding:"required,gt=0"`
}

func (r employeeRequest) toDomain() domain.Employee {
	status := domain.EmployeeStatus(r.Status)
	if status == "" {
		status = domain.EmployeeStatusActive
	}
	return domain.Employee{
		ID:              r.ID,
		Name:            r.Name,
		EfficiencyScore: r.EfficiencyScore,
		Status:          status,
		CurrentOrders:   r.CurrentOrders,
		MaxLoad:         r.MaxLoad,
	}
}

type replaceEmployeesRequest struct {
	Employees []employeeRequest `json:"employees" binding:"dive"`
}

type employeeStatusRequest struct {
	Status string `json:"status" binding:"required,employee_status"`
}

// Orders

func listOrdersHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		orders, err := service.ListOrders(c.Request.Context(), application.ListOrdersQuery{Status: c.Query("status")})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

func addOrderHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req orderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":       req.ID,
			"order.priority": req.Priority,
		})

		order, err := service.AddOrder(c.Request.Context(), application.AddOrderCommand{Order: req.toDomain()})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

func replaceOrdersHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req replaceOrdersRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ReplaceOrdersCommand{Orders: make([]domain.Order, len(req.Orders))}
		for i, o := range req.Orders {
			cmd.Orders[i] = o.toDomain()
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.count": len(cmd.Orders),
		})

		orders, err := service.ReplaceOrders(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

// Batches

func planBatchesHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		result, err := service.PlanBatches(c.Request.Context(), application.PlanBatchesCommand{Actor: actor(c)})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.count": len(result.Batches),
		})
		c.JSON(http.StatusOK, result)
	}
}

func listBatchesHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batches, err := service.ListBatches(c.Request.Context(), application.ListBatchesQuery{Status: c.Query("status")})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, batches)
	}
}

func getBatchHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetBatchQuery{BatchID: c.Param("batchId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": query.BatchID,
		})

		batch, err := service.GetBatch(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

func startBatchHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.StartBatchCommand{BatchID: c.Param("batchId"), Actor: actor(c)}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": cmd.BatchID,
		})

		batch, err := service.StartBatch(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

func completeBatchHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.CompleteBatchCommand{BatchID: c.Param("batchId"), Actor: actor(c)}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": cmd.BatchID,
		})

		batch, err := service.CompleteBatch(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

// dispatchBatchHandler hands a pending batch to the picking workflow
func dispatchBatchHandler(service *application.BatchingApplicationService, wf workflowClient, pickTimeout time.Duration, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		if wf == nil {
			responder.RespondServiceUnavailable("workflow engine")
			return
		}

		batchID := c.Param("batchId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": batchID,
		})

		batch, err := service.GetBatch(c.Request.Context(), application.GetBatchQuery{BatchID: batchID})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		if batch.Status != string(domain.BatchStatusPending) {
			responder.RespondWithError(domain.ErrBatchNotPending)
			return
		}

		workflowID := workflows.WorkflowID(batchID)
		run, err := wf.StartWorkflow(c.Request.Context(), workflowID, temporal.TaskQueues.Batching, temporal.WorkflowNames.BatchPicking,
			workflows.BatchPickingInput{BatchID: batchID, Actor: actor(c), PickTimeout: pickTimeout})
		if err != nil {
			var started *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(err, &started) {
				responder.RespondWithAppError(apperrors.ErrConflict("batch " + batchID + " is already dispatched"))
				return
			}
			responder.RespondWithAppError(apperrors.ErrServiceUnavailable("workflow engine").Wrap(err))
			return
		}

		logger.WorkflowStart(c.Request.Context(), temporal.WorkflowNames.BatchPicking, workflowID)
		c.JSON(http.StatusAccepted, gin.H{
			"batchId":    batchID,
			"workflowId": run.GetID(),
			"runId":      run.GetRunID(),
		})
	}
}

// batchPickedHandler signals the picking workflow that the floor finished a batch
func batchPickedHandler(wf workflowClient, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		if wf == nil {
			responder.RespondServiceUnavailable("workflow engine")
			return
		}

		batchID := c.Param("batchId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": batchID,
		})

		err := wf.SignalWorkflow(c.Request.Context(), workflows.WorkflowID(batchID), "", workflows.BatchPickedSignal,
			workflows.BatchPicked{PickedBy: actor(c)})
		if err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				responder.RespondWithAppError(apperrors.ErrNotFoundWithID("picking workflow for batch", batchID))
				return
			}
			responder.RespondWithAppError(apperrors.ErrServiceUnavailable("workflow engine").Wrap(err))
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"batchId": batchID, "signal": workflows.BatchPickedSignal})
	}
}

// Staff

func listEmployeesHandler(service *application.StaffingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		employees, err := service.ListEmployees(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, employees)
	}
}

func addEmployeeHandler(service *application.StaffingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req employeeRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		employee, err := service.AddEmployee(c.Request.Context(), application.AddEmployeeCommand{Employee: req.toDomain()})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, employee)
	}
}

func replaceEmployeesHandler(service *application.StaffingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req replaceEmployeesRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ReplaceEmployeesCommand{Employees: make([]domain.Employee, len(req.Employees))}
		for i, e := range req.Employees {
			cmd.Employees[i] = e.toDomain()
		}

		employees, err := service.ReplaceEmployees(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, employees)
	}
}

func setEmployeeStatusHandler(service *application.StaffingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req employeeStatusRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.SetEmployeeStatusCommand{
			EmployeeID: c.Param("employeeId"),
			Status:     req.Status,
			Actor:      actor(c),
		}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"employee.id":     cmd.EmployeeID,
			"employee.status": cmd.Status,
		})

		employee, err := service.SetEmployeeStatus(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, employee)
	}
}

func allocateHandler(service *application.StaffingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		result, err := service.AutoAllocate(c.Request.Context(), application.AllocateCommand{Actor: actor(c)})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// Floor

func alertsHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		alerts, err := service.GetAlerts(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, alerts)
	}
}

func activityHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetActivityQuery{}
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				responder.RespondBadRequest("limit must be a non-negative integer")
				return
			}
			query.Limit = limit
		}

		entries, err := service.GetActivity(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, entries)
	}
}

func floorSummaryHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		summary, err := service.GetFloorSummary(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

func highlightsHandler(service *application.BatchingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		highlights, err := service.GetHighlights(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, highlights)
	}
}

// SLA monitor

func slaStatusHandler(monitor *application.SLAMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, monitor.Status())
	}
}

func slaStartHandler(monitor *application.SLAMonitor, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitor.IsRunning() {
			c.JSON(http.StatusOK, gin.H{"message": "SLA monitor already running"})
			return
		}
		// The monitor outlives the request.
		if err := monitor.Start(context.WithoutCancel(c.Request.Context())); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(apperrors.ErrConflict(err.Error()))
			return
		}
		logger.Info("SLA monitor started via API")
		c.JSON(http.StatusOK, gin.H{"message": "SLA monitor started"})
	}
}

func slaStopHandler(monitor *application.SLAMonitor, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !monitor.IsRunning() {
			c.JSON(http.StatusOK, gin.H{"message": "SLA monitor already stopped"})
			return
		}
		monitor.Stop()
		logger.Info("SLA monitor stopped via API")
		c.JSON(http.StatusOK, gin.H{"message": "SLA monitor stopped"})
	}
}

func slaCheckHandler(monitor *application.SLAMonitor, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		result, err := monitor.CheckNow(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
