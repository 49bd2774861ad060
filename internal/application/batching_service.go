package application

import (
	"context"
	"time"

	"github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
	"github.com/wms-platform/batching-service/pkg/tracing"

	"github.com/wms-platform/batching-service/internal/domain"
)

const tracerName = "batching-service"

// BatchingApplicationService handles order intake, batch planning and the batch lifecycle
type BatchingApplicationService struct {
	repo       domain.FloorRepository
	classifier *domain.Classifier
	clock      Clock
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewBatchingApplicationService creates a new BatchingApplicationService
func NewBatchingApplicationService(
	repo domain.FloorRepository,
	classifier *domain.Classifier,
	clock Clock,
	m *metrics.Metrics,
	logger *logging.Logger,
) *BatchingApplicationService {
	if classifier == nil {
		classifier = domain.NewClassifier()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BatchingApplicationService{
		repo:       repo,
		classifier: classifier,
		clock:      clock,
		metrics:    m,
		logger:     logger,
	}
}

// AddOrder accepts one order into the pending order book
func (s *BatchingApplicationService) AddOrder(ctx context.Context, cmd AddOrderCommand) (*OrderDTO, error) {
	var added *domain.Order
	_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		if err := f.AddOrder(&cmd.Order, s.clock.Now()); err != nil {
			return err
		}
		added, _ = f.Order(cmd.Order.ID)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to add order", "orderId", cmd.Order.ID)
		return nil, errors.MapDomainError(err)
	}

	s.logger.Info("Added order", "orderId", added.ID, "priority", added.Priority, "items", len(added.Items))
	dto := ToOrderDTO(added)
	return &dto, nil
}

// ReplaceOrders replaces the pending order book
func (s *BatchingApplicationService) ReplaceOrders(ctx context.Context, cmd ReplaceOrdersCommand) ([]OrderDTO, error) {
	orders := make([]*domain.Order, len(cmd.Orders))
	for i := range cmd.Orders {
		orders[i] = &cmd.Orders[i]
	}

	floor, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		return f.ReplacePendingOrders(orders, s.clock.Now())
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to replace orders", "count", len(orders))
		return nil, errors.MapDomainError(err)
	}

	s.logger.Info("Replaced pending orders", "count", len(orders), "open", floor.PendingOrders)
	return ToOrderDTOs(floor.Orders), nil
}

// ListOrders lists orders, optionally filtered by status
func (s *BatchingApplicationService) ListOrders(ctx context.Context, query ListOrdersQuery) ([]OrderDTO, error) {
	if query.Status != "" && !validOrderStatus(query.Status) {
		return nil, errors.ErrValidation("unknown order status: " + query.Status)
	}

	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(floor.Orders))
	for _, o := range floor.Orders {
		if query.Status == "" || string(o.Status) == query.Status {
			orders = append(orders, o)
		}
	}
	return ToOrderDTOs(orders), nil
}

// PlanBatches discards the batches that have not started and re-classifies pending orders
func (s *BatchingApplicationService) PlanBatches(ctx context.Context, cmd PlanBatchesCommand) (*PlanResultDTO, error) {
	start := time.Now()
	var planned []*domain.Batch
	floor, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		planned = f.PlanBatches(s.classifier, cmd.Actor, s.clock.Now())
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to plan batches")
		return nil, errors.MapDomainError(err)
	}

	for _, b := range planned {
		if s.metrics != nil {
			s.metrics.RecordBatchPlanned(string(b.Principle))
		}
	}
	s.logger.Performance(ctx, "plan_batches", time.Since(start), true, map[string]any{
		"batches": len(planned),
		"pending": floor.PendingOrders,
	})

	return &PlanResultDTO{
		Batches:      ToBatchDTOs(planned),
		PendingCount: floor.PendingOrders,
	}, nil
}

// StartBatch sends a pending batch to the floor
func (s *BatchingApplicationService) StartBatch(ctx context.Context, cmd StartBatchCommand) (*BatchDTO, error) {
	var started *domain.Batch
	err := tracing.TracedVoidOperation(ctx, tracerName, "batching.StartBatch", func(ctx context.Context) error {
		_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
			var err error
			started, err = f.StartBatch(cmd.BatchID, cmd.Actor, s.clock.Now())
			return err
		})
		return err
	}, tracing.BatchSpanAttributes(cmd.BatchID, "start")...)

	if s.metrics != nil {
		s.metrics.RecordBatchStarted(err == nil)
	}
	if err != nil {
		s.logger.WithError(err).Warn("Failed to start batch", "batchId", cmd.BatchID)
		return nil, errors.MapDomainError(err)
	}

	s.logger.Audit(ctx, "start", "batch", started.ID, cmd.Actor, map[string]any{
		"orders":    len(started.OrderIDs),
		"locations": started.Locations,
	})
	return ToBatchDTO(started), nil
}

// CompleteBatch finishes the processing batch
func (s *BatchingApplicationService) CompleteBatch(ctx context.Context, cmd CompleteBatchCommand) (*BatchDTO, error) {
	var completed *domain.Batch
	err := tracing.TracedVoidOperation(ctx, tracerName, "batching.CompleteBatch", func(ctx context.Context) error {
		_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
			var err error
			completed, err = f.CompleteBatch(cmd.BatchID, cmd.Actor, s.clock.Now())
			return err
		})
		return err
	}, tracing.BatchSpanAttributes(cmd.BatchID, "complete")...)

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordBatchCompleted(false, 0)
		}
		s.logger.WithError(err).Warn("Failed to complete batch", "batchId", cmd.BatchID)
		return nil, errors.MapDomainError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordBatchCompleted(true, completed.ProcessingTimeMinutes)
	}
	s.logger.Audit(ctx, "complete", "batch", completed.ID, cmd.Actor, map[string]any{
		"orders":                len(completed.OrderIDs),
		"processingTimeMinutes": completed.ProcessingTimeMinutes,
	})
	return ToBatchDTO(completed), nil
}

// GetBatch retrieves a batch by ID
func (s *BatchingApplicationService) GetBatch(ctx context.Context, query GetBatchQuery) (*BatchDTO, error) {
	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := floor.Batch(query.BatchID)
	if err != nil {
		return nil, errors.ErrNotFoundWithID("batch", query.BatchID)
	}
	return ToBatchDTO(batch), nil
}

// ListBatches lists batches, optionally filtered by status
func (s *BatchingApplicationService) ListBatches(ctx context.Context, query ListBatchesQuery) ([]BatchDTO, error) {
	switch domain.BatchStatus(query.Status) {
	case "", domain.BatchStatusPending, domain.BatchStatusProcessing, domain.BatchStatusCompleted:
	default:
		return nil, errors.ErrValidation("unknown batch status: " + query.Status)
	}

	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	batches := make([]*domain.Batch, 0, len(floor.Batches))
	for _, b := range floor.Batches {
		if query.Status == "" || string(b.Status) == query.Status {
			batches = append(batches, b)
		}
	}
	return ToBatchDTOs(batches), nil
}

// GetAlerts returns the retained alerts, newest first
func (s *BatchingApplicationService) GetAlerts(ctx context.Context) ([]AlertDTO, error) {
	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ToAlertDTOs(floor.Alerts), nil
}

// GetActivity returns the activity log, newest first
func (s *BatchingApplicationService) GetActivity(ctx context.Context, query GetActivityQuery) ([]ActivityDTO, error) {
	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	entries := floor.Activity
	if query.Limit > 0 && len(entries) > query.Limit {
		entries = entries[:query.Limit]
	}
	return ToActivityDTOs(entries), nil
}

// GetHighlights returns the locations of the processing batch
func (s *BatchingApplicationService) GetHighlights(ctx context.Context) (*HighlightsDTO, error) {
	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	dto := &HighlightsDTO{Locations: append([]string{}, floor.HighlightedLocations...)}
	if floor.ActiveBatchID != nil {
		dto.BatchID = *floor.ActiveBatchID
	}
	return dto, nil
}

// GetFloorSummary returns the dashboard summary
func (s *BatchingApplicationService) GetFloorSummary(ctx context.Context) (*FloorSummaryDTO, error) {
	floor, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ToFloorSummaryDTO(floor), nil
}

func (s *BatchingApplicationService) load(ctx context.Context) (*domain.Floor, error) {
	floor, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load floor")
		return nil, errors.MapDomainError(err)
	}
	return floor, nil
}

func validOrderStatus(status string) bool {
	switch domain.OrderStatus(status) {
	case domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusCompleted:
		return true
	}
	return false
}
