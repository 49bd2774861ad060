package application

import (
	"context"

	"github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"

	"github.com/wms-platform/batching-service/internal/domain"
)

// StaffingApplicationService handles the roster and order allocation
type StaffingApplicationService struct {
	repo    domain.FloorRepository
	policy  domain.AllocationPolicy
	clock   Clock
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewStaffingApplicationService creates a new StaffingApplicationService
func NewStaffingApplicationService(
	repo domain.FloorRepository,
	policy domain.AllocationPolicy,
	clock Clock,
	m *metrics.Metrics,
	logger *logging.Logger,
) *StaffingApplicationService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StaffingApplicationService{
		repo:    repo,
		policy:  policy,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// AddEmployee provisions one employee
func (s *StaffingApplicationService) AddEmployee(ctx context.Context, cmd AddEmployeeCommand) (*EmployeeDTO, error) {
	_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		return f.AddEmployee(&cmd.Employee, s.clock.Now())
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to add employee", "employeeId", cmd.Employee.ID)
		return nil, errors.MapDomainError(err)
	}

	s.logger.Info("Added employee", "employeeId", cmd.Employee.ID)
	dto := ToEmployeeDTO(&cmd.Employee, s.policy)
	return &dto, nil
}

// ReplaceEmployees replaces the roster
func (s *StaffingApplicationService) ReplaceEmployees(ctx context.Context, cmd ReplaceEmployeesCommand) ([]EmployeeDTO, error) {
	employees := make([]*domain.Employee, len(cmd.Employees))
	for i := range cmd.Employees {
		employees[i] = &cmd.Employees[i]
	}

	floor, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		return f.ReplaceEmployees(employees, s.clock.Now())
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to replace employees", "count", len(employees))
		return nil, errors.MapDomainError(err)
	}

	s.logger.Info("Replaced roster", "count", len(employees))
	return ToEmployeeDTOs(floor.Employees, s.policy), nil
}

// SetEmployeeStatus moves an employee on or off shift
func (s *StaffingApplicationService) SetEmployeeStatus(ctx context.Context, cmd SetEmployeeStatusCommand) (*EmployeeDTO, error) {
	var updated *domain.Employee
	_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		if err := f.SetEmployeeStatus(cmd.EmployeeID, domain.EmployeeStatus(cmd.Status), cmd.Actor, s.clock.Now()); err != nil {
			return err
		}
		updated, _ = f.Employee(cmd.EmployeeID)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to set employee status", "employeeId", cmd.EmployeeID, "status", cmd.Status)
		return nil, errors.MapDomainError(err)
	}

	s.logger.Audit(ctx, "set_status", "employee", cmd.EmployeeID, cmd.Actor, map[string]any{"status": cmd.Status})
	dto := ToEmployeeDTO(updated, s.policy)
	return &dto, nil
}

// ListEmployees lists the roster
func (s *StaffingApplicationService) ListEmployees(ctx context.Context) ([]EmployeeDTO, error) {
	floor, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load floor")
		return nil, errors.MapDomainError(err)
	}
	return ToEmployeeDTOs(floor.Employees, s.policy), nil
}

// AutoAllocate assigns pending orders to active employees
func (s *StaffingApplicationService) AutoAllocate(ctx context.Context, cmd AllocateCommand) (*AllocationResultDTO, error) {
	var result domain.AllocationResult
	priorities := make(map[string]domain.Priority)
	_, err := s.repo.Update(ctx, func(f *domain.Floor) error {
		result = f.Allocate(s.policy, cmd.Actor, s.clock.Now())
		for _, o := range result.Orders {
			priorities[o.ID] = o.Priority
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to allocate orders")
		return nil, errors.MapDomainError(err)
	}

	if s.metrics != nil {
		for _, a := range result.Assignments {
			s.metrics.RecordOrderAssigned(string(a.Priority), string(a.Tier))
		}
		for _, id := range result.Unassigned {
			s.metrics.RecordOrderUnassigned(string(priorities[id]))
		}
	}
	s.logger.Event(ctx, "orders_allocated", map[string]any{
		"assigned":   len(result.Assignments),
		"unassigned": len(result.Unassigned),
	})
	return ToAllocationResultDTO(result, s.policy), nil
}
