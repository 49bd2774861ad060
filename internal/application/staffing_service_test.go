package application

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/batching-service/pkg/logging"

	"github.com/wms-platform/batching-service/internal/domain"
)

func newStaffingService(repo domain.FloorRepository) *StaffingApplicationService {
	return NewStaffingApplicationService(repo, domain.DefaultAllocationPolicy(), &fixedClock{now: testNow}, nil, logging.NewNop())
}

func TestStaffingService_AddAndListEmployees(t *testing.T) {
	ctx := context.Background()
	svc := newStaffingService(newFakeFloorRepo())

	dto, err := svc.AddEmployee(ctx, AddEmployeeCommand{Employee: newEmployee("E-1", 45, 2, 10)})
	require.NoError(t, err)
	assert.Equal(t, "high", dto.Tier)
	assert.InDelta(t, 0.2, dto.LoadFraction, 1e-9)

	_, err = svc.AddEmployee(ctx, AddEmployeeCommand{Employee: newEmployee("E-1", 45, 0, 10)})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appStatus(t, err))

	_, err = svc.AddEmployee(ctx, AddEmployeeCommand{Employee: newEmployee("E-2", 20, 11, 10)})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))

	employees, err := svc.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "E-1", employees[0].ID)
}

func TestStaffingService_ReplaceEmployees(t *testing.T) {
	ctx := context.Background()
	svc := newStaffingService(newFakeFloorRepo())

	roster, err := svc.ReplaceEmployees(ctx, ReplaceEmployeesCommand{Employees: []domain.Employee{
		newEmployee("E-1", 45, 0, 10),
		newEmployee("E-2", 32, 0, 10),
		newEmployee("E-3", 12, 0, 10),
	}})
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, []string{"high", "regular", "junior"}, []string{roster[0].Tier, roster[1].Tier, roster[2].Tier})

	_, err = svc.ReplaceEmployees(ctx, ReplaceEmployeesCommand{Employees: []domain.Employee{
		newEmployee("E-1", 45, 0, 10),
		newEmployee("E-1", 45, 0, 10),
	}})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appStatus(t, err))
}

func TestStaffingService_SetEmployeeStatus(t *testing.T) {
	ctx := context.Background()
	repo := newFakeFloorRepo()
	svc := newStaffingService(repo)
	_, err := svc.AddEmployee(ctx, AddEmployeeCommand{Employee: newEmployee("E-1", 45, 0, 10)})
	require.NoError(t, err)

	dto, err := svc.SetEmployeeStatus(ctx, SetEmployeeStatusCommand{EmployeeID: "E-1", Status: "break", Actor: "lead"})
	require.NoError(t, err)
	assert.Equal(t, "break", dto.Status)
	assert.Equal(t, []string{"wms.employee.status-changed"}, repo.eventTypes())

	_, err = svc.SetEmployeeStatus(ctx, SetEmployeeStatusCommand{EmployeeID: "E-1", Status: "asleep"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))

	_, err = svc.SetEmployeeStatus(ctx, SetEmployeeStatusCommand{EmployeeID: "E-9", Status: "active"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestStaffingService_AutoAllocate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeFloorRepo()
	svc := newStaffingService(repo)
	batching := NewBatchingApplicationService(repo, nil, &fixedClock{now: testNow}, nil, logging.NewNop())

	_, err := svc.ReplaceEmployees(ctx, ReplaceEmployeesCommand{Employees: []domain.Employee{
		newEmployee("E-high", 45, 0, 10),
		newEmployee("E-junior", 12, 0, 10),
	}})
	require.NoError(t, err)
	_, err = batching.ReplaceOrders(ctx, ReplaceOrdersCommand{Orders: []domain.Order{
		newOrder("O-1", domain.PriorityP1, testNow.Add(time.Hour), item("S1", "A1")),
		newOrder("O-2", domain.PriorityP4, testNow.Add(time.Hour), item("S2", "A2")),
	}})
	require.NoError(t, err)

	result, err := svc.AutoAllocate(ctx, AllocateCommand{Actor: "lead"})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, AssignmentDTO{OrderID: "O-1", EmployeeID: "E-high", Priority: "P1", Tier: "high"}, result.Assignments[0])
	assert.Equal(t, "E-junior", result.Assignments[1].EmployeeID)
	assert.Empty(t, result.Unassigned)

	floor, err := repo.Load(ctx)
	require.NoError(t, err)
	o, err := floor.Order("O-1")
	require.NoError(t, err)
	assert.Equal(t, "E-high", o.AssignedEmployeeID)
	assert.Equal(t, domain.OrderStatusProcessing, o.Status)
	assert.Equal(t, []string{"wms.order.assigned", "wms.order.assigned"}, repo.eventTypes())
}

func TestStaffingService_AutoAllocateLeavesP1WithoutHighTier(t *testing.T) {
	ctx := context.Background()
	repo := newFakeFloorRepo()
	svc := newStaffingService(repo)
	batching := NewBatchingApplicationService(repo, nil, &fixedClock{now: testNow}, nil, logging.NewNop())

	_, err := svc.ReplaceEmployees(ctx, ReplaceEmployeesCommand{Employees: []domain.Employee{newEmployee("E-1", 31, 0, 10)}})
	require.NoError(t, err)
	_, err = batching.AddOrder(ctx, AddOrderCommand{Order: newOrder("O-1", domain.PriorityP1, testNow.Add(time.Hour), item("S1", "A1"))})
	require.NoError(t, err)

	result, err := svc.AutoAllocate(ctx, AllocateCommand{})
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
	assert.Equal(t, []string{"O-1"}, result.Unassigned)
}
