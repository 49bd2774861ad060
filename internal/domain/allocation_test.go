package domain

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignmentsByOrder(result AllocationResult) map[string]string {
	out := make(map[string]string, len(result.Assignments))
	for _, a := range result.Assignments {
		out[a.OrderID] = a.EmployeeID
	}
	return out
}

func TestAutoAllocate(t *testing.T) {
	tests := []struct {
		name       string
		orders     []*Order
		employees  []*Employee
		expected   map[string]string
		unassigned []string
	}{
		{
			name:      "P1 skips high tier employee at headroom limit",
			orders:    []*Order{createTestOrder("O1", PriorityP1, item{"S1", "A1"})},
			employees: []*Employee{createTestEmployee("E1", 50, 8, 10), createTestEmployee("E2", 45, 2, 10)},
			expected:  map[string]string{"O1": "E2"},
		},
		{
			name:      "P1 prefers the most efficient high tier employee",
			orders:    []*Order{createTestOrder("O1", PriorityP1, item{"S1", "A1"})},
			employees: []*Employee{createTestEmployee("E1", 45, 0, 10), createTestEmployee("E2", 50, 5, 10)},
			expected:  map[string]string{"O1": "E2"},
		},
		{
			name:       "P1 never goes to regular tier",
			orders:     []*Order{createTestOrder("O1", PriorityP1, item{"S1", "A1"})},
			employees:  []*Employee{createTestEmployee("E1", 50, 8, 10), createTestEmployee("E2", 39.9, 0, 10)},
			expected:   map[string]string{},
			unassigned: []string{"O1"},
		},
		{
			name:      "P2 falls back to regular tier",
			orders:    []*Order{createTestOrder("O1", PriorityP2, item{"S1", "A1"})},
			employees: []*Employee{createTestEmployee("E1", 50, 8, 10), createTestEmployee("E2", 30, 0, 10)},
			expected:  map[string]string{"O1": "E2"},
		},
		{
			name:       "P2 never goes to junior tier",
			orders:     []*Order{createTestOrder("O1", PriorityP2, item{"S1", "A1"})},
			employees:  []*Employee{createTestEmployee("E1", 29, 0, 10)},
			expected:   map[string]string{},
			unassigned: []string{"O1"},
		},
		{
			name:      "other priorities go to the least loaded employee",
			orders:    []*Order{createTestOrder("O1", PriorityP3, item{"S1", "A1"})},
			employees: []*Employee{createTestEmployee("E1", 50, 5, 10), createTestEmployee("E2", 20, 1, 4)},
			expected:  map[string]string{"O1": "E2"},
		},
		{
			name:      "other priorities may fill an employee to capacity",
			orders:    []*Order{createTestOrder("O1", PriorityP4, item{"S1", "A1"})},
			employees: []*Employee{createTestEmployee("E1", 50, 9, 10)},
			expected:  map[string]string{"O1": "E1"},
		},
		{
			name: "capacity exhaustion leaves orders pending",
			orders: []*Order{
				createTestOrder("O1", PriorityP3, item{"S1", "A1"}),
				createTestOrder("O2", PriorityP3, item{"S1", "A1"}),
				createTestOrder("O3", PriorityP3, item{"S1", "A1"}),
			},
			employees:  []*Employee{createTestEmployee("E1", 20, 0, 2)},
			expected:   map[string]string{"O1": "E1", "O2": "E1"},
			unassigned: []string{"O3"},
		},
		{
			name: "P1 is served before P2 regardless of input order",
			orders: []*Order{
				createTestOrder("O1", PriorityP2, item{"S1", "A1"}),
				createTestOrder("O2", PriorityP1, item{"S1", "A1"}),
			},
			employees:  []*Employee{createTestEmployee("E1", 50, 3, 5)},
			expected:   map[string]string{"O2": "E1"},
			unassigned: []string{"O1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AutoAllocate(tt.orders, tt.employees, DefaultAllocationPolicy())

			assert.Equal(t, tt.expected, assignmentsByOrder(result))
			assert.Equal(t, tt.unassigned, result.Unassigned)

			for _, o := range result.Orders {
				if employeeID, ok := tt.expected[o.ID]; ok {
					assert.Equal(t, OrderStatusProcessing, o.Status)
					assert.Equal(t, employeeID, o.AssignedEmployeeID)
				} else {
					assert.Equal(t, OrderStatusPending, o.Status)
					assert.Empty(t, o.AssignedEmployeeID)
				}
			}
		})
	}
}

func TestAutoAllocate_UpdatesLoadWithoutMutatingInput(t *testing.T) {
	orders := []*Order{createTestOrder("O1", PriorityP1, item{"S1", "A1"})}
	employees := []*Employee{createTestEmployee("E1", 50, 8, 10), createTestEmployee("E2", 45, 2, 10)}

	result := AutoAllocate(orders, employees, DefaultAllocationPolicy())

	assert.Equal(t, 8, result.Employees[0].CurrentOrders)
	assert.Equal(t, 3, result.Employees[1].CurrentOrders)
	assert.Equal(t, 2, employees[1].CurrentOrders)
	assert.Equal(t, OrderStatusPending, orders[0].Status)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, TierHigh, result.Assignments[0].Tier)
}

func TestAutoAllocate_SkipsInactiveEmployeesAndNonPendingOrders(t *testing.T) {
	onBreak := createTestEmployee("E1", 50, 0, 10)
	onBreak.Status = EmployeeStatusBreak
	processing := createTestOrder("O1", PriorityP3, item{"S1", "A1"})
	processing.Status = OrderStatusProcessing

	result := AutoAllocate(
		[]*Order{processing, createTestOrder("O2", PriorityP1, item{"S1", "A1"})},
		[]*Employee{onBreak},
		DefaultAllocationPolicy(),
	)

	assert.Empty(t, result.Assignments)
	assert.Equal(t, []string{"O2"}, result.Unassigned)
	assert.Equal(t, 0, result.Employees[0].CurrentOrders)
}

func TestAutoAllocate_CapacityInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	priorities := []Priority{PriorityP1, PriorityP2, PriorityP3, PriorityP4}

	var employees []*Employee
	for i := 0; i < 6; i++ {
		max := 1 + rng.Intn(8)
		employees = append(employees, createTestEmployee(fmt.Sprintf("E%d", i), float64(rng.Intn(60)), rng.Intn(max+1), max))
	}

	for round := 0; round < 20; round++ {
		var orders []*Order
		for i := 0; i < rng.Intn(15); i++ {
			orders = append(orders, createTestOrder(fmt.Sprintf("R%d-O%d", round, i), priorities[rng.Intn(4)], item{"S1", "A1"}))
		}

		result := AutoAllocate(orders, employees, DefaultAllocationPolicy())
		employees = result.Employees

		assigned := make(map[string]bool)
		for _, a := range result.Assignments {
			require.False(t, assigned[a.OrderID], "order %s assigned twice", a.OrderID)
			assigned[a.OrderID] = true
		}
		for _, e := range employees {
			require.LessOrEqual(t, e.CurrentOrders, e.MaxLoad, "employee %s over capacity", e.ID)
		}
	}
}

func TestAllocationPolicy(t *testing.T) {
	p := DefaultAllocationPolicy()
	require.NoError(t, p.Validate())

	assert.Equal(t, TierHigh, p.TierOf(40))
	assert.Equal(t, TierRegular, p.TierOf(39.9))
	assert.Equal(t, TierRegular, p.TierOf(30))
	assert.Equal(t, TierJunior, p.TierOf(29.99))

	assert.Error(t, AllocationPolicy{HighTierMin: 20, RegularTierMin: 30, Headroom: 0.8}.Validate())
	assert.Error(t, AllocationPolicy{HighTierMin: 40, RegularTierMin: 30, Headroom: 0}.Validate())
	assert.Error(t, AllocationPolicy{HighTierMin: 40, RegularTierMin: 30, Headroom: 1.2}.Validate())
}
