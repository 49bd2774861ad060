package application

import "github.com/wms-platform/batching-service/internal/domain"

// AddOrderCommand represents the command to accept one order
type AddOrderCommand struct {
	Order domain.Order
}

// ReplaceOrdersCommand represents the command to replace the pending order book
type ReplaceOrdersCommand struct {
	Orders []domain.Order
}

// PlanBatchesCommand represents the command to re-run batch classification
type PlanBatchesCommand struct {
	Actor string
}

// StartBatchCommand represents the command to send a batch to the floor
type StartBatchCommand struct {
	BatchID string
	Actor   string
}

// CompleteBatchCommand represents the command to finish a batch
type CompleteBatchCommand struct {
	BatchID string
	Actor   string
}

// AddEmployeeCommand represents the command to provision one employee
type AddEmployeeCommand struct {
	Employee domain.Employee
}

// ReplaceEmployeesCommand represents the command to replace the roster
type ReplaceEmployeesCommand struct {
	Employees []domain.Employee
}

// SetEmployeeStatusCommand represents the command to change an employee's status
type SetEmployeeStatusCommand struct {
	EmployeeID string
	Status     string
	Actor      string
}

// AllocateCommand represents the command to run auto-allocation
type AllocateCommand struct {
	Actor string
}

// ListOrdersQuery lists orders, optionally by status
type ListOrdersQuery struct {
	Status string
}

// ListBatchesQuery lists batches, optionally by status
type ListBatchesQuery struct {
	Status string
}

// GetBatchQuery represents the query to get a batch by ID
type GetBatchQuery struct {
	BatchID string
}

// GetActivityQuery returns the newest Limit activity entries; zero means all
type GetActivityQuery struct {
	Limit int
}
