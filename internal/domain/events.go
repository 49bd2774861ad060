package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	// Subject identifies the entity the event is about, e.g. "batch/B-1"
	Subject() string
}

// BatchPlannedEvent is published for every batch produced by a planning run
type BatchPlannedEvent struct {
	BatchID   string    `json:"batchId"`
	Principle string    `json:"principle"`
	OrderIDs  []string  `json:"orderIds"`
	Locations []string  `json:"locations"`
	PlannedAt time.Time `json:"plannedAt"`
}

func (e *BatchPlannedEvent) EventType() string     { return "wms.batch.planned" }
func (e *BatchPlannedEvent) OccurredAt() time.Time { return e.PlannedAt }
func (e *BatchPlannedEvent) Subject() string       { return "batch/" + e.BatchID }

// BatchStartedEvent is published when a batch goes to the floor
type BatchStartedEvent struct {
	BatchID   string    `json:"batchId"`
	OrderIDs  []string  `json:"orderIds"`
	Locations []string  `json:"locations"`
	StartedBy string    `json:"startedBy"`
	StartedAt time.Time `json:"startedAt"`
}

func (e *BatchStartedEvent) EventType() string     { return "wms.batch.started" }
func (e *BatchStartedEvent) OccurredAt() time.Time { return e.StartedAt }
func (e *BatchStartedEvent) Subject() string       { return "batch/" + e.BatchID }

// BatchCompletedEvent is published when all orders of a batch are picked
type BatchCompletedEvent struct {
	BatchID               string    `json:"batchId"`
	OrderCount            int       `json:"orderCount"`
	ProcessingTimeMinutes int       `json:"processingTimeMinutes"`
	CompletedBy           string    `json:"completedBy"`
	CompletedAt           time.Time `json:"completedAt"`
}

func (e *BatchCompletedEvent) EventType() string     { return "wms.batch.completed" }
func (e *BatchCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
func (e *BatchCompletedEvent) Subject() string       { return "batch/" + e.BatchID }

// OrderAssignedEvent is published when the allocator gives an order to an employee
type OrderAssignedEvent struct {
	OrderID    string    `json:"orderId"`
	EmployeeID string    `json:"employeeId"`
	Priority   string    `json:"priority"`
	Tier       string    `json:"tier"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (e *OrderAssignedEvent) EventType() string     { return "wms.order.assigned" }
func (e *OrderAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }
func (e *OrderAssignedEvent) Subject() string       { return "order/" + e.OrderID }

// OrderSLAAtRiskEvent is published alongside every urgent SLA alert
type OrderSLAAtRiskEvent struct {
	OrderID     string    `json:"orderId"`
	Priority    string    `json:"priority"`
	Deadline    time.Time `json:"deadline"`
	MinutesLeft int       `json:"minutesLeft"`
	DetectedAt  time.Time `json:"detectedAt"`
}

func (e *OrderSLAAtRiskEvent) EventType() string     { return "wms.order.sla-at-risk" }
func (e *OrderSLAAtRiskEvent) OccurredAt() time.Time { return e.DetectedAt }
func (e *OrderSLAAtRiskEvent) Subject() string       { return "order/" + e.OrderID }

// EmployeeStatusChangedEvent is published when an employee goes on or off shift
type EmployeeStatusChangedEvent struct {
	EmployeeID string    `json:"employeeId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ChangedAt  time.Time `json:"changedAt"`
}

func (e *EmployeeStatusChangedEvent) EventType() string     { return "wms.employee.status-changed" }
func (e *EmployeeStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
func (e *EmployeeStatusChangedEvent) Subject() string       { return "employee/" + e.EmployeeID }
