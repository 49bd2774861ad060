package application

import "time"

// OrderItemDTO represents an order line in responses
type OrderItemDTO struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

// OrderDTO represents an order in responses
type OrderDTO struct {
	ID                 string         `json:"id"`
	Priority           string         `json:"priority"`
	Status             string         `json:"status"`
	Items              []OrderItemDTO `json:"items"`
	Deadline           time.Time      `json:"deadline"`
	Channel            string         `json:"channel"`
	Transporter        string         `json:"transporter"`
	AssignedEmployeeID string         `json:"assignedEmployeeId,omitempty"`
}

// BatchDTO represents a batch in responses
type BatchDTO struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	OrderIDs              []string   `json:"orderIds"`
	Locations             []string   `json:"locations"`
	Status                string     `json:"status"`
	Principle             string     `json:"principle"`
	CreatedAt             time.Time  `json:"createdAt"`
	StartTime             *time.Time `json:"startTime,omitempty"`
	CompleteTime          *time.Time `json:"completeTime,omitempty"`
	ProcessingTimeMinutes int        `json:"processingTimeMinutes"`
	OrderCount            int        `json:"orderCount"`
}

// PlanResultDTO is the outcome of a planning run
type PlanResultDTO struct {
	Batches      []BatchDTO `json:"batches"`
	PendingCount int        `json:"pendingCount"`
}

// EmployeeDTO represents an employee in responses
type EmployeeDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	EfficiencyScore float64 `json:"efficiencyScore"`
	Tier            string  `json:"tier"`
	Status          string  `json:"status"`
	CurrentOrders   int     `json:"currentOrders"`
	MaxLoad         int     `json:"maxLoad"`
	LoadFraction    float64 `json:"loadFraction"`
}

// AssignmentDTO represents one allocation
type AssignmentDTO struct {
	OrderID    string `json:"orderId"`
	EmployeeID string `json:"employeeId"`
	Priority   string `json:"priority"`
	Tier       string `json:"tier"`
}

// AllocationResultDTO is the outcome of an allocation run
type AllocationResultDTO struct {
	Assignments []AssignmentDTO `json:"assignments"`
	Unassigned  []string        `json:"unassigned"`
	Employees   []EmployeeDTO   `json:"employees"`
}

// AlertDTO represents an alert in responses
type AlertDTO struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	OrderID string    `json:"orderId,omitempty"`
	BatchID string    `json:"batchId,omitempty"`
}

// ActivityDTO represents an activity log entry in responses
type ActivityDTO struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Action string    `json:"action"`
	User   string    `json:"user"`
	Time   time.Time `json:"time"`
}

// HighlightsDTO lists the shelf locations of the processing batch
type HighlightsDTO struct {
	BatchID   string   `json:"batchId,omitempty"`
	Locations []string `json:"locations"`
}

// FloorSummaryDTO is the dashboard view of the floor
type FloorSummaryDTO struct {
	PendingOrders        int       `json:"pendingOrders"`
	CompletedOrders      int       `json:"completedOrders"`
	OpenBatches          int       `json:"openBatches"`
	ActiveEmployees      int       `json:"activeEmployees"`
	ActiveBatch          *BatchDTO `json:"activeBatch,omitempty"`
	HighlightedLocations []string  `json:"highlightedLocations"`
	Version              int64     `json:"version"`
}

// SLACheckDTO is the outcome of one SLA scan
type SLACheckDTO struct {
	CheckedAt time.Time  `json:"checkedAt"`
	Alerts    []AlertDTO `json:"alerts"`
}

// SLAStatusDTO describes the SLA monitor
type SLAStatusDTO struct {
	Running       bool       `json:"running"`
	CheckInterval string     `json:"checkInterval"`
	Threshold     string     `json:"threshold"`
	Cooldown      string     `json:"cooldown"`
	LastCheck     *time.Time `json:"lastCheck,omitempty"`
}
