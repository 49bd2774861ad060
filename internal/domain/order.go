package domain

import "time"

// Priority is the SLA class of an order, P1 being the most urgent
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

// IsValid reports whether p is one of P1..P4
func (p Priority) IsValid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
)

// IsOpen reports whether the order still needs work
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// OrderItem is one line of an order
type OrderItem struct {
	SKU      string `bson:"sku" json:"sku"`
	Name     string `bson:"name" json:"name"`
	Location string `bson:"location" json:"location"` // warehouse cell, e.g. "A12"
	Quantity int    `bson:"quantity" json:"quantity"`
}

// Order is a customer order waiting to be picked
type Order struct {
	ID                 string      `bson:"_id" json:"id"`
	Priority           Priority    `bson:"priority" json:"priority"`
	Status             OrderStatus `bson:"status" json:"status"`
	Items              []OrderItem `bson:"items" json:"items"`
	Deadline           time.Time   `bson:"deadline" json:"deadline"`
	Channel            string      `bson:"channel" json:"channel"`
	Transporter        string      `bson:"transporter" json:"transporter"`
	AssignedEmployeeID string      `bson:"assignedEmployeeId,omitempty" json:"assignedEmployeeId,omitempty"`
}

// Validate checks the order at the intake boundary
func (o *Order) Validate() error {
	if o.ID == "" {
		return ErrMissingOrderID
	}
	if !o.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if len(o.Items) == 0 {
		return ErrOrderNoItems
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.Location == "" {
			return ErrMissingLocation
		}
	}
	return nil
}

// Clone returns a deep copy
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}

// Locations returns the distinct item locations in item order
func (o *Order) Locations() []string {
	seen := make(map[string]bool, len(o.Items))
	locations := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.Location] {
			seen[item.Location] = true
			locations = append(locations, item.Location)
		}
	}
	return locations
}

// SKUs returns the distinct SKUs in item order
func (o *Order) SKUs() []string {
	seen := make(map[string]bool, len(o.Items))
	skus := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.SKU] {
			seen[item.SKU] = true
			skus = append(skus, item.SKU)
		}
	}
	return skus
}

// MinutesLeft returns the minutes until the deadline; negative when overdue
func (o *Order) MinutesLeft(now time.Time) float64 {
	return float64(o.Deadline.Sub(now).Milliseconds()) / 60000
}
