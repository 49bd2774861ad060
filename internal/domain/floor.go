package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultFloorID identifies the single warehouse floor served by this service
const DefaultFloorID = "main"

// SystemUser is recorded as the actor of automated actions
const SystemUser = "system"

// Floor is the aggregate root holding every order, batch and employee of a
// warehouse floor. All mutations go through its methods inside one
// repository transaction.
type Floor struct {
	ID                   string               `json:"id"`
	Orders               []*Order             `json:"orders"`
	Batches              []*Batch             `json:"batches"`
	Employees            []*Employee          `json:"employees"`
	Alerts               []Alert              `json:"alerts"`   // newest first, at most MaxAlerts
	Activity             []ActivityLogEntry   `json:"activity"` // newest first
	ActiveBatchID        *string              `json:"activeBatchId,omitempty"`
	HighlightedLocations []string             `json:"highlightedLocations"`
	PendingOrders        int                  `json:"pendingOrders"`
	CompletedOrders      int                  `json:"completedOrders"`
	LastSLAAlert         map[string]time.Time `json:"-"`
	Version              int64                `json:"version"`
	UpdatedAt            time.Time            `json:"updatedAt"`

	DomainEvents []DomainEvent      `json:"-"` // Transient
	newActivity  []ActivityLogEntry // Transient, oldest first
}

// NewFloor creates an empty floor
func NewFloor(id string) *Floor {
	return &Floor{
		ID:                   id,
		HighlightedLocations: []string{},
		LastSLAAlert:         make(map[string]time.Time),
	}
}

// Clone returns a deep copy without pending events
func (f *Floor) Clone() *Floor {
	c := *f
	c.Orders = make([]*Order, len(f.Orders))
	for i, o := range f.Orders {
		c.Orders[i] = o.Clone()
	}
	c.Batches = make([]*Batch, len(f.Batches))
	for i, b := range f.Batches {
		c.Batches[i] = b.Clone()
	}
	c.Employees = make([]*Employee, len(f.Employees))
	for i, e := range f.Employees {
		c.Employees[i] = e.Clone()
	}
	c.Alerts = append([]Alert(nil), f.Alerts...)
	c.Activity = append([]ActivityLogEntry(nil), f.Activity...)
	c.HighlightedLocations = append([]string{}, f.HighlightedLocations...)
	if f.ActiveBatchID != nil {
		id := *f.ActiveBatchID
		c.ActiveBatchID = &id
	}
	c.LastSLAAlert = make(map[string]time.Time, len(f.LastSLAAlert))
	for k, v := range f.LastSLAAlert {
		c.LastSLAAlert[k] = v
	}
	c.DomainEvents = nil
	c.newActivity = nil
	return &c
}

// Order returns the order with the given id
func (f *Floor) Order(id string) (*Order, error) {
	for _, o := range f.Orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

// Batch returns the batch with the given id
func (f *Floor) Batch(id string) (*Batch, error) {
	for _, b := range f.Batches {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrBatchNotFound
}

// Employee returns the employee with the given id
func (f *Floor) Employee(id string) (*Employee, error) {
	for _, e := range f.Employees {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrEmployeeNotFound
}

// ActiveBatch returns the processing batch, or nil
func (f *Floor) ActiveBatch() *Batch {
	if f.ActiveBatchID == nil {
		return nil
	}
	b, _ := f.Batch(*f.ActiveBatchID)
	return b
}

// AddOrder accepts one new order from intake
func (f *Floor) AddOrder(order *Order, now time.Time) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if _, err := f.Order(order.ID); err == nil {
		return ErrDuplicateOrder
	}

	o := order.Clone()
	o.Status = OrderStatusPending
	o.AssignedEmployeeID = ""
	f.Orders = append(f.Orders, o)
	f.PendingOrders++
	f.log(ActivityTypeOrder, fmt.Sprintf("Order %s received (%s, %d items)", o.ID, o.Priority, len(o.Items)), SystemUser, now)
	return nil
}

// ReplacePendingOrders swaps the pending order book for orders. Orders
// already processing or completed are kept, and pending batches that
// reference a dropped order are discarded.
func (f *Floor) ReplacePendingOrders(orders []*Order, now time.Time) error {
	incoming := make(map[string]bool, len(orders))
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
		if incoming[o.ID] {
			return fmt.Errorf("order %s: %w", o.ID, ErrDuplicateOrder)
		}
		incoming[o.ID] = true
	}

	kept := make([]*Order, 0, len(f.Orders)+len(orders))
	keptIDs := make(map[string]bool)
	for _, o := range f.Orders {
		if o.Status != OrderStatusPending {
			if incoming[o.ID] {
				return fmt.Errorf("order %s: %w", o.ID, ErrDuplicateOrder)
			}
			kept = append(kept, o)
			keptIDs[o.ID] = true
		}
	}
	for _, o := range orders {
		c := o.Clone()
		c.Status = OrderStatusPending
		c.AssignedEmployeeID = ""
		kept = append(kept, c)
		keptIDs[c.ID] = true
	}
	f.Orders = kept

	batches := f.Batches[:0]
	for _, b := range f.Batches {
		if b.Status == BatchStatusPending && !allKnown(b.OrderIDs, keptIDs) {
			continue
		}
		batches = append(batches, b)
	}
	f.Batches = batches

	f.recountPending()
	f.forgetSLAAlerts()
	f.log(ActivityTypeOrder, fmt.Sprintf("Order book replaced with %d pending orders", len(orders)), SystemUser, now)
	return nil
}

func allKnown(ids []string, known map[string]bool) bool {
	for _, id := range ids {
		if !known[id] {
			return false
		}
	}
	return true
}

// AddEmployee provisions one employee
func (f *Floor) AddEmployee(employee *Employee, now time.Time) error {
	if err := employee.Validate(); err != nil {
		return err
	}
	if _, err := f.Employee(employee.ID); err == nil {
		return ErrDuplicateEmployee
	}
	f.Employees = append(f.Employees, employee.Clone())
	f.log(ActivityTypeStaff, fmt.Sprintf("Employee %s joined the floor", employee.Name), SystemUser, now)
	return nil
}

// ReplaceEmployees swaps the whole roster
func (f *Floor) ReplaceEmployees(employees []*Employee, now time.Time) error {
	seen := make(map[string]bool, len(employees))
	roster := make([]*Employee, len(employees))
	for i, e := range employees {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("employee %s: %w", e.ID, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("employee %s: %w", e.ID, ErrDuplicateEmployee)
		}
		seen[e.ID] = true
		roster[i] = e.Clone()
	}
	f.Employees = roster
	f.log(ActivityTypeStaff, fmt.Sprintf("Roster replaced with %d employees", len(roster)), SystemUser, now)
	return nil
}

// SetEmployeeStatus moves an employee on or off shift. Load is kept; a
// non-active employee is simply not eligible for new orders.
func (f *Floor) SetEmployeeStatus(id string, status EmployeeStatus, actor string, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidEmployeeStatus
	}
	e, err := f.Employee(id)
	if err != nil {
		return err
	}
	if e.Status == status {
		return nil
	}

	from := e.Status
	e.Status = status
	f.log(ActivityTypeStaff, fmt.Sprintf("%s is now %s", e.Name, status), actor, now)
	f.addEvent(&EmployeeStatusChangedEvent{
		EmployeeID: e.ID,
		From:       string(from),
		To:         string(status),
		ChangedAt:  now,
	})
	return nil
}

// PlanBatches discards every batch that has not started and re-classifies
// the pending orders. It returns the new batches.
func (f *Floor) PlanBatches(classifier *Classifier, actor string, now time.Time) []*Batch {
	kept := f.Batches[:0]
	for _, b := range f.Batches {
		if b.Status != BatchStatusPending {
			kept = append(kept, b)
		}
	}
	f.Batches = kept

	planned := classifier.Classify(f.Orders, now)
	if len(planned) == 0 {
		f.alert(Alert{
			Type:    AlertTypeInfo,
			Title:   "Nothing to batch",
			Message: "There are no pending orders to group into batches",
			Time:    now,
		})
		return nil
	}

	orderCount := 0
	for _, b := range planned {
		f.Batches = append(f.Batches, b)
		orderCount += len(b.OrderIDs)
		f.addEvent(&BatchPlannedEvent{
			BatchID:   b.ID,
			Principle: string(b.Principle),
			OrderIDs:  append([]string(nil), b.OrderIDs...),
			Locations: append([]string(nil), b.Locations...),
			PlannedAt: now,
		})
	}
	f.log(ActivityTypeOrder, fmt.Sprintf("Planned %d batches from %d pending orders", len(planned), orderCount), actor, now)
	return planned
}

// StartBatch sends a pending batch to the floor. Only one batch may be
// processing at a time.
func (f *Floor) StartBatch(id, actor string, now time.Time) (*Batch, error) {
	b, err := f.Batch(id)
	if err != nil {
		return nil, err
	}
	if f.ActiveBatchID != nil && *f.ActiveBatchID != id {
		return nil, ErrBatchAlreadyActive
	}
	if err := b.start(now); err != nil {
		return nil, err
	}

	for _, orderID := range b.OrderIDs {
		if o, err := f.Order(orderID); err == nil {
			o.Status = OrderStatusProcessing
		}
	}

	active := b.ID
	f.ActiveBatchID = &active
	f.HighlightedLocations = append([]string{}, b.Locations...)

	f.log(ActivityTypePicking, fmt.Sprintf("Started %s (%d orders)", b.Name, len(b.OrderIDs)), actor, now)
	f.alert(Alert{
		Type:    AlertTypeInfo,
		Title:   "Batch started",
		Message: fmt.Sprintf("%s is being picked: %d orders across %d locations", b.Name, len(b.OrderIDs), len(b.Locations)),
		Time:    now,
		BatchID: b.ID,
	})
	f.addEvent(&BatchStartedEvent{
		BatchID:   b.ID,
		OrderIDs:  append([]string(nil), b.OrderIDs...),
		Locations: append([]string(nil), b.Locations...),
		StartedBy: actor,
		StartedAt: now,
	})
	return b, nil
}

// CompleteBatch finishes the processing batch and releases the load of the
// employees holding its orders.
func (f *Floor) CompleteBatch(id, actor string, now time.Time) (*Batch, error) {
	b, err := f.Batch(id)
	if err != nil {
		return nil, err
	}
	if err := b.complete(now); err != nil {
		return nil, err
	}

	n := len(b.OrderIDs)
	for _, orderID := range b.OrderIDs {
		o, err := f.Order(orderID)
		if err != nil {
			continue
		}
		o.Status = OrderStatusCompleted
		if o.AssignedEmployeeID != "" {
			if e, err := f.Employee(o.AssignedEmployeeID); err == nil {
				e.release()
			}
		}
		delete(f.LastSLAAlert, o.ID)
	}
	f.PendingOrders -= n
	if f.PendingOrders < 0 {
		f.PendingOrders = 0
	}
	f.CompletedOrders += n

	f.HighlightedLocations = []string{}
	f.ActiveBatchID = nil

	f.log(ActivityTypePicking, fmt.Sprintf("Completed %s in %d min", b.Name, b.ProcessingTimeMinutes), actor, now)
	f.alert(Alert{
		Type:    AlertTypeSuccess,
		Title:   "Batch completed",
		Message: fmt.Sprintf("%s finished: %d orders in %d minutes", b.Name, n, b.ProcessingTimeMinutes),
		Time:    now,
		BatchID: b.ID,
	})
	f.addEvent(&BatchCompletedEvent{
		BatchID:               b.ID,
		OrderCount:            n,
		ProcessingTimeMinutes: b.ProcessingTimeMinutes,
		CompletedBy:           actor,
		CompletedAt:           now,
	})
	return b, nil
}

// Allocate runs AutoAllocate over the floor and applies the result
func (f *Floor) Allocate(policy AllocationPolicy, actor string, now time.Time) AllocationResult {
	result := AutoAllocate(f.Orders, f.Employees, policy)
	f.Orders = result.Orders
	f.Employees = result.Employees

	for _, a := range result.Assignments {
		f.addEvent(&OrderAssignedEvent{
			OrderID:    a.OrderID,
			EmployeeID: a.EmployeeID,
			Priority:   string(a.Priority),
			Tier:       string(a.Tier),
			AssignedAt: now,
		})
	}
	if len(result.Assignments) > 0 {
		f.log(ActivityTypeOrder, fmt.Sprintf("Auto-allocated %d orders, %d left pending", len(result.Assignments), len(result.Unassigned)), actor, now)
	}
	return result
}

// SLAPolicy controls when deadline alerts are raised
type SLAPolicy struct {
	// Threshold is the time-to-deadline at or below which an order is at risk
	Threshold time.Duration `yaml:"threshold" json:"threshold"`
	// Cooldown suppresses repeat alerts for the same order; zero alerts on every check
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

// DefaultSLAPolicy returns a 30 minute threshold and a 10 minute cool-down
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		Threshold: 30 * time.Minute,
		Cooldown:  10 * time.Minute,
	}
}

// RaiseSLAAlerts emits an urgent alert for every open order whose deadline is
// within the threshold. It returns the alerts raised by this call.
func (f *Floor) RaiseSLAAlerts(policy SLAPolicy, now time.Time) []Alert {
	if f.LastSLAAlert == nil {
		f.LastSLAAlert = make(map[string]time.Time)
	}
	thresholdMinutes := policy.Threshold.Minutes()

	var raised []Alert
	for _, o := range f.Orders {
		if !o.Status.IsOpen() {
			continue
		}
		minutesLeft := o.MinutesLeft(now)
		if minutesLeft > thresholdMinutes {
			continue
		}
		if last, ok := f.LastSLAAlert[o.ID]; ok && policy.Cooldown > 0 && now.Sub(last) < policy.Cooldown {
			continue
		}

		alert := Alert{
			Type:    AlertTypeUrgent,
			Title:   "SLA at risk",
			Message: slaMessage(o, minutesLeft),
			Time:    now,
			OrderID: o.ID,
		}
		f.alert(alert)
		f.LastSLAAlert[o.ID] = now
		raised = append(raised, f.Alerts[0])

		f.addEvent(&OrderSLAAtRiskEvent{
			OrderID:     o.ID,
			Priority:    string(o.Priority),
			Deadline:    o.Deadline,
			MinutesLeft: int(minutesLeft),
			DetectedAt:  now,
		})
	}
	return raised
}

func slaMessage(o *Order, minutesLeft float64) string {
	if minutesLeft < 0 {
		return fmt.Sprintf("Order %s (%s) is %d minutes past its deadline", o.ID, o.Priority, int(-minutesLeft))
	}
	return fmt.Sprintf("Order %s (%s) is due in %d minutes", o.ID, o.Priority, int(minutesLeft))
}

// GetDomainEvents returns the events raised since the last clear
func (f *Floor) GetDomainEvents() []DomainEvent {
	return f.DomainEvents
}

// ClearDomainEvents clears all pending domain events
func (f *Floor) ClearDomainEvents() {
	f.DomainEvents = nil
}

// NewActivity returns the entries logged since the last ClearNewActivity, oldest first
func (f *Floor) NewActivity() []ActivityLogEntry {
	return f.newActivity
}

// ClearNewActivity resets activity change tracking
func (f *Floor) ClearNewActivity() {
	f.newActivity = nil
}

func (f *Floor) addEvent(event DomainEvent) {
	f.DomainEvents = append(f.DomainEvents, event)
}

// alert prepends a, keeping at most MaxAlerts
func (f *Floor) alert(a Alert) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.Alerts = append([]Alert{a}, f.Alerts...)
	if len(f.Alerts) > MaxAlerts {
		f.Alerts = f.Alerts[:MaxAlerts]
	}
}

func (f *Floor) log(kind ActivityType, action, user string, now time.Time) {
	if user == "" {
		user = SystemUser
	}
	entry := ActivityLogEntry{
		ID:     uuid.NewString(),
		Type:   kind,
		Action: action,
		User:   user,
		Time:   now,
	}
	f.Activity = append([]ActivityLogEntry{entry}, f.Activity...)
	f.newActivity = append(f.newActivity, entry)
}

func (f *Floor) recountPending() {
	n := 0
	for _, o := range f.Orders {
		if o.Status.IsOpen() {
			n++
		}
	}
	f.PendingOrders = n
}

// forgetSLAAlerts drops cool-down entries for orders no longer open
func (f *Floor) forgetSLAAlerts() {
	for id := range f.LastSLAAlert {
		if o, err := f.Order(id); err != nil || !o.Status.IsOpen() {
			delete(f.LastSLAAlert, id)
		}
	}
}
