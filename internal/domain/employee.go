package domain

// EmployeeStatus represents the availability of an employee
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusBreak    EmployeeStatus = "break"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// IsValid reports whether s is a known status
func (s EmployeeStatus) IsValid() bool {
	switch s {
	case EmployeeStatusActive, EmployeeStatusBreak, EmployeeStatusInactive:
		return true
	}
	return false
}

// Employee is a picker on the floor
type Employee struct {
	ID              string         `bson:"_id" json:"id"`
	Name            string         `bson:"name" json:"name"`
	EfficiencyScore float64        `bson:"efficiencyScore" json:"efficiencyScore"` // orders per hour
	Status          EmployeeStatus `bson:"status" json:"status"`
	CurrentOrders   int            `bson:"currentOrders" json:"currentOrders"`
	MaxLoad         int            `bson:"maxLoad" json:"maxLoad"`
}

// Validate checks the employee at the intake boundary
func (e *Employee) Validate() error {
	switch {
	case e.ID == "":
		return ErrMissingEmployeeID
	case !e.Status.IsValid():
		return ErrInvalidEmployeeStatus
	case e.EfficiencyScore < 0:
		return ErrNegativeEfficiency
	case e.MaxLoad <= 0:
		return ErrInvalidCapacity
	case e.CurrentOrders < 0 || e.CurrentOrders > e.MaxLoad:
		return ErrLoadExceedsCapacity
	}
	return nil
}

// Clone returns a copy
func (e *Employee) Clone() *Employee {
	c := *e
	return &c
}

// IsActive reports whether the employee can take orders
func (e *Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive
}

// LoadFraction returns CurrentOrders/MaxLoad
func (e *Employee) LoadFraction() float64 {
	return float64(e.CurrentOrders) / float64(e.MaxLoad)
}

// hasHeadroom reports whether current load is strictly below ratio*MaxLoad
func (e *Employee) hasHeadroom(ratio float64) bool {
	return float64(e.CurrentOrders) < ratio*float64(e.MaxLoad)
}

func (e *Employee) release() {
	if e.CurrentOrders > 0 {
		e.CurrentOrders--
	}
}
