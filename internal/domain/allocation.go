package domain

import (
	"fmt"
	"sort"
)

// Tier groups employees by efficiency score
type Tier string

const (
	TierHigh    Tier = "high"
	TierRegular Tier = "regular"
	TierJunior  Tier = "junior"
)

// AllocationPolicy holds the thresholds used by AutoAllocate
type AllocationPolicy struct {
	HighTierMin    float64 `yaml:"highTierMin" json:"highTierMin"`       // efficiency >= this is high tier
	RegularTierMin float64 `yaml:"regularTierMin" json:"regularTierMin"` // efficiency >= this is regular tier
	// Headroom is the load ratio P1 and P2 assignments must stay strictly below
	Headroom float64 `yaml:"headroom" json:"headroom"`
}

// DefaultAllocationPolicy returns the standard tiering: high >= 40, regular 30-39, 0.8 headroom
func DefaultAllocationPolicy() AllocationPolicy {
	return AllocationPolicy{
		HighTierMin:    40,
		RegularTierMin: 30,
		Headroom:       0.8,
	}
}

// Validate checks the policy thresholds
func (p AllocationPolicy) Validate() error {
	if p.RegularTierMin < 0 || p.HighTierMin < p.RegularTierMin {
		return fmt.Errorf("tier thresholds must satisfy 0 <= regular (%v) <= high (%v)", p.RegularTierMin, p.HighTierMin)
	}
	if p.Headroom <= 0 || p.Headroom > 1 {
		return fmt.Errorf("headroom must be in (0, 1], got %v", p.Headroom)
	}
	return nil
}

// TierOf returns the tier for an efficiency score
func (p AllocationPolicy) TierOf(score float64) Tier {
	switch {
	case score >= p.HighTierMin:
		return TierHigh
	case score >= p.RegularTierMin:
		return TierRegular
	default:
		return TierJunior
	}
}

// Assignment records one order given to one employee
type Assignment struct {
	OrderID    string   `json:"orderId"`
	EmployeeID string   `json:"employeeId"`
	Priority   Priority `json:"priority"`
	Tier       Tier     `json:"tier"`
}

// AllocationResult is the outcome of AutoAllocate. Orders and Employees are
// copies of the inputs with the assignments applied.
type AllocationResult struct {
	Orders      []*Order
	Employees   []*Employee
	Assignments []Assignment
	Unassigned  []string
}

// AutoAllocate assigns pending orders to active employees.
//
// P1 orders go to the first high-tier employee below the headroom ratio. P2
// orders go to high tier, then regular tier, with the same headroom. All other
// orders go to the least loaded employee of any tier below full capacity.
// Orders nobody can take stay pending.
func AutoAllocate(orders []*Order, employees []*Employee, policy AllocationPolicy) AllocationResult {
	result := AllocationResult{
		Orders:    make([]*Order, len(orders)),
		Employees: make([]*Employee, len(employees)),
	}
	for i, o := range orders {
		result.Orders[i] = o.Clone()
	}
	for i, e := range employees {
		result.Employees[i] = e.Clone()
	}

	tiers := map[Tier][]*Employee{}
	for _, e := range result.Employees {
		if e.IsActive() {
			tier := policy.TierOf(e.EfficiencyScore)
			tiers[tier] = append(tiers[tier], e)
		}
	}
	for _, members := range tiers {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].EfficiencyScore > members[j].EfficiencyScore
		})
	}

	var p1, p2, other []*Order
	for _, o := range result.Orders {
		if o.Status != OrderStatusPending {
			continue
		}
		switch o.Priority {
		case PriorityP1:
			p1 = append(p1, o)
		case PriorityP2:
			p2 = append(p2, o)
		default:
			other = append(other, o)
		}
	}

	assign := func(o *Order, e *Employee) {
		e.CurrentOrders++
		o.AssignedEmployeeID = e.ID
		o.Status = OrderStatusProcessing
		result.Assignments = append(result.Assignments, Assignment{
			OrderID:    o.ID,
			EmployeeID: e.ID,
			Priority:   o.Priority,
			Tier:       policy.TierOf(e.EfficiencyScore),
		})
	}

	withHeadroom := func(candidates ...[]*Employee) *Employee {
		for _, tier := range candidates {
			for _, e := range tier {
				if e.hasHeadroom(policy.Headroom) {
					return e
				}
			}
		}
		return nil
	}

	for _, o := range p1 {
		if e := withHeadroom(tiers[TierHigh]); e != nil {
			assign(o, e)
		} else {
			result.Unassigned = append(result.Unassigned, o.ID)
		}
	}

	for _, o := range p2 {
		if e := withHeadroom(tiers[TierHigh], tiers[TierRegular]); e != nil {
			assign(o, e)
		} else {
			result.Unassigned = append(result.Unassigned, o.ID)
		}
	}

	pool := make([]*Employee, 0, len(result.Employees))
	pool = append(pool, tiers[TierHigh]...)
	pool = append(pool, tiers[TierRegular]...)
	pool = append(pool, tiers[TierJunior]...)
	for _, o := range other {
		if e := leastLoaded(pool); e != nil {
			assign(o, e)
		} else {
			result.Unassigned = append(result.Unassigned, o.ID)
		}
	}

	return result
}

// leastLoaded returns the employee with the lowest load fraction that is below
// capacity. Ties keep pool order.
func leastLoaded(pool []*Employee) *Employee {
	var best *Employee
	for _, e := range pool {
		if e.CurrentOrders >= e.MaxLoad {
			continue
		}
		if best == nil || e.LoadFraction() < best.LoadFraction() {
			best = e
		}
	}
	return best
}
