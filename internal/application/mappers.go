package application

import "github.com/wms-platform/batching-service/internal/domain"

// ToOrderDTO converts a domain Order to OrderDTO
func ToOrderDTO(order *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemDTO{
			SKU:      item.SKU,
			Name:     item.Name,
			Location: item.Location,
			Quantity: item.Quantity,
		}
	}

	return OrderDTO{
		ID:                 order.ID,
		Priority:           string(order.Priority),
		Status:             string(order.Status),
		Items:              items,
		Deadline:           order.Deadline,
		Channel:            order.Channel,
		Transporter:        order.Transporter,
		AssignedEmployeeID: order.AssignedEmployeeID,
	}
}

// ToOrderDTOs converts orders to DTOs
func ToOrderDTOs(orders []*domain.Order) []OrderDTO {
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = ToOrderDTO(o)
	}
	return dtos
}

// ToBatchDTO converts a domain Batch to BatchDTO
func ToBatchDTO(batch *domain.Batch) *BatchDTO {
	if batch == nil {
		return nil
	}

	return &BatchDTO{
		ID:                    batch.ID,
		Name:                  batch.Name,
		OrderIDs:              append([]string{}, batch.OrderIDs...),
		Locations:             append([]string{}, batch.Locations...),
		Status:                string(batch.Status),
		Principle:             string(batch.Principle),
		CreatedAt:             batch.CreatedAt,
		StartTime:             batch.StartTime,
		CompleteTime:          batch.CompleteTime,
		ProcessingTimeMinutes: batch.ProcessingTimeMinutes,
		OrderCount:            len(batch.OrderIDs),
	}
}

// ToBatchDTOs converts batches to DTOs
func ToBatchDTOs(batches []*domain.Batch) []BatchDTO {
	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = *ToBatchDTO(b)
	}
	return dtos
}

// ToEmployeeDTO converts a domain Employee to EmployeeDTO
func ToEmployeeDTO(employee *domain.Employee, policy domain.AllocationPolicy) EmployeeDTO {
	return EmployeeDTO{
		ID:              employee.ID,
		Name:            employee.Name,
		EfficiencyScore: employee.EfficiencyScore,
		Tier:            string(policy.TierOf(employee.EfficiencyScore)),
		Status:          string(employee.Status),
		CurrentOrders:   employee.CurrentOrders,
		MaxLoad:         employee.MaxLoad,
		LoadFraction:    employee.LoadFraction(),
	}
}

// ToEmployeeDTOs converts employees to DTOs
func ToEmployeeDTOs(employees []*domain.Employee, policy domain.AllocationPolicy) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = ToEmployeeDTO(e, policy)
	}
	return dtos
}

// ToAllocationResultDTO converts an allocation result to its DTO
func ToAllocationResultDTO(result domain.AllocationResult, policy domain.AllocationPolicy) *AllocationResultDTO {
	assignments := make([]AssignmentDTO, len(result.Assignments))
	for i, a := range result.Assignments {
		assignments[i] = AssignmentDTO{
			OrderID:    a.OrderID,
			EmployeeID: a.EmployeeID,
			Priority:   string(a.Priority),
			Tier:       string(a.Tier),
		}
	}

	unassigned := result.Unassigned
	if unassigned == nil {
		unassigned = []string{}
	}

	return &AllocationResultDTO{
		Assignments: assignments,
		Unassigned:  unassigned,
		Employees:   ToEmployeeDTOs(result.Employees, policy),
	}
}

// ToAlertDTOs converts alerts to DTOs
func ToAlertDTOs(alerts []domain.Alert) []AlertDTO {
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = AlertDTO{
			ID:      a.ID,
			Type:    string(a.Type),
			Title:   a.Title,
			Message: a.Message,
			Time:    a.Time,
			OrderID: a.OrderID,
			BatchID: a.BatchID,
		}
	}
	return dtos
}

// ToActivityDTOs converts activity entries to DTOs
func ToActivityDTOs(entries []domain.ActivityLogEntry) []ActivityDTO {
	dtos := make([]ActivityDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ActivityDTO{
			ID:     e.ID,
			Type:   string(e.Type),
			Action: e.Action,
			User:   e.User,
			Time:   e.Time,
		}
	}
	return dtos
}

// ToFloorSummaryDTO converts the floor to its dashboard summary
func ToFloorSummaryDTO(floor *domain.Floor) *FloorSummaryDTO {
	openBatches := 0
	for _, b := range floor.Batches {
		if b.Status != domain.BatchStatusCompleted {
			openBatches++
		}
	}
	activeEmployees := 0
	for _, e := range floor.Employees {
		if e.IsActive() {
			activeEmployees++
		}
	}

	return &FloorSummaryDTO{
		PendingOrders:        floor.PendingOrders,
		CompletedOrders:      floor.CompletedOrders,
		OpenBatches:          openBatches,
		ActiveEmployees:      activeEmployees,
		ActiveBatch:          ToBatchDTO(floor.ActiveBatch()),
		HighlightedLocations: append([]string{}, floor.HighlightedLocations...),
		Version:              floor.Version,
	}
}
