package domain

import (
	"fmt"
	"time"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type item struct{ sku, location string }

func createTestOrder(id string, priority Priority, items ...item) *Order {
	o := &Order{
		ID:          id,
		Priority:    priority,
		Status:      OrderStatusPending,
		Deadline:    testNow.Add(4 * time.Hour),
		Channel:     "web",
		Transporter: "DHL",
	}
	for _, it := range items {
		o.Items = append(o.Items, OrderItem{SKU: it.sku, Name: "Item " + it.sku, Location: it.location, Quantity: 1})
	}
	return o
}

func createTestEmployee(id string, efficiency float64, current, max int) *Employee {
	return &Employee{
		ID:              id,
		Name:            "Picker " + id,
		EfficiencyScore: efficiency,
		Status:          EmployeeStatusActive,
		CurrentOrders:   current,
		MaxLoad:         max,
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("B-%d", n)
	}
}

func batchOrderIDs(batches []*Batch) [][]string {
	out := make([][]string, len(batches))
	for i, b := range batches {
		out[i] = b.OrderIDs
	}
	return out
}

func batchPrinciples(batches []*Batch) []Principle {
	out := make([]Principle, len(batches))
	for i, b := range batches {
		out[i] = b.Principle
	}
	return out
}
