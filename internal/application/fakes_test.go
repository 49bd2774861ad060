package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/batching-service/pkg/errors"
	"github.com/wms-platform/batching-service/internal/domain"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFloorRepo commits fn against a clone so a failed update leaves the floor untouched
type fakeFloorRepo struct {
	mu       sync.Mutex
	floor    *domain.Floor
	events   []domain.DomainEvent
	updates  int
	loadErr  error
	updateFn func(context.Context, func(*domain.Floor) error) (*domain.Floor, error)
}

func newFakeFloorRepo() *fakeFloorRepo {
	return &fakeFloorRepo{floor: domain.NewFloor(domain.DefaultFloorID)}
}

func (r *fakeFloorRepo) Load(ctx context.Context) (*domain.Floor, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.floor.Clone(), nil
}

func (r *fakeFloorRepo) Update(ctx context.Context, fn func(*domain.Floor) error) (*domain.Floor, error) {
	if r.updateFn != nil {
		return r.updateFn(ctx, fn)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.floor.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version++
	r.events = append(r.events, next.GetDomainEvents()...)
	next.ClearDomainEvents()
	next.ClearNewActivity()
	r.floor = next
	r.updates++
	return next, nil
}

func (r *fakeFloorRepo) HealthCheck(ctx context.Context) error {
	return nil
}

func (r *fakeFloorRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType()
	}
	return types
}

func newOrder(id string, priority domain.Priority, deadline time.Time, items ...domain.OrderItem) domain.Order {
	return domain.Order{
		ID:          id,
		Priority:    priority,
		Status:      domain.OrderStatusPending,
		Items:       items,
		Deadline:    deadline,
		Channel:     "web",
		Transporter: "DHL",
	}
}

func item(sku, location string) domain.OrderItem {
	return domain.OrderItem{SKU: sku, Name: "Item " + sku, Location: location, Quantity: 1}
}

func newEmployee(id string, efficiency float64, current, max int) domain.Employee {
	return domain.Employee{
		ID:              id,
		Name:            "Picker " + id,
		EfficiencyScore: efficiency,
		Status:          domain.EmployeeStatusActive,
		CurrentOrders:   current,
		MaxLoad:         max,
	}
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	return appErr.HTTPStatus
}
