package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/kafka"
	pkgmongo "github.com/wms-platform/batching-service/pkg/mongodb"
	"github.com/wms-platform/batching-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/batching-service/pkg/outbox/mongodb"

	"github.com/wms-platform/batching-service/internal/domain"
)

// Collection names
const (
	FloorsCollection    = "floors"
	OrdersCollection    = "orders"
	BatchesCollection   = "batches"
	EmployeesCollection = "employees"
	ActivityCollection  = "activity_log"
)

// floorDocument is the stored form of the floor root. Orders, batches,
// employees and activity live in their own collections; the id lists keep
// their order.
type floorDocument struct {
	ID                   string               `bson:"_id,omitempty"`
	Alerts               []domain.Alert       `bson:"alerts"`
	ActiveBatchID        *string              `bson:"activeBatchId,omitempty"`
	HighlightedLocations []string             `bson:"highlightedLocations"`
	PendingOrders        int                  `bson:"pendingOrders"`
	CompletedOrders      int                  `bson:"completedOrders"`
	LastSLAAlert         map[string]time.Time `bson:"lastSlaAlert"`
	OrderIDs             []string             `bson:"orderIds"`
	BatchIDs             []string             `bson:"batchIds"`
	EmployeeIDs          []string             `bson:"employeeIds"`
	Version              int64                `bson:"version"`
	UpdatedAt            time.Time            `bson:"updatedAt"`
}

// FloorRepository implements domain.FloorRepository using MongoDB.
//
// Update runs in a multi-document transaction and guards the floor document
// with an optimistic version check. Domain events are written to the outbox
// in the same transaction.
type FloorRepository struct {
	client       *pkgmongo.InstrumentedClient
	floors       *pkgmongo.InstrumentedCollection
	orders       *pkgmongo.InstrumentedCollection
	batches      *pkgmongo.InstrumentedCollection
	employees    *pkgmongo.InstrumentedCollection
	activity     *pkgmongo.InstrumentedCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	floorID      string
}

// NewFloorRepository creates a new FloorRepository
func NewFloorRepository(client *pkgmongo.InstrumentedClient, eventFactory *cloudevents.EventFactory) *FloorRepository {
	return &FloorRepository{
		client:       client,
		floors:       client.Collection(FloorsCollection),
		orders:       client.Collection(OrdersCollection),
		batches:      client.Collection(BatchesCollection),
		employees:    client.Collection(EmployeesCollection),
		activity:     client.Collection(ActivityCollection),
		outboxRepo:   outboxMongo.NewOutboxRepository(client),
		eventFactory: eventFactory,
		floorID:      domain.DefaultFloorID,
	}
}

// EnsureIndexes creates the indexes used by reads and the outbox relay
func (r *FloorRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.batches.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create batch indexes: %w", err)
	}
	if err := r.activity.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// Load returns the floor with its full activity log
func (r *FloorRepository) Load(ctx context.Context) (*domain.Floor, error) {
	floor, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var entries []domain.ActivityLogEntry
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}, {Key: "_id", Value: -1}})
	if err := r.activity.FindAll(ctx, bson.M{}, &entries, opts); err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	floor.Activity = entries
	return floor, nil
}

// Update applies fn inside a transaction. The floor passed to fn carries no
// activity history since domain operations only prepend to it; the returned
// floor holds just the entries fn logged.
func (r *FloorRepository) Update(ctx context.Context, fn func(*domain.Floor) error) (*domain.Floor, error) {
	var committed *domain.Floor

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		floor, err := r.load(sessCtx)
		if err != nil {
			return err
		}
		expected := floor.Version

		if err := fn(floor); err != nil {
			return err
		}

		floor.Version = expected + 1
		floor.UpdatedAt = time.Now().UTC()

		if err := r.saveFloor(sessCtx, floor, expected); err != nil {
			return err
		}
		if err := r.saveEntities(sessCtx, floor); err != nil {
			return err
		}
		if err := r.saveActivity(sessCtx, floor.NewActivity()); err != nil {
			return err
		}
		if err := r.saveEvents(sessCtx, floor); err != nil {
			return err
		}

		floor.ClearDomainEvents()
		floor.ClearNewActivity()
		committed = floor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// HealthCheck pings MongoDB
func (r *FloorRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}

func (r *FloorRepository) load(ctx context.Context) (*domain.Floor, error) {
	var doc floorDocument
	err := r.floors.FindOne(ctx, bson.M{"_id": r.floorID}, &doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NewFloor(r.floorID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load floor: %w", err)
	}

	floor := domain.NewFloor(doc.ID)
	floor.Alerts = doc.Alerts
	floor.ActiveBatchID = doc.ActiveBatchID
	if doc.HighlightedLocations != nil {
		floor.HighlightedLocations = doc.HighlightedLocations
	}
	floor.PendingOrders = doc.PendingOrders
	floor.CompletedOrders = doc.CompletedOrders
	if doc.LastSLAAlert != nil {
		floor.LastSLAAlert = doc.LastSLAAlert
	}
	floor.Version = doc.Version
	floor.UpdatedAt = doc.UpdatedAt

	var orders []*domain.Order
	if err := r.orders.FindAll(ctx, idIn(doc.OrderIDs), &orders); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	var batches []*domain.Batch
	if err := r.batches.FindAll(ctx, idIn(doc.BatchIDs), &batches); err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	var employees []*domain.Employee
	if err := r.employees.FindAll(ctx, idIn(doc.EmployeeIDs), &employees); err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	floor.Orders = inOrder(doc.OrderIDs, orders, func(o *domain.Order) string { return o.ID })
	floor.Batches = inOrder(doc.BatchIDs, batches, func(b *domain.Batch) string { return b.ID })
	floor.Employees = inOrder(doc.EmployeeIDs, employees, func(e *domain.Employee) string { return e.ID })
	return floor, nil
}

func idIn(ids []string) bson.M {
	if ids == nil {
		ids = []string{}
	}
	return bson.M{"_id": bson.M{"$in": ids}}
}

// inOrder arranges items in the order of ids
func inOrder[T any](ids []string, items []T, key func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[key(item)] = item
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

func (r *FloorRepository) saveFloor(ctx context.Context, floor *domain.Floor, expectedVersion int64) error {
	// _id comes from the filter on upsert and is immutable afterwards.
	doc := floorDocument{
		Alerts:               floor.Alerts,
		ActiveBatchID:        floor.ActiveBatchID,
		HighlightedLocations: floor.HighlightedLocations,
		PendingOrders:        floor.PendingOrders,
		CompletedOrders:      floor.CompletedOrders,
		LastSLAAlert:         floor.LastSLAAlert,
		OrderIDs:             ids(floor.Orders, func(o *domain.Order) string { return o.ID }),
		BatchIDs:             ids(floor.Batches, func(b *domain.Batch) string { return b.ID }),
		EmployeeIDs:          ids(floor.Employees, func(e *domain.Employee) string { return e.ID }),
		Version:              floor.Version,
		UpdatedAt:            floor.UpdatedAt,
	}

	filter := bson.M{"_id": floor.ID, "version": expectedVersion}
	_, err := r.floors.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// The upsert found no document at the expected version.
		return domain.ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("failed to save floor: %w", err)
	}
	return nil
}

func ids[T any](items []T, key func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = key(item)
	}
	return out
}

// replaceAll upserts every document and deletes the ones no longer present
func replaceAll[T any](ctx context.Context, collection *pkgmongo.InstrumentedCollection, items []T, key func(T) string) error {
	keys := ids(items, key)
	models := make([]mongo.WriteModel, 0, len(items)+1)
	for i, item := range items {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": keys[i]}).
			SetReplacement(item).
			SetUpsert(true))
	}
	models = append(models, mongo.NewDeleteManyModel().SetFilter(bson.M{"_id": bson.M{"$nin": keys}}))
	return collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
}

func (r *FloorRepository) saveEntities(ctx context.Context, floor *domain.Floor) error {
	if err := replaceAll(ctx, r.orders, floor.Orders, func(o *domain.Order) string { return o.ID }); err != nil {
		return fmt.Errorf("failed to save orders: %w", err)
	}
	if err := replaceAll(ctx, r.batches, floor.Batches, func(b *domain.Batch) string { return b.ID }); err != nil {
		return fmt.Errorf("failed to save batches: %w", err)
	}
	if err := replaceAll(ctx, r.employees, floor.Employees, func(e *domain.Employee) string { return e.ID }); err != nil {
		return fmt.Errorf("failed to save employees: %w", err)
	}
	return nil
}

func (r *FloorRepository) saveActivity(ctx context.Context, entries []domain.ActivityLogEntry) error {
	docs := make([]interface{}, len(entries))
	for i, entry := range entries {
		docs[i] = entry
	}
	if err := r.activity.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

func (r *FloorRepository) saveEvents(ctx context.Context, floor *domain.Floor) error {
	events := floor.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		ce := r.eventFactory.CreateEvent(ctx, event.EventType(), event.Subject(), event)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(floor.ID, "Floor", kafka.Topics.BatchesEvents, ce)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
