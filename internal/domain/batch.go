package domain

import (
	"math"
	"time"
)

// BatchStatus represents the status of a batch
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
)

// Principle tags the classification pass that produced a batch
type Principle string

const (
	PrincipleP1First         Principle = "P1_FIRST"
	PrincipleSingleProduct   Principle = "SINGLE_PRODUCT"
	PrincipleLocationCluster Principle = "LOCATION_CLUSTER"
	PrincipleSKUCluster      Principle = "SKU_CLUSTER"
	PrincipleMultiProducts   Principle = "MULTI_PRODUCTS"
)

// Batch is a group of orders picked together in one pass over the floor
type Batch struct {
	ID                    string      `bson:"_id" json:"id"`
	Name                  string      `bson:"name" json:"name"`
	OrderIDs              []string    `bson:"orderIds" json:"orderIds"`
	Locations             []string    `bson:"locations" json:"locations"`
	Status                BatchStatus `bson:"status" json:"status"`
	Principle             Principle   `bson:"principle" json:"principle"`
	CreatedAt             time.Time   `bson:"createdAt" json:"createdAt"`
	StartTime             *time.Time  `bson:"startTime,omitempty" json:"startTime,omitempty"`
	CompleteTime          *time.Time  `bson:"completeTime,omitempty" json:"completeTime,omitempty"`
	ProcessingTimeMinutes int         `bson:"processingTimeMinutes" json:"processingTimeMinutes"`
}

// Clone returns a deep copy
func (b *Batch) Clone() *Batch {
	c := *b
	c.OrderIDs = append([]string(nil), b.OrderIDs...)
	c.Locations = append([]string(nil), b.Locations...)
	if b.StartTime != nil {
		t := *b.StartTime
		c.StartTime = &t
	}
	if b.CompleteTime != nil {
		t := *b.CompleteTime
		c.CompleteTime = &t
	}
	return &c
}

// Contains reports whether the batch holds the order
func (b *Batch) Contains(orderID string) bool {
	for _, id := range b.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

func (b *Batch) start(now time.Time) error {
	if b.Status != BatchStatusPending {
		return ErrBatchNotPending
	}
	b.Status = BatchStatusProcessing
	b.StartTime = &now
	return nil
}

func (b *Batch) complete(now time.Time) error {
	if b.Status != BatchStatusProcessing {
		return ErrBatchNotProcessing
	}
	b.Status = BatchStatusCompleted
	b.CompleteTime = &now
	b.ProcessingTimeMinutes = processingMinutes(*b.StartTime, now)
	return nil
}

func processingMinutes(start, end time.Time) int {
	return int(math.Round(float64(end.Sub(start).Milliseconds()) / 60000))
}
