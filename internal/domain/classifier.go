package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Classifier partitions pending orders into candidate batches.
//
// Passes run in a fixed order over a shrinking set of unclaimed orders:
// P1 orders, single-item orders, location clusters, SKU clusters and
// finally everything left over. Every pending order ends up in exactly one
// batch. The classifier never mutates its input.
type Classifier struct {
	newID func() string
}

// ClassifierOption configures a Classifier
type ClassifierOption func(*Classifier)

// WithIDGenerator overrides how batch ids are generated
func WithIDGenerator(fn func() string) ClassifierOption {
	return func(c *Classifier) {
		c.newID = fn
	}
}

// NewClassifier creates a classifier
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the batches for the pending orders in orders
func (c *Classifier) Classify(orders []*Order, now time.Time) []*Batch {
	pass := &classification{
		classifier: c,
		now:        now,
		claimed:    make(map[string]bool),
	}
	for _, o := range orders {
		if o.Status == OrderStatusPending {
			pass.pending = append(pass.pending, o)
		}
	}
	if len(pass.pending) == 0 {
		return nil
	}

	pass.claimWhere(PrincipleP1First, "P1 Priority", func(o *Order) bool {
		return o.Priority == PriorityP1
	})
	pass.claimWhere(PrincipleSingleProduct, "Single Product", func(o *Order) bool {
		return len(o.Items) == 1
	})
	pass.cluster(PrincipleLocationCluster, "Location", (*Order).Locations)
	pass.cluster(PrincipleSKUCluster, "SKU", (*Order).SKUs)
	pass.claimWhere(PrincipleMultiProducts, "Multi Products", func(*Order) bool {
		return true
	})

	return pass.batches
}

// classification holds the state of one Classify call
type classification struct {
	classifier *Classifier
	now        time.Time
	pending    []*Order
	claimed    map[string]bool
	batches    []*Batch
}

func (p *classification) unclaimed() []*Order {
	out := make([]*Order, 0, len(p.pending))
	for _, o := range p.pending {
		if !p.claimed[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

func (p *classification) claimWhere(principle Principle, name string, match func(*Order) bool) {
	var members []*Order
	for _, o := range p.unclaimed() {
		if match(o) {
			members = append(members, o)
		}
	}
	p.emit(principle, name, members)
}

// cluster forms one batch per key shared by at least two unclaimed orders.
// Keys are visited by descending order count, ties by key ascending; counts
// are taken once at the start of the pass.
func (p *classification) cluster(principle Principle, label string, keysOf func(*Order) []string) {
	remaining := p.unclaimed()

	counts := make(map[string]int)
	for _, o := range remaining {
		for _, key := range keysOf(o) {
			counts[key]++
		}
	}

	keys := make([]string, 0, len(counts))
	for key, n := range counts {
		if n >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		var members []*Order
		for _, o := range remaining {
			if p.claimed[o.ID] {
				continue
			}
			for _, k := range keysOf(o) {
				if k == key {
					members = append(members, o)
					break
				}
			}
		}
		if len(members) >= 2 {
			p.emit(principle, fmt.Sprintf("%s %s", label, key), members)
		}
	}
}

func (p *classification) emit(principle Principle, name string, members []*Order) {
	if len(members) == 0 {
		return
	}

	orderIDs := make([]string, len(members))
	seen := make(map[string]bool)
	var locations []string
	for i, o := range members {
		orderIDs[i] = o.ID
		p.claimed[o.ID] = true
		for _, item := range o.Items {
			if !seen[item.Location] {
				seen[item.Location] = true
				locations = append(locations, item.Location)
			}
		}
	}
	sort.Strings(locations)

	p.batches = append(p.batches, &Batch{
		ID:        p.classifier.newID(),
		Name:      fmt.Sprintf("Batch %d · %s", len(p.batches)+1, name),
		OrderIDs:  orderIDs,
		Locations: locations,
		Status:    BatchStatusPending,
		Principle: principle,
		CreatedAt: p.now,
	})
}
