package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/batching-service/pkg/logging"

	"github.com/wms-platform/batching-service/internal/domain"
)

// FloorRepository keeps the floor in process memory.
//
// Update works on a copy and swaps it in only when fn succeeds, so a failed
// operation leaves the stored floor untouched. A committed floor is never
// mutated again, which makes it safe to hand out pointers into it.
type FloorRepository struct {
	mu        sync.Mutex
	floor     *domain.Floor
	publisher domain.EventPublisher
	logger    *logging.Logger
}

// NewFloorRepository creates an empty floor. publisher may be nil.
func NewFloorRepository(publisher domain.EventPublisher, logger *logging.Logger) *FloorRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FloorRepository{
		floor:     domain.NewFloor(domain.DefaultFloorID),
		publisher: publisher,
		logger:    logger.WithComponent("memory-floor-repository"),
	}
}

// Load returns a copy of the floor
func (r *FloorRepository) Load(ctx context.Context) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.floor.Clone(), nil
}

// Update applies fn atomically. Events are published in commit order while
// the lock is held; a publish failure is logged and does not undo the commit.
func (r *FloorRepository) Update(ctx context.Context, fn func(*domain.Floor) error) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.floor.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}

	work.Version = r.floor.Version + 1
	work.UpdatedAt = time.Now().UTC()
	events := work.GetDomainEvents()
	work.ClearDomainEvents()
	work.ClearNewActivity()
	r.floor = work

	if r.publisher != nil && len(events) > 0 {
		if err := r.publisher.PublishAll(ctx, events); err != nil {
			r.logger.WithError(err).Error("Failed to publish floor events", "events", len(events), "version", work.Version)
		}
	}

	return work, nil
}

// HealthCheck always succeeds
func (r *FloorRepository) HealthCheck(ctx context.Context) error {
	return nil
}
