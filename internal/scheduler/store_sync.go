package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/index"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// StoreSyncer keeps a memory index in step with the store: a full load at
// start, then a reload on every change notification for the collection.
type StoreSyncer struct {
	store  store.Store
	index  *index.MemoryIndex
	logger logger.Logger

	mu         sync.RWMutex
	lastChange time.Time
	done       chan struct{}
}

// NewStoreSyncer creates a new store syncer
func NewStoreSyncer(
	st store.Store,
	idx *index.MemoryIndex,
	log logger.Logger,
) *StoreSyncer {
	return &StoreSyncer{
		store:  st,
		index:  idx,
		logger: log,
	}
}

// Sync loads the collection and replaces the index contents
func (ss *StoreSyncer) Sync(ctx context.Context) error {
	items, err := ss.store.Assignments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}

	ss.index.Replace(items)
	ss.logger.Debug("synced assignments from store",
		logger.Int("count", len(items)))
	return nil
}

// Start syncs once and then follows change notifications until ctx is done.
func (ss *StoreSyncer) Start(ctx context.Context) error {
	ss.logger.Info("syncing assignments from store to memory")
	if err := ss.Sync(ctx); err != nil {
		return err
	}

	changes, err := ss.store.Watch(ctx)
	if err != nil {
		return err
	}

	ss.done = make(chan struct{})
	go func() {
		defer close(ss.done)
		for c := range changes {
			ss.mu.Lock()
			ss.lastChange = c.At
			ss.mu.Unlock()

			if c.Key != store.KeyAssignments {
				continue
			}
			if err := ss.Sync(ctx); err != nil {
				ss.logger.Warn("failed to refresh assignments after change",
					logger.Error(err))
			}
		}
	}()

	return nil
}

// Done is closed once the change feed ends.
func (ss *StoreSyncer) Done() <-chan struct{} {
	return ss.done
}

// LastChange returns when the last change notification arrived
func (ss *StoreSyncer) LastChange() time.Time {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.lastChange
}
