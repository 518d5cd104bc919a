package index

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// MemoryIndex keeps the assignment collection in process memory.
// It serves as the store when Redis is not configured, and as the snapshot
// StoreSyncer keeps in step with Redis.
type MemoryIndex struct {
	mu          sync.RWMutex
	assignments []domain.Assignment
	scanFlag    *bool
	lastWrite   time.Time
	now         func() time.Time

	subMu sync.Mutex
	subs  map[chan store.Change]struct{}
}

var _ store.Store = (*MemoryIndex)(nil)

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		assignments: []domain.Assignment{},
		now:         time.Now,
		subs:        make(map[chan store.Change]struct{}),
	}
}

// Replace swaps the whole collection without notifying watchers.
func (idx *MemoryIndex) Replace(items []domain.Assignment) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.assignments = clone(items)
	idx.lastWrite = idx.now()
}

// Assignments returns a copy of the collection
func (idx *MemoryIndex) Assignments(context.Context) ([]domain.Assignment, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return clone(idx.assignments), nil
}

// Update applies fn under the write lock.
func (idx *MemoryIndex) Update(_ context.Context, fn store.Mutation) error {
	idx.mu.Lock()
	next, err := fn(clone(idx.assignments))
	if err != nil {
		idx.mu.Unlock()
		if errors.Is(err, store.ErrNoChange) {
			return nil
		}
		return err
	}
	idx.assignments = clone(next)
	idx.lastWrite = idx.now()
	idx.mu.Unlock()

	idx.notify(store.KeyAssignments)
	return nil
}

// SetCompleted flips the completed flag of one assignment
func (idx *MemoryIndex) SetCompleted(ctx context.Context, id string, completed bool) error {
	return idx.Update(ctx, store.MarkCompleted(id, completed))
}

// Remove deletes one assignment
func (idx *MemoryIndex) Remove(ctx context.Context, id string) error {
	return idx.Update(ctx, store.Without(id))
}

// ScanEnabled reports the flag; never set means enabled.
func (idx *MemoryIndex) ScanEnabled(context.Context) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.scanFlag == nil || *idx.scanFlag, nil
}

// SetScanEnabled stores the flag
func (idx *MemoryIndex) SetScanEnabled(_ context.Context, enabled bool) error {
	idx.mu.Lock()
	idx.scanFlag = &enabled
	idx.mu.Unlock()

	idx.notify(store.KeyScanEnabled)
	return nil
}

// Watch registers a subscriber until ctx is done.
func (idx *MemoryIndex) Watch(ctx context.Context) (<-chan store.Change, error) {
	ch := make(chan store.Change, 16)

	idx.subMu.Lock()
	idx.subs[ch] = struct{}{}
	idx.subMu.Unlock()

	go func() {
		<-ctx.Done()
		idx.subMu.Lock()
		delete(idx.subs, ch)
		close(ch)
		idx.subMu.Unlock()
	}()

	return ch, nil
}

// Ping always succeeds.
func (idx *MemoryIndex) Ping(context.Context) error { return nil }

// Count returns the number of assignments in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.assignments)
}

// GetLastWrite returns the timestamp of the last collection write
func (idx *MemoryIndex) GetLastWrite() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastWrite
}

// notify delivers to every subscriber; a subscriber with a full buffer
// misses the change.
func (idx *MemoryIndex) notify(key string) {
	c := store.Change{Key: key, At: idx.now()}

	idx.subMu.Lock()
	defer idx.subMu.Unlock()
	for ch := range idx.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func clone(items []domain.Assignment) []domain.Assignment {
	out := make([]domain.Assignment, len(items))
	copy(out, items)
	return out
}
