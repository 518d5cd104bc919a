package scheduler

import (
	"context"
	"slices"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// Compactor periodically re-applies merge cleanup to the persisted
// collection: schedule-like noise and duplicate ids go, the order is
// restored and the cap enforced.
type Compactor struct {
	store    store.Store
	merger   *domain.Merger
	logger   logger.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewCompactor creates a new compactor
func NewCompactor(
	st store.Store,
	merger *domain.Merger,
	log logger.Logger,
	interval time.Duration,
) *Compactor {
	return &Compactor{
		store:    st,
		merger:   merger,
		logger:   log,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic compaction process
func (c *Compactor) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := c.Compact(ctx); err != nil {
		c.logger.Warn("initial compaction failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := c.Compact(ctx); err != nil {
					c.logger.Error("compaction failed",
						logger.Error(err))
				}
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the compactor
func (c *Compactor) Stop() {
	close(c.stopCh)
}

// Compact cleans the collection and returns how many records were dropped.
// Nothing is written when the collection is already clean.
func (c *Compactor) Compact(ctx context.Context) (int, error) {
	removed := 0
	err := c.store.Update(ctx, func(current []domain.Assignment) ([]domain.Assignment, error) {
		next := c.merger.Merge(current, nil, c.now())
		if slices.Equal(current, next) {
			return nil, store.ErrNoChange
		}
		removed = len(current) - len(next)
		return next, nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		c.logger.Info("compaction completed",
			logger.Int("removed", removed))
	} else {
		c.logger.Debug("collection already compact")
	}
	return removed, nil
}
