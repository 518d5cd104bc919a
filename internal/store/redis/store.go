package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// maxTxRetries bounds optimistic transaction retries when another writer
// touches the collection mid-update.
const maxTxRetries = 8

// Store handles Redis operations for the assignment collection and the
// scan-enabled flag.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Assignments retrieves the persisted collection
func (s *Store) Assignments(ctx context.Context) ([]domain.Assignment, error) {
	return readAssignments(ctx, s.client)
}

// Update applies fn inside a WATCH/MULTI transaction on the collection key.
// A concurrent write makes the transaction fail and fn runs again on the
// fresh value.
func (s *Store) Update(ctx context.Context, fn store.Mutation) error {
	txf := func(tx *redis.Tx) error {
		current, err := readAssignments(ctx, tx)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal assignments: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, store.KeyAssignments, data, 0)
			pipe.Publish(ctx, store.ChangesChannel, store.KeyAssignments)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, store.KeyAssignments)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrNoChange):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return err
		}
	}
	return fmt.Errorf("failed to update assignments: too much contention after %d attempts", maxTxRetries)
}

// SetCompleted flips the user-controlled completed flag.
func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	return s.Update(ctx, store.MarkCompleted(id, completed))
}

// Remove deletes one assignment.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.Update(ctx, store.Without(id))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readAssignments(ctx context.Context, c getter) ([]domain.Assignment, error) {
	data, err := c.Get(ctx, store.KeyAssignments).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Assignment{}, nil
		}
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}

	var items []domain.Assignment
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assignments: %w", err)
	}
	if items == nil {
		items = []domain.Assignment{}
	}
	return items, nil
}
