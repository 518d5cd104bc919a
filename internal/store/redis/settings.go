package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// ScanEnabled reads the flag. Only an explicit false disables persistence.
func (s *Store) ScanEnabled(ctx context.Context) (bool, error) {
	raw, err := s.client.Get(ctx, store.KeyScanEnabled).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return true, fmt.Errorf("failed to get scan flag: %w", err)
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

// SetScanEnabled writes the flag and announces the change
func (s *Store) SetScanEnabled(ctx context.Context, enabled bool) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, store.KeyScanEnabled, strconv.FormatBool(enabled), 0)
	pipe.Publish(ctx, store.ChangesChannel, store.KeyScanEnabled)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save scan flag: %w", err)
	}
	return nil
}
