package redis

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// Watch subscribes to the changes channel. The returned channel is closed
// when ctx is done or the subscription drops.
func (s *Store) Watch(ctx context.Context) (<-chan store.Change, error) {
	sub := s.client.Subscribe(ctx, store.ChangesChannel)

	// Wait for the subscription confirmation so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", store.ChangesChannel, err)
	}

	out := make(chan store.Change, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- store.Change{Key: msg.Payload, At: s.now()}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
