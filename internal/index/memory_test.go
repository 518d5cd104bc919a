package index

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

func TestNewMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	if idx == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	got, err := idx.Assignments(context.Background())
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("NewMemoryIndex() should start empty and non-nil, got %v", got)
	}
	if enabled, _ := idx.ScanEnabled(context.Background()); !enabled {
		t.Error("scan should be enabled by default")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	idx := NewMemoryIndex()

	idx.Replace([]domain.Assignment{{ID: "1"}})
	idx.Replace([]domain.Assignment{{ID: "2"}, {ID: "3"}})

	if idx.Count() != 2 {
		t.Errorf("Replace() should overwrite, got %v items want 2", idx.Count())
	}
	if idx.GetLastWrite().IsZero() {
		t.Error("GetLastWrite() should be set after Replace")
	}
}

func TestAssignmentsReturnsCopy(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Replace([]domain.Assignment{{ID: "1", Title: "orig"}})

	got, _ := idx.Assignments(context.Background())
	got[0].Title = "changed"

	again, _ := idx.Assignments(context.Background())
	if again[0].Title != "orig" {
		t.Errorf("caller mutated the index: %q", again[0].Title)
	}
}

func TestSetCompletedAndRemove(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	idx.Replace([]domain.Assignment{{ID: "a"}, {ID: "b"}})

	if err := idx.SetCompleted(ctx, "a", true); err != nil {
		t.Fatalf("SetCompleted() error = %v", err)
	}
	items, _ := idx.Assignments(ctx)
	if a, _ := store.Find(items, "a"); !a.Completed {
		t.Error("SetCompleted() did not set the flag")
	}

	if err := idx.SetCompleted(ctx, "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetCompleted(missing) error = %v, want ErrNotFound", err)
	}

	if err := idx.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if idx.Count() != 1 {
		t.Errorf("Count() = %d after Remove, want 1", idx.Count())
	}
	if err := idx.Remove(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Remove(a) twice error = %v, want ErrNotFound", err)
	}
}

func TestWatchNotifies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idx := NewMemoryIndex()

	changes, _ := idx.Watch(ctx)
	_ = idx.SetScanEnabled(ctx, false)

	select {
	case c := <-changes:
		if c.Key != store.KeyScanEnabled {
			t.Errorf("change key = %q, want %q", c.Key, store.KeyScanEnabled)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	if enabled, _ := idx.ScanEnabled(ctx); enabled {
		t.Error("ScanEnabled() = true after disabling")
	}

	cancel()
	for range changes {
	}
}

func TestNoChangeMutationDoesNotNotify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idx := NewMemoryIndex()
	idx.Replace([]domain.Assignment{{ID: "a", Completed: true}})

	changes, _ := idx.Watch(ctx)
	if err := idx.SetCompleted(ctx, "a", true); err != nil {
		t.Fatalf("SetCompleted() error = %v", err)
	}

	select {
	case c := <-changes:
		t.Errorf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Update(ctx, func(cur []domain.Assignment) ([]domain.Assignment, error) {
				return append(cur, domain.Assignment{ID: string(rune('a' + i))}), nil
			})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.Assignments(ctx)
			_ = idx.Count()
		}()
	}
	wg.Wait()

	if idx.Count() != 20 {
		t.Errorf("Count() = %d, want 20", idx.Count())
	}
}
