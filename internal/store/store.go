// Package store defines the persistence collaborator shared by the Redis
// store and the in-memory index.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
)

const (
	// KeyAssignments holds the JSON array of assignments.
	KeyAssignments = "duewatch:assignments"
	// KeyScanEnabled holds the scan-enabled flag.
	KeyScanEnabled = "duewatch:scan-enabled"
	// ChangesChannel carries the name of every key written.
	ChangesChannel = "duewatch:changes"
)

var (
	// ErrNotFound is returned when an assignment id is unknown.
	ErrNotFound = errors.New("assignment not found")
	// ErrNoChange aborts an Update without writing.
	ErrNoChange = errors.New("no change")
)

// Change is a notification that a key was written.
type Change struct {
	Key string
	At  time.Time
}

// Mutation computes the next collection from the current one. Returning
// ErrNoChange leaves the stored collection untouched.
type Mutation func(current []domain.Assignment) ([]domain.Assignment, error)

// Store persists the assignment collection and the scan-enabled flag.
type Store interface {
	// Assignments returns the persisted collection, empty when nothing was
	// ever stored.
	Assignments(ctx context.Context) ([]domain.Assignment, error)

	// Update runs a read-modify-write of the collection as one step.
	Update(ctx context.Context, fn Mutation) error

	SetCompleted(ctx context.Context, id string, completed bool) error
	Remove(ctx context.Context, id string) error

	// ScanEnabled reports the flag; absent means enabled.
	ScanEnabled(ctx context.Context) (bool, error)
	SetScanEnabled(ctx context.Context, enabled bool) error

	// Watch delivers a Change for every write until ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)

	Ping(ctx context.Context) error
}

// MarkCompleted sets the completed flag of one assignment.
func MarkCompleted(id string, completed bool) Mutation {
	return func(current []domain.Assignment) ([]domain.Assignment, error) {
		for i := range current {
			if current[i].ID != id {
				continue
			}
			if current[i].Completed == completed {
				return nil, ErrNoChange
			}
			next := append([]domain.Assignment(nil), current...)
			next[i].Completed = completed
			return next, nil
		}
		return nil, ErrNotFound
	}
}

// Without removes one assignment.
func Without(id string) Mutation {
	return func(current []domain.Assignment) ([]domain.Assignment, error) {
		for i := range current {
			if current[i].ID == id {
				next := make([]domain.Assignment, 0, len(current)-1)
				next = append(next, current[:i]...)
				return append(next, current[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	}
}

// Find returns the assignment with id.
func Find(items []domain.Assignment, id string) (domain.Assignment, bool) {
	for _, a := range items {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Assignment{}, false
}
