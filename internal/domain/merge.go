package domain

import (
	"sort"
	"time"
)

// DefaultMaxAssignments caps the persisted collection.
const DefaultMaxAssignments = 1000

// Merger reconciles extraction batches with the persisted collection.
type Merger struct {
	// Max is the capacity of the merged collection (DefaultMaxAssignments if <= 0).
	Max int
}

// NewMerger creates a merger with the given capacity.
func NewMerger(max int) *Merger {
	if max <= 0 {
		max = DefaultMaxAssignments
	}
	return &Merger{Max: max}
}

// Merge folds incoming into existing and returns the new collection.
//
// Identity decides sameness. An incoming candidate overwrites the extracted
// fields of a previous record with the same ID while Completed and
// FirstSeenAt survive. LastSeenAt is set to now for every incoming item.
// Schedule-like titles are dropped from both sides. The result is sorted by
// due date ascending and truncated to Max, discarding the furthest future.
//
// Merge does not mutate its inputs.
func (m *Merger) Merge(existing []Assignment, incoming []Candidate, now time.Time) []Assignment {
	stamp := FormatInstant(now)

	byID := make(map[string]int, len(existing)+len(incoming))
	merged := make([]Assignment, 0, len(existing)+len(incoming))

	// Existing records keep their relative order; a duplicate ID keeps the
	// first slot but takes the later value, as a keyed insert would.
	for _, item := range existing {
		if IsScheduleLike(item.Title) {
			continue
		}
		if i, ok := byID[item.ID]; ok {
			merged[i] = item
			continue
		}
		byID[item.ID] = len(merged)
		merged = append(merged, item)
	}

	for _, item := range incoming {
		if IsScheduleLike(item.Title) {
			continue
		}

		i, seen := byID[item.ID]
		var next Assignment
		if seen {
			next = merged[i]
		}

		next.ID = item.ID
		next.Title = item.Title
		next.DueDateISO = item.DueDateISO
		next.DueDateText = item.DueDateText
		next.AssignmentURL = item.AssignmentURL
		next.SourceURL = item.SourceURL
		next.UpdatedAt = item.UpdatedAt
		if next.FirstSeenAt == "" {
			next.FirstSeenAt = stamp
		}
		next.LastSeenAt = stamp

		if seen {
			merged[i] = next
			continue
		}
		byID[item.ID] = len(merged)
		merged = append(merged, next)
	}

	SortByDue(merged)

	if len(merged) > m.max() {
		merged = merged[:m.max()]
	}
	return merged
}

func (m *Merger) max() int {
	if m == nil || m.Max <= 0 {
		return DefaultMaxAssignments
	}
	return m.Max
}

// SortByDue orders assignments by due instant ascending. Records whose due
// date does not parse sort after every dated record, in their input order.
func SortByDue(items []Assignment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := items[i].DueAt()
		b, bok := items[j].DueAt()
		switch {
		case aok && bok:
			return a.Before(b)
		case aok:
			return true
		default:
			return false
		}
	})
}
