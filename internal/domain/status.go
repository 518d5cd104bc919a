package domain

import "time"

const (
	// DueSoonWindow is how close a deadline must be to count as "soon".
	DueSoonWindow = 48 * time.Hour
)

// DueState is the urgency of a single deadline.
type DueState string

const (
	DueStateNone    DueState = "none"
	DueStateSoon    DueState = "soon"
	DueStateOverdue DueState = "overdue"
)

// Bucket groups deadlines relative to the current calendar week.
type Bucket string

const (
	BucketNone    Bucket = "none"
	BucketOverdue Bucket = "overdue"
	BucketWeek    Bucket = "week"
	BucketFuture  Bucket = "future"
)

// StateOf classifies the urgency of due relative to now.
func StateOf(dueISO string, now time.Time) DueState {
	due, ok := ParseInstant(dueISO)
	if !ok {
		return DueStateNone
	}
	if due.Before(now) {
		return DueStateOverdue
	}
	if due.Sub(now) <= DueSoonWindow {
		return DueStateSoon
	}
	return DueStateNone
}

// BucketOf places due into overdue, this week, or later.
// Weeks run Sunday 00:00 to Saturday 23:59:59.999 in now's location.
func BucketOf(dueISO string, now time.Time) Bucket {
	due, ok := ParseInstant(dueISO)
	if !ok {
		return BucketNone
	}
	if due.Before(now) {
		return BucketOverdue
	}

	start, end := WeekBounds(now)
	if !due.Before(start) && !due.After(end) {
		return BucketWeek
	}
	return BucketFuture
}

// WeekBounds returns the first and last instant of the week containing t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d-int(t.Weekday())+6, 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}

// Summary counts assignments per bucket.
type Summary struct {
	Total   int `json:"total"`
	Overdue int `json:"overdue"`
	Week    int `json:"week"`
	Future  int `json:"future"`
}

// Summarize counts items per bucket at now. Undated items only count in Total.
func Summarize(items []Assignment, now time.Time) Summary {
	s := Summary{Total: len(items)}
	for _, item := range items {
		switch BucketOf(item.DueDateISO, now) {
		case BucketOverdue:
			s.Overdue++
		case BucketWeek:
			s.Week++
		case BucketFuture:
			s.Future++
		}
	}
	return s
}
