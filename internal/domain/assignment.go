package domain

import (
	"strings"
	"time"
)

// ISOLayout is the persisted form of every instant: UTC, millisecond
// precision, fixed width. Values in this layout sort lexicographically.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// NoDateMarker stands in for a missing due date when computing an identity.
const NoDateMarker = "no-date"

// Candidate is one assignment found on one page during one scan.
//
// It is transient: it only becomes persisted knowledge once MergeStore
// folds it into the collection as an Assignment.
type Candidate struct {
	// ID is the identity derived from (title, link, due date).
	ID string `json:"id"`

	// Title is the display name. Never schedule-like.
	Title string `json:"title"`

	// DueDateISO is the due instant in ISOLayout.
	DueDateISO string `json:"dueDateISO"`

	// DueDateText is the fragment a human would recognise as the due date.
	DueDateText string `json:"dueDateText"`

	// AssignmentURL links to the assignment itself, or to the page when
	// no better link exists.
	AssignmentURL string `json:"assignmentUrl"`

	// SourceURL is the page the candidate was found on.
	SourceURL string `json:"sourceUrl"`

	// UpdatedAt is the extraction time in ISOLayout.
	UpdatedAt string `json:"updatedAt"`
}

// Assignment is the unit of persisted knowledge.
type Assignment struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DueDateISO    string `json:"dueDateISO"`
	DueDateText   string `json:"dueDateText"`
	AssignmentURL string `json:"assignmentUrl"`
	SourceURL     string `json:"sourceUrl"`
	UpdatedAt     string `json:"updatedAt"`

	// FirstSeenAt is set by the first merge that saw this identity and
	// never changes afterwards.
	FirstSeenAt string `json:"firstSeenAt"`

	// LastSeenAt is refreshed by every merge that sees this identity.
	LastSeenAt string `json:"lastSeenAt"`

	// Completed is user-controlled. Extraction never sets it.
	Completed bool `json:"completed"`
}

// MakeID computes the case-insensitive identity of an assignment.
func MakeID(title, link, dueISO string) string {
	if dueISO == "" {
		dueISO = NoDateMarker
	}
	return strings.ToLower(title + "||" + link + "||" + dueISO)
}

// FormatInstant renders t in ISOLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseInstant parses a persisted instant. It accepts any RFC 3339 value so
// records written by older tools still load.
func ParseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DueAt returns the parsed due instant of a candidate.
func (c Candidate) DueAt() (time.Time, bool) {
	return ParseInstant(c.DueDateISO)
}

// DueAt returns the parsed due instant of an assignment.
func (a Assignment) DueAt() (time.Time, bool) {
	return ParseInstant(a.DueDateISO)
}

// IsScheduleLike reports whether text describes a start/due window rather
// than naming an assignment.
func IsScheduleLike(text string) bool {
	lower := strings.ToLower(SanitizeText(text))
	return strings.Contains(lower, "start:") && strings.Contains(lower, "due:")
}

// SanitizeText collapses every whitespace run to one space and trims.
func SanitizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
