// Package duedate recovers a calendar instant from the free-form due date
// strings that learning platforms print next to assignments.
package duedate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is a resolved due date.
type Result struct {
	// Instant is always a valid time; unresolvable input yields no Result.
	Instant time.Time
	// Display is the fragment the instant was read from.
	Display string
}

// Month and weekday spellings. A lowercase "may" is an ordinary word far
// more often than a month, so only May and MAY count.
const (
	monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|(?-i:May|MAY)|june?|july?|` +
		`aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`
	weekdayNames = `(?:mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|` +
		`fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`
	// meridiemToken accepts am, pm, a.m. and p.m.
	meridiemToken = `[ap]\.?m\b\.?`
)

var (
	dueWord   = regexp.MustCompile(`(?i)due`)
	duePrefix = regexp.MustCompile(`(?i)^due[:\s-]*`)

	// monthPattern finds "Mon, Jan 5, 2026 at 11:59 pm" and its many
	// shortened variants.
	monthPattern = regexp.MustCompile(`(?i)\b(?:due[:\s-]*)?` +
		`(?:` + weekdayNames + `\.?,?\s*)?` +
		monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?` +
		`(?:,\s*\d{2,4}|\s+\d{4})?` +
		`(?:,?\s+(?:at\s+)?\d{1,2}:\d{2}\s*(?:` + meridiemToken + `)?|,?\s+(?:at\s+)?\d{1,2}\s*(?:` + meridiemToken + `)|\s+at\s+\d{1,2})?`)

	// numericPattern finds "3/5", "12-15-25 11:59pm" and similar.
	numericPattern = regexp.MustCompile(`(?i)\b(?:due[:\s-]*)?` +
		`(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?(?:\s+\d{1,2}(?::\d{2})?\s*(?:` + meridiemToken + `)?)?)`)

	numericStrict = regexp.MustCompile(`(?i)^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?` +
		`(?:\s+(\d{1,2})(?::(\d{2}))?\s*(?:([ap])\.?m\.?)?)?$`)

	isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?$`)
)

// Parser resolves due date text. The zero value is not usable; use New.
type Parser struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used to default a missing year.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the zone ambiguous local times are read in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

// New creates a parser reading local times in time.Local.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	return p
}

var defaultParser = New()

// Parse resolves raw with the default parser.
func Parse(raw string) (Result, bool) {
	return defaultParser.Parse(raw)
}

// Parse resolves raw into a due instant.
//
// When the text mentions "due", the part from that word on is searched
// first, so a line carrying both "Start: ..." and "Due: ..." anchors on the
// deadline. The whole text is searched next, month-name dates before
// numeric ones, and a last attempt reads the whole text as a date.
func (p *Parser) Parse(raw string) (Result, bool) {
	text := collapseSpaces(raw)
	if text == "" {
		return Result{}, false
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "will open on") && !strings.Contains(lower, "due") {
		return Result{}, false
	}

	// Machine timestamps from datetime attributes.
	if isoPattern.MatchString(text) {
		if t, ok := p.parseISO(text); ok {
			return Result{Instant: t, Display: text}, true
		}
	}

	if loc := dueWord.FindStringIndex(text); loc != nil {
		segment := strings.TrimSpace(duePrefix.ReplaceAllString(text[loc[0]:], ""))
		if r, ok := p.matchMonthDate(segment); ok {
			return r, true
		}
		if r, ok := p.matchNumericDate(segment); ok {
			return r, true
		}
	}

	if r, ok := p.matchMonthDate(text); ok {
		return r, true
	}
	if r, ok := p.matchNumericDate(text); ok {
		return r, true
	}

	if t, ok := p.resolveFlexible(text); ok {
		return Result{Instant: t, Display: text}, true
	}
	return Result{}, false
}

func (p *Parser) matchMonthDate(text string) (Result, bool) {
	match := monthPattern.FindString(text)
	if match == "" {
		return Result{}, false
	}
	display := strings.TrimSpace(duePrefix.ReplaceAllString(match, ""))
	t, ok := p.resolveFlexible(display)
	if !ok {
		return Result{}, false
	}
	return Result{Instant: t, Display: display}, true
}

func (p *Parser) matchNumericDate(text string) (Result, bool) {
	m := numericPattern.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	t, ok := p.resolveNumeric(m[1])
	if !ok {
		return Result{}, false
	}
	return Result{Instant: t, Display: m[1]}, true
}

// resolveNumeric reads MM/DD[/YY[YY]] [HH[:MM] [am|pm]].
// A missing year is the current year, a missing time is 23:59 and an hour
// without minutes is read as HH:59.
func (p *Parser) resolveNumeric(raw string) (time.Time, bool) {
	m := numericStrict.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year := p.normalizeYear(m[3])

	hours, minutes := 23, 59
	if m[4] != "" {
		hours, _ = strconv.Atoi(m[4])
		if m[5] != "" {
			minutes, _ = strconv.Atoi(m[5])
		}
	}

	switch strings.ToLower(m[6]) {
	case "p":
		if hours < 12 {
			hours += 12
		}
	case "a":
		if hours == 12 {
			hours = 0
		}
	}

	return p.date(year, month, day, hours, minutes)
}

func (p *Parser) normalizeYear(text string) int {
	if text == "" {
		return p.now().In(p.loc).Year()
	}
	year, _ := strconv.Atoi(text)
	if year < 100 {
		return 2000 + year
	}
	return year
}

// date builds a local instant, refusing values time.Date would normalise
// (Feb 30, 24:00 and so on).
func (p *Parser) date(year, month, day, hours, minutes int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hours, minutes, 0, 0, p.loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
