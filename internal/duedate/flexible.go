package duedate

import (
	"regexp"
	"strings"
	"time"
)

var (
	atWord         = regexp.MustCompile(`(?i)\s+at\s+`)
	tzAbbreviation = regexp.MustCompile(`(?i)\s+(?:est|edt|cst|cdt|mst|mdt|pst|pdt)\b`)

	leadingWeekday = regexp.MustCompile(`(?i)^` + weekdayNames + `\.?,?\s+`)
	monthToken     = regexp.MustCompile(`(?i)\b` + monthNames + `\.?`)
	ordinalSuffix  = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
	meridiem       = regexp.MustCompile(`(?i)(\d)\s*([ap])\.?m\b\.?`)
	commaSpacing   = regexp.MustCompile(`\s*,\s*`)
)

// dateLayouts are tried against normalised month-name text.
var dateLayouts = []struct {
	layout string
	noYear bool
}{
	{layout: "Jan 2, 2006"},
	{layout: "Jan 2 2006"},
	{layout: "Jan 2, 06"},
	{layout: "Jan 2", noYear: true},
}

// timeLayouts follow a date layout. The empty layout means date only.
var timeLayouts = []string{
	"",
	" 3:04 PM",
	" 3 PM",
	" 15:04",
	", 3:04 PM",
	", 3 PM",
	", 15:04",
}

// zonedISOLayouts carry their own offset.
var zonedISOLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
}

// localISOLayouts are read in the parser's location.
var localISOLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// resolveFlexible reads a free-text date: as-is first, then with " at "
// removed, then with US zone abbreviations stripped.
func (p *Parser) resolveFlexible(text string) (time.Time, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return time.Time{}, false
	}

	if t, ok := p.parseDirect(cleaned); ok {
		return t, true
	}

	withoutAt := replaceFirst(atWord, cleaned, " ")
	if t, ok := p.parseDirect(withoutAt); ok {
		return t, true
	}

	withoutTz := strings.TrimSpace(tzAbbreviation.ReplaceAllString(withoutAt, ""))
	if t, ok := p.parseDirect(withoutTz); ok {
		return t, true
	}

	return time.Time{}, false
}

// parseDirect is the calendar parser behind every flexible attempt. It
// knows ISO-8601 and English month-name dates with an optional time; a
// zone abbreviation or an "at" makes it fail, which the callers rely on.
func (p *Parser) parseDirect(text string) (time.Time, bool) {
	if t, ok := p.parseISO(text); ok {
		return t, true
	}

	s := normalizeMonthText(text)
	for _, d := range dateLayouts {
		for i, tl := range timeLayouts {
			t, err := time.ParseInLocation(d.layout+tl, s, p.loc)
			if err != nil {
				continue
			}

			year := t.Year()
			if d.noYear {
				year = p.now().In(p.loc).Year()
			}
			hours, minutes := t.Hour(), t.Minute()
			if i == 0 {
				hours, minutes = 23, 59
			}
			return p.date(year, int(t.Month()), t.Day(), hours, minutes)
		}
	}
	return time.Time{}, false
}

func (p *Parser) parseISO(text string) (time.Time, bool) {
	for _, layout := range zonedISOLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	for _, layout := range localISOLayouts {
		if t, err := time.ParseInLocation(layout, text, p.loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", text, p.loc); err == nil {
		return p.date(t.Year(), int(t.Month()), t.Day(), 23, 59)
	}
	return time.Time{}, false
}

// normalizeMonthText rewrites month-name dates into the shape the layouts
// expect: "Monday, January 5th, 2026 11:59pm" -> "Jan 5, 2026 11:59 PM".
func normalizeMonthText(text string) string {
	s := collapseSpaces(text)
	s = leadingWeekday.ReplaceAllString(s, "")
	s = monthToken.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(m[:1]) + strings.ToLower(m[1:3])
	})
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = meridiem.ReplaceAllStringFunc(s, func(m string) string {
		sub := meridiem.FindStringSubmatch(m)
		return sub[1] + " " + strings.ToUpper(sub[2]) + "M"
	})
	s = commaSpacing.ReplaceAllString(s, ", ")
	return strings.TrimSpace(s)
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
