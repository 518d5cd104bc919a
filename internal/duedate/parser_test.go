package duedate

import (
	"testing"
	"time"
)

func fixedParser() *Parser {
	now := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.Local)
	return New(WithClock(func() time.Time { return now }))
}

func TestParse(t *testing.T) {
	p := fixedParser()

	tests := []struct {
		name        string
		input       string
		want        time.Time
		wantDisplay string
	}{
		{
			name:        "month name with at and timezone",
			input:       "Jan 23, 2026 at 11:59 PM EST",
			want:        time.Date(2026, time.January, 23, 23, 59, 0, 0, time.Local),
			wantDisplay: "Jan 23, 2026 at 11:59 PM",
		},
		{
			name:        "numeric with due prefix and no year",
			input:       "Due: 3/5 11:59pm",
			want:        time.Date(2025, time.March, 5, 23, 59, 0, 0, time.Local),
			wantDisplay: "3/5 11:59pm",
		},
		{
			name:        "numeric with full year",
			input:       "due 12/15/2025 11:59pm",
			want:        time.Date(2025, time.December, 15, 23, 59, 0, 0, time.Local),
			wantDisplay: "12/15/2025 11:59pm",
		},
		{
			name:        "numeric without time defaults to end of day",
			input:       "Deadline 11-20-25",
			want:        time.Date(2025, time.November, 20, 23, 59, 0, 0, time.Local),
			wantDisplay: "11-20-25",
		},
		{
			name:        "numeric hour without minutes reads as the end of the hour",
			input:       "due 10/7 9am",
			want:        time.Date(2025, time.October, 7, 9, 59, 0, 0, time.Local),
			wantDisplay: "10/7 9am",
		},
		{
			name:        "numeric pm hour without minutes",
			input:       "due 10/7 5pm",
			want:        time.Date(2025, time.October, 7, 17, 59, 0, 0, time.Local),
			wantDisplay: "10/7 5pm",
		},
		{
			name:        "numeric dotted meridiem",
			input:       "due 10/7 5:30 p.m.",
			want:        time.Date(2025, time.October, 7, 17, 30, 0, 0, time.Local),
			wantDisplay: "10/7 5:30 p.m.",
		},
		{
			name:        "month name with dotted pm",
			input:       "Due: Jan 23, 2026 at 11:59 p.m.",
			want:        time.Date(2026, time.January, 23, 23, 59, 0, 0, time.Local),
			wantDisplay: "Jan 23, 2026 at 11:59 p.m.",
		},
		{
			name:        "month name with dotted pm and bare hour",
			input:       "Due Sep 9 at 3 p.m.",
			want:        time.Date(2025, time.September, 9, 15, 0, 0, 0, time.Local),
			wantDisplay: "Sep 9 at 3 p.m.",
		},
		{
			name:        "capitalised may is a month",
			input:       "Due May 3, 2026",
			want:        time.Date(2026, time.May, 3, 23, 59, 0, 0, time.Local),
			wantDisplay: "May 3, 2026",
		},
		{
			name:        "twelve am is midnight",
			input:       "due 10/7 12:30am",
			want:        time.Date(2025, time.October, 7, 0, 30, 0, 0, time.Local),
			wantDisplay: "10/7 12:30am",
		},
		{
			name:        "twelve pm stays noon",
			input:       "due 10/7 12:15 pm",
			want:        time.Date(2025, time.October, 7, 12, 15, 0, 0, time.Local),
			wantDisplay: "10/7 12:15 pm",
		},
		{
			name:        "due segment wins over start date",
			input:       "Start: Jan 5, 2026 at 9:00 AM Due: Jan 12, 2026 at 11:59 PM",
			want:        time.Date(2026, time.January, 12, 23, 59, 0, 0, time.Local),
			wantDisplay: "Jan 12, 2026 at 11:59 PM",
		},
		{
			name:        "weekday prefix and full month name",
			input:       "Due Monday, November 3rd, 2025 at 5pm",
			want:        time.Date(2025, time.November, 3, 17, 0, 0, 0, time.Local),
			wantDisplay: "Monday, November 3rd, 2025 at 5pm",
		},
		{
			name:        "month name without year or time",
			input:       "Oct 31",
			want:        time.Date(2025, time.October, 31, 23, 59, 0, 0, time.Local),
			wantDisplay: "Oct 31",
		},
		{
			name:        "iso timestamp from datetime attribute",
			input:       "2025-12-15T23:59:00Z",
			want:        time.Date(2025, time.December, 15, 23, 59, 0, 0, time.UTC),
			wantDisplay: "2025-12-15T23:59:00Z",
		},
		{
			name:        "whitespace is collapsed",
			input:       "  due\n\t Dec  1,   2025 ",
			want:        time.Date(2025, time.December, 1, 23, 59, 0, 0, time.Local),
			wantDisplay: "Dec 1, 2025",
		},
		{
			name:        "will open on with due is still parsed",
			input:       "Will open on Oct 1. Due Oct 8, 2025",
			want:        time.Date(2025, time.October, 8, 23, 59, 0, 0, time.Local),
			wantDisplay: "Oct 8, 2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.input)
			if !ok {
				t.Fatalf("Parse(%q) returned no result", tt.input)
			}
			if !got.Instant.Equal(tt.want) {
				t.Errorf("Parse(%q).Instant = %v, want %v", tt.input, got.Instant, tt.want)
			}
			if got.Display != tt.wantDisplay {
				t.Errorf("Parse(%q).Display = %q, want %q", tt.input, got.Display, tt.wantDisplay)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	p := fixedParser()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "only spaces", input: "   \n "},
		{name: "availability date", input: "will open on Jan 1"},
		{name: "no date at all", input: "Homework 3: vectors"},
		{name: "invalid calendar day", input: "due 4/31/2026"},
		{name: "invalid month", input: "due 13/01/2026"},
		{name: "invalid hour", input: "due 4/2/2026 25:10"},
		{name: "word starting like a month", input: "Total marks 10"},
		{name: "word starting like a month before a year", input: "Decimals 5, 2026"},
		{name: "lowercase may is a word", input: "Lab 4 may 3 attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := p.Parse(tt.input); ok {
				t.Errorf("Parse(%q) = %+v, want no result", tt.input, got)
			}
		})
	}
}

func TestResolveFlexibleFallbacks(t *testing.T) {
	p := fixedParser()
	want := time.Date(2026, time.January, 23, 23, 59, 0, 0, time.Local)

	if _, ok := p.parseDirect("Jan 23, 2026 at 11:59 PM EST"); ok {
		t.Fatal("direct parse should not accept the raw string")
	}
	if _, ok := p.parseDirect("Jan 23, 2026 11:59 PM EST"); ok {
		t.Fatal("direct parse should not accept a zone abbreviation")
	}

	got, ok := p.resolveFlexible("Jan 23, 2026 at 11:59 PM EST")
	if !ok {
		t.Fatal("resolveFlexible returned no result")
	}
	if !got.Equal(want) {
		t.Errorf("resolveFlexible() = %v, want %v", got, want)
	}
}

func TestResolveNumeric(t *testing.T) {
	p := fixedParser()

	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{name: "two digit year", input: "1/2/26", want: time.Date(2026, time.January, 2, 23, 59, 0, 0, time.Local), wantOK: true},
		{name: "hour only", input: "1/2/2026 8 am", want: time.Date(2026, time.January, 2, 8, 59, 0, 0, time.Local), wantOK: true},
		{name: "four digit year", input: "1-2-2026 8:05 pm", want: time.Date(2026, time.January, 2, 20, 5, 0, 0, time.Local), wantOK: true},
		{name: "leap day", input: "2/29/2028", want: time.Date(2028, time.February, 29, 23, 59, 0, 0, time.Local), wantOK: true},
		{name: "non leap day", input: "2/29/2027", wantOK: false},
		{name: "trailing text", input: "2/3 tomorrow", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.resolveNumeric(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("resolveNumeric(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("resolveNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeMonthText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Monday, January 5th, 2026 11:59pm", want: "Jan 5, 2026 11:59 PM"},
		{input: "Sept. 9 at 3 p.m.", want: "Sep 9 at 3 PM"},
		{input: "dec 1 ,2025", want: "Dec 1, 2025"},
		{input: "Total marks 10", want: "Total marks 10"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeMonthText(tt.input); got != tt.want {
				t.Errorf("normalizeMonthText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
