// Package extract locates assignment-like structures in a page and reads a
// title, due date and link out of each one.
package extract

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/duedate"
)

// Extractor turns a page into a deduplicated batch of candidates.
type Extractor struct {
	parser     *duedate.Parser
	now        func() time.Time
	strategies []strategy
}

// strategy is one way of reading a whole page. The first strategy that
// applies to the page location is the only one used.
type strategy interface {
	name() string
	applies(pageURL string) bool
	extract(e *Extractor, doc *goquery.Document, pageURL string) []domain.Candidate
}

// New creates an extractor. A nil parser uses duedate defaults and a nil
// clock uses time.Now.
func New(parser *duedate.Parser, now func() time.Time) *Extractor {
	if parser == nil {
		parser = duedate.New()
	}
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		parser: parser,
		now:    now,
		strategies: []strategy{
			vendorCardStrategy{},
			generalStrategy{},
		},
	}
}

// Extract returns the candidates found in doc, deduplicated by ID with the
// first occurrence kept. It never fails: a page without assignments yields
// an empty batch.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) []domain.Candidate {
	if doc == nil {
		return nil
	}
	for _, s := range e.strategies {
		if s.applies(pageURL) {
			return dedupe(s.extract(e, doc, pageURL))
		}
	}
	return nil
}

// Strategy names the strategy Extract would use for pageURL.
func (e *Extractor) Strategy(pageURL string) string {
	for _, s := range e.strategies {
		if s.applies(pageURL) {
			return s.name()
		}
	}
	return ""
}

func (e *Extractor) candidate(title, link, pageURL string, due duedate.Result) domain.Candidate {
	iso := domain.FormatInstant(due.Instant)
	return domain.Candidate{
		ID:            domain.MakeID(title, link, iso),
		Title:         title,
		DueDateISO:    iso,
		DueDateText:   due.Display,
		AssignmentURL: link,
		SourceURL:     pageURL,
		UpdatedAt:     domain.FormatInstant(e.now()),
	}
}

func dedupe(items []domain.Candidate) []domain.Candidate {
	seen := make(map[string]bool, len(items))
	out := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

// gather returns every element matching any selector, once each, ordered
// by selector and then by document order.
func gather(doc *goquery.Document, selectors []string) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var out []*goquery.Selection
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if seen[node] {
				return
			}
			seen[node] = true
			out = append(out, s)
		})
	}
	return out
}
