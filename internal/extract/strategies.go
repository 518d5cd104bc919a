package extract

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
)

var (
	dueWord       = regexp.MustCompile(`(?i)\bdue\b`)
	dueOrDeadline = regexp.MustCompile(`(?i)\b(?:due|deadline)\b`)
)

const (
	strategyVendor  = "vendor-card"
	strategyGeneral = "general"
)

// vendorCardStrategy reads only the courseware vendor's assignment cards.
type vendorCardStrategy struct{}

func (vendorCardStrategy) name() string { return strategyVendor }

func (vendorCardStrategy) applies(pageURL string) bool {
	return domain.IsVendorCardHost(pageURL)
}

func (vendorCardStrategy) extract(e *Extractor, doc *goquery.Document, pageURL string) []domain.Candidate {
	var out []domain.Candidate
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		if c, ok := e.readCard(card, pageURL); ok {
			out = append(out, c)
		}
	})
	return out
}

// readCard applies the vendor card field rules. Card links always point at
// the page: the cards open through script handlers, not anchors.
func (e *Extractor) readCard(card *goquery.Selection, pageURL string) (domain.Candidate, bool) {
	title := firstText(card, cardTitleSelectors)
	if title == "" || domain.IsScheduleLike(title) {
		return domain.Candidate{}, false
	}

	dueText := firstText(card, cardDueSelectors)
	if dueText == "" {
		dueText = domain.SanitizeText(card.Text())
	}
	if dueText == "" || !dueWord.MatchString(dueText) {
		return domain.Candidate{}, false
	}

	due, ok := e.parser.Parse(dueText)
	if !ok {
		return domain.Candidate{}, false
	}
	return e.candidate(title, pageURL, pageURL, due), true
}

// generalStrategy walks every structural container and dispatches on its
// shape.
type generalStrategy struct{}

func (generalStrategy) name() string { return strategyGeneral }

func (generalStrategy) applies(string) bool { return true }

func (generalStrategy) extract(e *Extractor, doc *goquery.Document, pageURL string) []domain.Candidate {
	var out []domain.Candidate
	for _, container := range gather(doc, candidateSelectors) {
		if c, ok := e.readContainer(container, pageURL); ok {
			out = append(out, c)
		}
	}
	return out
}

// shape is the layout convention a container follows.
type shape int

const (
	shapeCardPart shape = iota
	shapeCard
	shapeRow
	shapeGeneric
)

// outcome of a shape handler.
type outcome int

const (
	// emitted: the handler produced a candidate.
	emitted outcome = iota
	// rejected: the container is done, nothing is produced.
	rejected
	// passed: the handler does not apply, the next shape gets a turn.
	passed
)

type shapeHandler func(e *Extractor, container *goquery.Selection, pageURL string) (domain.Candidate, outcome)

// shapeHandlers are tried in order for every container whose shape is at
// least as specific as the handler's.
var shapeHandlers = []struct {
	shape   shape
	handler shapeHandler
}{
	{shapeCard, (*Extractor).handleCard},
	{shapeRow, (*Extractor).handleRow},
	{shapeGeneric, (*Extractor).handleGeneric},
}

func classify(container *goquery.Selection) shape {
	isCard := container.Is(cardSelector)
	switch {
	case !isCard && (container.Find(cardSelector).Length() > 0 || container.Parents().Is(cardSelector)):
		return shapeCardPart
	case isCard || container.Find(cardTitleSelector).Length() > 0:
		return shapeCard
	case container.Is("tr"):
		return shapeRow
	default:
		return shapeGeneric
	}
}

func (e *Extractor) readContainer(container *goquery.Selection, pageURL string) (domain.Candidate, bool) {
	kind := classify(container)
	// Wrappers and pieces of a card: the card is visited on its own.
	if kind == shapeCardPart {
		return domain.Candidate{}, false
	}

	for _, h := range shapeHandlers {
		if h.shape < kind {
			continue
		}
		c, result := h.handler(e, container, pageURL)
		switch result {
		case emitted:
			if domain.IsScheduleLike(c.Title) {
				return domain.Candidate{}, false
			}
			return c, true
		case rejected:
			return domain.Candidate{}, false
		}
	}
	return domain.Candidate{}, false
}

func (e *Extractor) handleCard(container *goquery.Selection, pageURL string) (domain.Candidate, outcome) {
	if container.Closest(cardListSelector).Length() == 0 {
		return domain.Candidate{}, rejected
	}
	if c, ok := e.readCard(container, pageURL); ok {
		return c, emitted
	}
	return domain.Candidate{}, passed
}

// handleRow reads table rows where the first cell names the assignment
// and the second carries its status or due text.
func (e *Extractor) handleRow(row *goquery.Selection, pageURL string) (domain.Candidate, outcome) {
	if !row.Is("tr") {
		return domain.Candidate{}, passed
	}
	cells := row.Find("td")
	if cells.Length() < 2 {
		return domain.Candidate{}, passed
	}

	status := domain.SanitizeText(cells.Eq(1).Text())
	if !dueOrDeadline.MatchString(status) {
		return domain.Candidate{}, rejected
	}
	due, ok := e.parser.Parse(status)
	if !ok {
		return domain.Candidate{}, rejected
	}

	first := cells.Eq(0)
	title := domain.SanitizeText(first.Text())
	if title == "" {
		title = titleOf(row)
	}
	if title == "" {
		return domain.Candidate{}, rejected
	}

	link, ok := anchorLink(first, pageURL)
	if !ok {
		link = linkOf(row, pageURL)
	}
	return e.candidate(title, link, pageURL, due), emitted
}

func (e *Extractor) handleGeneric(container *goquery.Selection, pageURL string) (domain.Candidate, outcome) {
	due, ok := e.dueOf(container)
	if !ok {
		return domain.Candidate{}, rejected
	}
	title := titleOf(container)
	if title == "" {
		return domain.Candidate{}, rejected
	}
	return e.candidate(title, linkOf(container, pageURL), pageURL, due), emitted
}
