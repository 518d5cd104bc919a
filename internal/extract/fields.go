package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/duedate"
)

// firstText returns the text of the first selector whose first match has
// non-empty text.
func firstText(container *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		node := container.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := domain.SanitizeText(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// titleOf reads a container's title from the title selectors, falling back
// to the container's own text. A schedule summary is never a title.
func titleOf(container *goquery.Selection) string {
	for _, sel := range titleSelectors {
		node := container.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := domain.SanitizeText(node.Text()); utf8.RuneCountInString(text) > 3 {
			return text
		}
	}

	fallback := truncateRunes(domain.SanitizeText(container.Text()), fallbackTitleRunes)
	if fallback == "" || domain.IsScheduleLike(fallback) {
		return ""
	}
	return fallback
}

// dueOf finds the due date of a container. Due-marked elements are read
// attribute first; without one, the whole container is parsed, but only
// when it talks about a due date or deadline.
func (e *Extractor) dueOf(container *goquery.Selection) (duedate.Result, bool) {
	for _, sel := range dueSelectors {
		node := container.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, text := range dueTexts(node) {
			if due, ok := e.parser.Parse(text); ok {
				return due, true
			}
		}
	}

	block := domain.SanitizeText(container.Text())
	if !dueOrDeadline.MatchString(block) {
		return duedate.Result{}, false
	}
	return e.parser.Parse(block)
}

func dueTexts(node *goquery.Selection) []string {
	texts := make([]string, 0, len(dueAttributes)+1)
	for _, attr := range dueAttributes {
		if v, ok := node.Attr(attr); ok {
			if v = domain.SanitizeText(v); v != "" {
				texts = append(texts, v)
			}
		}
	}
	if v := domain.SanitizeText(node.Text()); v != "" {
		texts = append(texts, v)
	}
	return texts
}

// linkOf returns the first usable anchor in container as an absolute URL,
// or the page URL.
func linkOf(container *goquery.Selection, pageURL string) string {
	if link, ok := anchorLink(container, pageURL); ok {
		return link
	}
	return pageURL
}

func anchorLink(container *goquery.Selection, pageURL string) (string, bool) {
	var link string
	container.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if resolved, ok := resolveHref(href, pageURL); ok {
			link = resolved
			return false
		}
		return true
	})
	return link, link != ""
}

// resolveHref resolves href against the page. Script and fragment-only
// links are not links to an assignment.
func resolveHref(href, pageURL string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
