package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Source yields the current content tree of one page. Load is called once
// per attempt so sources that change between attempts are re-read.
type Source interface {
	// URL is the page location used for classification and link resolution.
	URL() string
	Load(ctx context.Context) (*goquery.Document, error)
}

// DocumentSource serves an already parsed document.
type DocumentSource struct {
	PageURL string
	Doc     *goquery.Document
}

func (s DocumentSource) URL() string { return s.PageURL }

func (s DocumentSource) Load(context.Context) (*goquery.Document, error) {
	if s.Doc == nil {
		return nil, fmt.Errorf("no document for %s", s.PageURL)
	}
	return s.Doc, nil
}

// HTMLSource parses raw markup handed over by a caller.
type HTMLSource struct {
	PageURL string
	HTML    string
}

func (s HTMLSource) URL() string { return s.PageURL }

func (s HTMLSource) Load(context.Context) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// FileSource reads a saved page snapshot from disk.
type FileSource struct {
	PageURL string
	Path    string
}

func (s FileSource) URL() string { return s.PageURL }

func (s FileSource) Load(context.Context) (*goquery.Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", s.Path, err)
	}
	return doc, nil
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a fetcher with a per-request timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if userAgent != "" {
		c.SetHeader("User-Agent", userAgent)
	}
	return &Fetcher{client: c}
}

// Source returns a source fetching pageURL on every Load.
func (f *Fetcher) Source(pageURL string) Source {
	return HTTPSource{PageURL: pageURL, fetcher: f}
}

// HTTPSource fetches a live page.
type HTTPSource struct {
	PageURL string
	fetcher *Fetcher
}

func (s HTTPSource) URL() string { return s.PageURL }

func (s HTTPSource) Load(ctx context.Context) (*goquery.Document, error) {
	resp, err := s.fetcher.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(s.PageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.PageURL, err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", s.PageURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.PageURL, err)
	}
	return doc, nil
}
