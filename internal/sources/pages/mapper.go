package pages

import "github.com/MrSnakeDoc/duewatch/internal/scanner"

// Source maps a page to the scanner source that reads it: its snapshot
// when one is configured, the live page otherwise.
func (p Page) Source(f *scanner.Fetcher) scanner.Source {
	if p.File != "" {
		return scanner.FileSource{PageURL: p.URL, Path: p.File}
	}
	return f.Source(p.URL)
}

// Snapshots returns the pages read from local files.
func (w *WatchList) Snapshots() []Page {
	var out []Page
	for _, p := range w.Pages {
		if p.File != "" {
			out = append(out, p)
		}
	}
	return out
}
