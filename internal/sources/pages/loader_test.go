package pages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/duewatch/internal/scanner"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeYAML(t, `---
pages:
  - name: math101
    url: https://webwork.example.edu/webwork2/math101/
  - name: chem
    url: https://canvas.example.edu/courses/3/assignments
    file: snapshots/chem.html
`)

	list, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(list.Pages) != 2 {
		t.Fatalf("Load() returned %d pages, want 2", len(list.Pages))
	}

	want := filepath.Join(filepath.Dir(path), "snapshots", "chem.html")
	if list.Pages[1].File != want {
		t.Errorf("relative file = %q, want %q", list.Pages[1].File, want)
	}
	if got := list.Snapshots(); len(got) != 1 || got[0].Name != "chem" {
		t.Errorf("Snapshots() = %+v, want only chem", got)
	}
}

func TestLoaderExpandsEnvironment(t *testing.T) {
	t.Setenv("LMS_HOST", "canvas.example.edu")
	path := writeYAML(t, `pages:
  - name: course
    url: https://${LMS_HOST}/courses/9
`)

	list, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := list.Pages[0].URL; got != "https://canvas.example.edu/courses/9" {
		t.Errorf("URL = %q", got)
	}
}

func TestLoaderRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing url", content: "pages:\n  - name: a\n"},
		{name: "bad url", content: "pages:\n  - name: a\n    url: not a url\n"},
		{name: "missing name", content: "pages:\n  - url: https://canvas.example.edu/\n"},
		{name: "duplicate names", content: "pages:\n  - name: a\n    url: https://a.example.edu/\n  - name: a\n    url: https://b.example.edu/\n"},
		{name: "broken yaml", content: "pages: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader(writeYAML(t, tt.content)).Load(); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Error("Load() error = nil for a missing file")
	}
}

func TestPageSource(t *testing.T) {
	f := scanner.NewFetcher(0, "")

	snap := Page{Name: "s", URL: "https://canvas.example.edu/a", File: "/tmp/s.html"}
	if _, ok := snap.Source(f).(scanner.FileSource); !ok {
		t.Errorf("snapshot page source = %T, want FileSource", snap.Source(f))
	}

	live := Page{Name: "l", URL: "https://canvas.example.edu/a"}
	src := live.Source(f)
	if _, ok := src.(scanner.HTTPSource); !ok {
		t.Errorf("live page source = %T, want HTTPSource", src)
	}
	if src.URL() != live.URL {
		t.Errorf("URL() = %q, want %q", src.URL(), live.URL)
	}
}
