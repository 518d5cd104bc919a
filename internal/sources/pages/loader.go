package pages

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the pages yaml file
type Loader struct {
	filePath string
	validate *validator.Validate
}

// NewLoader creates a new watch list loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		validate: validator.New(),
	}
}

// Path returns the watch list location.
func (l *Loader) Path() string { return l.filePath }

// Load reads, expands and validates the watch list. ${VAR} references are
// replaced from the environment before parsing; relative snapshot paths are
// resolved against the watch list's directory.
func (l *Loader) Load() (*WatchList, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var list WatchList
	if err := yaml.Unmarshal([]byte(expanded), &list); err != nil {
		return nil, fmt.Errorf("failed to parse pages yaml: %w", err)
	}

	if err := l.validate.Struct(&list); err != nil {
		return nil, fmt.Errorf("invalid pages file %s: %w", l.filePath, err)
	}

	base := filepath.Dir(l.filePath)
	seen := make(map[string]bool, len(list.Pages))
	for i := range list.Pages {
		p := &list.Pages[i]
		if seen[p.Name] {
			return nil, fmt.Errorf("invalid pages file %s: duplicate page name %q", l.filePath, p.Name)
		}
		seen[p.Name] = true

		if p.File != "" && !filepath.IsAbs(p.File) {
			p.File = filepath.Join(base, p.File)
		}
	}

	return &list, nil
}
