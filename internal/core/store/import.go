package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dailypick/dailypick/internal/core"
)

// CatalogFile is the YAML layout accepted by ParseCandidatesYAML.
//
//	candidates:
//	  - id: cedar
//	    name: Cedar
//	    category: tree
//	    tags: [evergreen]
//	overrides:
//	  "2025-12-25": cedar
type CatalogFile struct {
	Candidates []CatalogEntry    `yaml:"candidates"`
	Overrides  map[string]string `yaml:"overrides,omitempty"`
}

// CatalogEntry is one candidate in a catalog file.
type CatalogEntry struct {
	ID       string   `yaml:"id,omitempty"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

// ParseCandidatesYAML decodes a catalog file. A bare top-level list of entries
// is accepted as well.
func ParseCandidatesYAML(r io.Reader) (CatalogFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return CatalogFile{}, fmt.Errorf("read catalog: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return CatalogFile{}, errors.New("catalog is empty")
	}

	var file CatalogFile
	if trimmed[0] == '-' {
		if err := yaml.Unmarshal(trimmed, &file.Candidates); err != nil {
			return CatalogFile{}, fmt.Errorf("invalid yaml: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &file); err != nil {
		return CatalogFile{}, fmt.Errorf("invalid yaml: %w", err)
	}

	for i, entry := range file.Candidates {
		if strings.TrimSpace(entry.Name) == "" {
			return CatalogFile{}, fmt.Errorf("candidate %d: name is required", i+1)
		}
	}
	for date := range file.Overrides {
		if _, err := core.ParseDate(date); err != nil {
			return CatalogFile{}, fmt.Errorf("override %q: %w", date, err)
		}
	}

	return file, nil
}

// CoreCandidates converts the file entries to catalog candidates.
func (f CatalogFile) CoreCandidates() []core.Candidate {
	out := make([]core.Candidate, 0, len(f.Candidates))
	for _, entry := range f.Candidates {
		out = append(out, core.Candidate{
			ID:       entry.ID,
			Name:     entry.Name,
			Category: entry.Category,
			Tags:     entry.Tags,
		})
	}
	return out
}
