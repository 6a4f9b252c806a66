package teamcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed teams.yaml
var defaultFiles embed.FS

// Catalog maps team abbreviations to franchise names. Defaults are embedded;
// an optional override directory can add or rename entries (expansion teams,
// relocations) without a rebuild.
type Catalog struct {
	names map[string]string
}

type catalogFile struct {
	Teams map[string]string `yaml:"teams"`
}

// New loads the embedded team list and then applies overrides from dir if provided.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{names: make(map[string]string)}

	raw, err := fs.ReadFile(defaultFiles, "teams.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded teams: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyYAML(b []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse team catalog: %w", err)
	}
	for abbrev, name := range f.Teams {
		key := strings.ToUpper(strings.TrimSpace(abbrev))
		if key == "" || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid team entry %q: %q", abbrev, name)
		}
		c.names[key] = strings.TrimSpace(name)
	}
	return nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read catalog dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// Has reports whether abbrev names a known team.
func (c *Catalog) Has(abbrev string) bool {
	_, ok := c.names[strings.ToUpper(strings.TrimSpace(abbrev))]
	return ok
}

// Name returns the franchise name for abbrev, or "" when unknown.
func (c *Catalog) Name(abbrev string) string {
	return c.names[strings.ToUpper(strings.TrimSpace(abbrev))]
}

// Abbrevs returns all known abbreviations in ascending order.
func (c *Catalog) Abbrevs() []string {
	out := make([]string, 0, len(c.names))
	for k := range c.names {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
