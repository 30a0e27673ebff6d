package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a catalog from a YAML file.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return c, nil
}

// WriteYAML writes the catalog to a YAML file at the given path.
func (c *Catalog) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// ToYAML returns the catalog as YAML.
func (c *Catalog) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ToJSON returns the catalog as indented JSON.
func (c *Catalog) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Summary returns a human-readable summary of the catalog.
func (c *Catalog) Summary() string {
	var totalRows, totalSize int64
	var totalCols int
	for _, r := range c.Resources {
		totalRows += r.RowCount
		totalSize += r.SizeBytes
		totalCols += len(r.Columns)
	}

	unit := "tables"
	if c.Type == "mongodb" {
		unit = "collections"
	}
	return fmt.Sprintf(
		"%s (%s): %d %s, %d columns described\nTotal rows: %d, Total size: %s",
		c.Connection, c.Type, len(c.Resources), unit, totalCols, totalRows, formatBytes(totalSize),
	)
}

func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.1f TB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
