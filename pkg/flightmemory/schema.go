package flightmemory

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed schema/v1.yaml
var schemaV1 []byte

// Schema is a versioned positional column layout for scraped rows.
type Schema struct {
	Version string   `yaml:"version"`
	Columns []string `yaml:"columns"`

	index map[string]int
}

// SchemaError reports a row that does not fit the layout.
type SchemaError struct {
	Version string
	Row     int
	Got     int
	Want    int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("row %d has %d columns, %s expects %d", e.Row, e.Got, e.Version, e.Want)
}

// V1 returns the current flight list layout.
func V1() (*Schema, error) {
	return ParseSchema(schemaV1)
}

// ParseSchema decodes a YAML schema document.
func ParseSchema(b []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if s.Version == "" || len(s.Columns) == 0 {
		return nil, fmt.Errorf("schema needs a version and at least one column")
	}
	s.index = make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("schema %s: duplicate column %q", s.Version, c)
		}
		s.index[c] = i
	}
	return &s, nil
}

// Validate fails when cells does not have exactly one value per column.
func (s *Schema) Validate(row int, cells []string) error {
	if len(cells) != len(s.Columns) {
		return &SchemaError{Version: s.Version, Row: row, Got: len(cells), Want: len(s.Columns)}
	}
	return nil
}

// Field returns the named cell of a validated row.
func (s *Schema) Field(cells []string, name string) string {
	i, ok := s.index[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}
