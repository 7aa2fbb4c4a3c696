// Package catalog holds the degree option table that drives the dependent
// year and stream fields of the registration form.
//
// A Catalog is built once at startup and never mutated afterwards. Lookups for
// an unset or unknown degree return an empty list rather than an error, so the
// dependent fields simply have nothing to offer until a degree is chosen.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed degrees.yaml
var defaultData []byte

// Degree is one catalog entry with its ordered option lists.
type Degree struct {
	Code    string   `yaml:"code" json:"code"`
	Label   string   `yaml:"label" json:"label"`
	Years   []string `yaml:"years" json:"years"`
	Streams []string `yaml:"streams" json:"streams"`
}

type document struct {
	Degrees []Degree `yaml:"degrees"`
}

// Catalog is an immutable degree → {years, streams} table.
type Catalog struct {
	order  []string
	byCode map[string]Degree
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded degrees.yaml is invalid: %v", err))
	}
	return c
})

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	return defaultCatalog()
}

// Load reads a catalog file, falling back to the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a Catalog from YAML. Degree codes must be unique and non-empty;
// option lists may be empty but must not repeat a value.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Degrees) == 0 {
		return nil, fmt.Errorf("catalog has no degrees")
	}

	c := &Catalog{
		order:  make([]string, 0, len(doc.Degrees)),
		byCode: make(map[string]Degree, len(doc.Degrees)),
	}
	for i, d := range doc.Degrees {
		d.Code = strings.TrimSpace(d.Code)
		if d.Code == "" {
			return nil, fmt.Errorf("degree %d: code is required", i)
		}
		if _, dup := c.byCode[d.Code]; dup {
			return nil, fmt.Errorf("degree %q: duplicate code", d.Code)
		}
		if d.Label == "" {
			d.Label = d.Code
		}
		if err := checkUnique(d.Years); err != nil {
			return nil, fmt.Errorf("degree %q years: %w", d.Code, err)
		}
		if err := checkUnique(d.Streams); err != nil {
			return nil, fmt.Errorf("degree %q streams: %w", d.Code, err)
		}
		d.Years = nonNil(d.Years)
		d.Streams = nonNil(d.Streams)
		c.order = append(c.order, d.Code)
		c.byCode[d.Code] = d
	}
	return c, nil
}

func checkUnique(values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("empty option")
		}
		if _, ok := seen[v]; ok {
			return fmt.Errorf("duplicate option %q", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Has reports whether degree is a catalog key.
func (c *Catalog) Has(degree string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byCode[degree]
	return ok
}

// Years returns the ordered year options for degree. Never nil.
func (c *Catalog) Years(degree string) []string {
	if c == nil {
		return []string{}
	}
	d, ok := c.byCode[degree]
	if !ok {
		return []string{}
	}
	return slices.Clone(d.Years)
}

// Streams returns the ordered stream options for degree. Never nil.
func (c *Catalog) Streams(degree string) []string {
	if c == nil {
		return []string{}
	}
	d, ok := c.byCode[degree]
	if !ok {
		return []string{}
	}
	return slices.Clone(d.Streams)
}

// ContainsYear reports whether year is offered for degree.
func (c *Catalog) ContainsYear(degree, year string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.byCode[degree].Years, year)
}

// ContainsStream reports whether stream is offered for degree.
func (c *Catalog) ContainsStream(degree, stream string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.byCode[degree].Streams, stream)
}

// Degree returns a copy of the entry for code.
func (c *Catalog) Degree(code string) (Degree, bool) {
	if c == nil {
		return Degree{}, false
	}
	d, ok := c.byCode[code]
	if !ok {
		return Degree{}, false
	}
	d.Years = slices.Clone(d.Years)
	d.Streams = slices.Clone(d.Streams)
	return d, true
}

// Degrees returns every entry in catalog order.
func (c *Catalog) Degrees() []Degree {
	if c == nil {
		return []Degree{}
	}
	out := make([]Degree, 0, len(c.order))
	for _, code := range c.order {
		d, _ := c.Degree(code)
		out = append(out, d)
	}
	return out
}

// Codes returns the degree codes in catalog order.
func (c *Catalog) Codes() []string {
	if c == nil {
		return []string{}
	}
	return slices.Clone(c.order)
}
