package progress

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed flags.yaml
var flagsYAML []byte

// Flag is one catalog entry.
type Flag struct {
	Code     string  `yaml:"code" json:"code"`
	Emoji    string  `yaml:"emoji" json:"emoji"`
	Name     string  `yaml:"name" json:"name"`
	NameKana string  `yaml:"nameKana" json:"nameKana"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lng      float64 `yaml:"lng" json:"lng"`
	Grade    int     `yaml:"grade" json:"grade"`
}

// Catalog is the read-only set of flags.
type Catalog struct {
	flags  []Flag
	byCode map[string]int
}

// ParseCatalog parses a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Flags []Flag `yaml:"flags"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing flag catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]int, len(doc.Flags))}
	for _, f := range doc.Flags {
		f.Code = strings.ToLower(f.Code)
		if f.Code == "" {
			return nil, fmt.Errorf("flag catalog: entry %q has no code", f.Name)
		}
		if _, dup := c.byCode[f.Code]; dup {
			return nil, fmt.Errorf("flag catalog: duplicate code %q", f.Code)
		}
		c.byCode[f.Code] = len(c.flags)
		c.flags = append(c.flags, f)
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(flagsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every flag in catalog order.
func (c *Catalog) All() []Flag {
	return slices.Clone(c.flags)
}

// Len returns the number of flags.
func (c *Catalog) Len() int {
	return len(c.flags)
}

// Lookup finds a flag by code, case-insensitively.
func (c *Catalog) Lookup(code string) (Flag, bool) {
	i, ok := c.byCode[strings.ToLower(code)]
	if !ok {
		return Flag{}, false
	}
	return c.flags[i], true
}

// ByGrade returns the flags taught in grade, in catalog order.
func (c *Catalog) ByGrade(grade int) []Flag {
	var out []Flag
	for _, f := range c.flags {
		if f.Grade == grade {
			out = append(out, f)
		}
	}
	return out
}
