// Package items applies the effects of carried items to players: passive
// stat bonuses, per-fight buffs, on-hit reactions and end-of-fight effects.
package items

import (
	"embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed content/items.yaml
var content embed.FS

// Effect is a bundle of modifiers. Zero fields have no effect.
type Effect struct {
	Attack  int `yaml:"attack"`
	Defense int `yaml:"defense"`
	Heal    int `yaml:"heal"`
	Thorns  int `yaml:"thorns"`
	Speed   int `yaml:"speed"`
}

// Def is the static definition of an item.
type Def struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Passive     *Effect `yaml:"passive"`
	Combat      *Effect `yaml:"combat"`
	OnHit       *Effect `yaml:"on_hit"`
	CombatEnd   *Effect `yaml:"combat_end"`
	Flag        bool    `yaml:"flag"`
}

// Validate checks that the Def satisfies its invariants.
//
// Postcondition: returns nil iff the name is set and every effect is
// non-negative.
func (d *Def) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	for label, e := range map[string]*Effect{"passive": d.Passive, "combat": d.Combat, "on_hit": d.OnHit, "combat_end": d.CombatEnd} {
		if e == nil {
			continue
		}
		if e.Attack < 0 || e.Defense < 0 || e.Heal < 0 || e.Thorns < 0 || e.Speed < 0 {
			errs = append(errs, fmt.Errorf("%s effect must not be negative", label))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %w", d.Name, errors.Join(errs...))
	}
	return nil
}

// Catalog indexes item definitions by name.
type Catalog struct {
	defs map[string]*Def
}

type catalogFile struct {
	Items []*Def `yaml:"items"`
}

// ParseCatalog decodes a YAML catalog.
//
// Postcondition: returns an error on invalid YAML, an invalid Def or a
// duplicate name.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("items: parsing catalog: %w", err)
	}
	c := &Catalog{defs: make(map[string]*Def, len(f.Items))}
	for _, d := range f.Items {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("items: duplicate item %q", d.Name)
		}
		c.defs[d.Name] = d
	}
	return c, nil
}

// LoadCatalog reads a catalog file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("items: reading %q: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	data, err := content.ReadFile("content/items.yaml")
	if err != nil {
		panic("items: embedded catalog missing: " + err.Error())
	}
	c, err := ParseCatalog(data)
	if err != nil {
		panic("items: embedded catalog invalid: " + err.Error())
	}
	return c
}

// Def returns the definition named name.
func (c *Catalog) Def(name string) (*Def, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns every item name in the catalog, sorted.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.defs))
}
