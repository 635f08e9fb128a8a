// Package catalog provides the reference material registry used to resolve
// sample labels to certified standards.
//
// Labels are matched after normalization (case folding and removal of every
// non-alphanumeric character), and only exact equality of normalized strings is
// accepted. Two materials may never share a normalized identifier or alias; the
// conflict is reported when the catalog is built, never at lookup time.
package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/llm-d/isocal/pkg/core"
)

// Catalog is an immutable set of reference materials indexed by normalized
// identifier and alias. It is safe for concurrent use.
type Catalog struct {
	materials []core.ReferenceMaterial
	index     map[string]int
}

// Normalize case-folds label and strips every character that is not a letter
// or a digit, so "USGS-32", "usgs 32" and "Usgs_32" all become "usgs32".
func Normalize(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, label)
}

// New builds a catalog from the given materials.
// Returns an error wrapping core.ErrAmbiguousAlias if two materials share a
// normalized identifier or alias, or a validation error for a malformed material.
func New(materials ...core.ReferenceMaterial) (*Catalog, error) {
	c := &Catalog{
		materials: make([]core.ReferenceMaterial, 0, len(materials)),
		index:     make(map[string]int),
	}
	for _, m := range materials {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		pos := len(c.materials)
		keys := append([]string{m.Name}, m.Aliases...)
		for _, key := range keys {
			norm := Normalize(key)
			if norm == "" {
				return nil, fmt.Errorf("reference material %s: alias %q is empty after normalization", m.Name, key)
			}
			if owner, exists := c.index[norm]; exists && owner != pos {
				return nil, fmt.Errorf("%w: %q of %s collides with %s",
					core.ErrAmbiguousAlias, key, m.Name, c.materials[owner].Name)
			}
			c.index[norm] = pos
		}
		m.Aliases = slices.Clone(m.Aliases)
		c.materials = append(c.materials, m)
	}
	return c, nil
}

// Resolve returns the material whose normalized identifier or alias equals the
// normalized label. Returns an error wrapping core.ErrUnresolvedStandard otherwise.
func (c *Catalog) Resolve(label string) (core.ReferenceMaterial, error) {
	pos, ok := c.index[Normalize(label)]
	if !ok {
		return core.ReferenceMaterial{}, fmt.Errorf("%w: %q matches no known reference material or alias",
			core.ErrUnresolvedStandard, label)
	}
	return clone(c.materials[pos]), nil
}

// Materials returns a copy of every material, sorted by name.
func (c *Catalog) Materials() []core.ReferenceMaterial {
	out := make([]core.ReferenceMaterial, len(c.materials))
	for i, m := range c.materials {
		out[i] = clone(m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of materials in the catalog.
func (c *Catalog) Len() int {
	return len(c.materials)
}

// Merge returns a new catalog holding custom plus every material of c whose
// normalized name is not redefined by custom. Custom definitions win over c.
func (c *Catalog) Merge(custom ...core.ReferenceMaterial) (*Catalog, error) {
	overridden := make(map[string]struct{}, len(custom))
	for _, m := range custom {
		overridden[Normalize(m.Name)] = struct{}{}
	}
	merged := slices.Clone(custom)
	for _, m := range c.materials {
		if _, ok := overridden[Normalize(m.Name)]; ok {
			continue
		}
		merged = append(merged, m)
	}
	return New(merged...)
}

func clone(m core.ReferenceMaterial) core.ReferenceMaterial {
	m.Aliases = slices.Clone(m.Aliases)
	return m
}

var defaultCatalog atomic.Pointer[Catalog]

func init() {
	defaultCatalog.Store(Builtin())
}

// Default returns the process-wide catalog. It starts as Builtin() and only
// changes through Reload.
func Default() *Catalog {
	return defaultCatalog.Load()
}

// Reload atomically replaces the process-wide catalog. Batches that already
// hold a reference to the previous catalog keep using it.
func Reload(c *Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog cannot be nil")
	}
	defaultCatalog.Store(c)
	return nil
}
