package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/llm-d/isocal/pkg/core"
)

// fileStandard is the on-disk form of a reference material.
// Value and uncertainty are pointers so a missing field is an error rather than zero.
type fileStandard struct {
	Name        string   `yaml:"name"`
	Value       *float64 `yaml:"value"`
	Uncertainty *float64 `yaml:"uncertainty"`
	Aliases     []string `yaml:"aliases"`
}

type fileCatalog struct {
	Standards []fileStandard `yaml:"standards"`
}

// Parse decodes a catalog document:
//
//	standards:
//	  - name: USGS32
//	    value: 180.0
//	    uncertainty: 1.0
//	    aliases: [USGS-32, KN032]
//
// Unknown fields are rejected. The returned materials are validated but not
// checked for alias collisions; pass them to New or Merge for that.
func Parse(data []byte) ([]core.ReferenceMaterial, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileCatalog
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	out := make([]core.ReferenceMaterial, 0, len(doc.Standards))
	for i, s := range doc.Standards {
		if s.Value == nil {
			return nil, fmt.Errorf("standards[%d] (%s): value is required", i, s.Name)
		}
		if s.Uncertainty == nil {
			return nil, fmt.Errorf("standards[%d] (%s): uncertainty is required", i, s.Name)
		}
		m := core.ReferenceMaterial{
			Name:        s.Name,
			TrueValue:   *s.Value,
			Uncertainty: *s.Uncertainty,
			Aliases:     s.Aliases,
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("standards[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) ([]core.ReferenceMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	materials, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return materials, nil
}
