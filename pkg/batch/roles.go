package batch

import (
	"fmt"

	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
)

// designations maps normalized labels to their designated role.
// Matching a sample label is label-only: a sample that happens to resolve in
// the catalog but was never designated stays Unknown.
type designations struct {
	roles map[string]core.Role

	// labels keeps every designation as given, anchors first, for ordered checks.
	labels []designation
}

type designation struct {
	label string
	role  core.Role
}

func newDesignations(anchors, controls []string) designations {
	d := designations{roles: make(map[string]core.Role, len(anchors)+len(controls))}
	for _, l := range anchors {
		d.labels = append(d.labels, designation{label: l, role: core.RoleAnchor})
	}
	for _, l := range controls {
		d.labels = append(d.labels, designation{label: l, role: core.RoleControl})
	}
	for _, des := range d.labels {
		norm := catalog.Normalize(des.label)
		if _, seen := d.roles[norm]; !seen {
			d.roles[norm] = des.role
		}
	}
	return d
}

// validate rejects empty designations and labels designated with both roles.
func (d designations) validate() error {
	for _, des := range d.labels {
		norm := catalog.Normalize(des.label)
		if norm == "" {
			return fmt.Errorf("%w: %s designation %q is empty", core.ErrUnresolvedStandard, des.role, des.label)
		}
		if d.roles[norm] != des.role {
			return fmt.Errorf("%w: %q is designated as both anchor and control", core.ErrRoleConflict, des.label)
		}
	}
	return nil
}

// roleOf returns the role of a sample label.
func (d designations) roleOf(label string) core.Role {
	if role, ok := d.roles[catalog.Normalize(label)]; ok {
		return role
	}
	return core.RoleUnknown
}

// anchorCount returns the number of anchor designations.
func (d designations) anchorCount() int {
	n := 0
	for _, des := range d.labels {
		if des.role == core.RoleAnchor {
			n++
		}
	}
	return n
}

// resolve looks up every designated label, failing on the first that does not
// resolve. The result is keyed by normalized label.
func (d designations) resolve(c *catalog.Catalog) (map[string]core.ReferenceMaterial, error) {
	out := make(map[string]core.ReferenceMaterial, len(d.labels))
	for _, des := range d.labels {
		m, err := c.Resolve(des.label)
		if err != nil {
			return nil, fmt.Errorf("%s designation: %w", des.role, err)
		}
		out[catalog.Normalize(des.label)] = m
	}
	return out, nil
}
