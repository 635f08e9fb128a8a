package catalog

import "github.com/llm-d/isocal/pkg/core"

// Nitrogen isotope standards (δ15N vs. AIR, per mil).
var (
	USGS32 = core.ReferenceMaterial{
		Name:        "USGS32",
		TrueValue:   180.0,
		Uncertainty: 1.0,
		Aliases:     []string{"USGS-32", "KN032"},
	}

	USGS34 = core.ReferenceMaterial{
		Name:        "USGS34",
		TrueValue:   -1.8,
		Uncertainty: 0.2,
		Aliases:     []string{"USGS-34", "KN034"},
	}

	USGS35 = core.ReferenceMaterial{
		Name:        "USGS35",
		TrueValue:   2.7,
		Uncertainty: 0.2,
		Aliases:     []string{"USGS-35", "KN035"},
	}
)

// Builtin returns a fresh catalog of the standards the engine knows by default.
func Builtin() *Catalog {
	c, err := New(USGS32, USGS34, USGS35)
	if err != nil {
		panic(err)
	}
	return c
}
