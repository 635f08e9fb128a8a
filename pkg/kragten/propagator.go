package kragten

import (
	"fmt"
	"strings"

	"github.com/llm-d/isocal/pkg/core"
)

// Mode selects which variables of a fit are perturbed.
type Mode string

const (
	// ModeParameters perturbs the raw value and each fitted parameter by its
	// standard uncertainty.
	ModeParameters Mode = "parameters"

	// ModeAnchorInputs perturbs the raw value and every anchor-level input (raw
	// means and accepted values), refitting for each perturbation. This keeps the
	// correlation between fitted parameters.
	ModeAnchorInputs Mode = "anchors"
)

// ParseMode converts a configuration value to a Mode. Empty selects ModeParameters.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeParameters:
		return ModeParameters, nil
	case ModeAnchorInputs:
		return ModeAnchorInputs, nil
	default:
		return "", fmt.Errorf("unknown propagation mode %q (expected %q or %q)", s, ModeParameters, ModeAnchorInputs)
	}
}

// RawVariable is the name given to the sample's own raw value in a budget.
const RawVariable = "raw"

// Propagator applies a calibration fit to raw values and computes their
// combined standard uncertainty. The zero value uses ModeParameters.
type Propagator struct {
	Mode Mode
}

// Propagate returns the corrected value of raw and its combined standard
// uncertainty. rawU is the standard uncertainty of raw (the sample's standard
// error of the mean).
func (p Propagator) Propagate(fit *core.CalibrationFit, raw, rawU float64) (Result, error) {
	if fit == nil {
		return Result{}, fmt.Errorf("%w: no calibration fit", core.ErrMissingCalibration)
	}

	params, model := fit.Parameters, fit.Model
	if p.Mode == ModeAnchorInputs {
		if fit.InputModel == nil {
			return Result{}, fmt.Errorf("strategy %s does not expose anchor inputs", fit.Strategy)
		}
		params, model = fit.Inputs, fit.InputModel
	}

	vars := make([]Variable, 0, len(params)+1)
	vars = append(vars, Variable{Name: RawVariable, Value: raw, Uncertainty: rawU})
	for _, q := range params {
		vars = append(vars, Variable{Name: q.Name, Value: q.Value, Uncertainty: q.Uncertainty})
	}

	return Evaluate(func(v []float64) float64 {
		return model(v[0], v[1:])
	}, vars)
}
