package core

// StrategyType identifies a calibration strategy variant.
type StrategyType string

// Strategy fits a calibration from anchors. Implementations hold no state
// between calls, so one value may serve any number of batches.
type Strategy interface {
	// Type returns the variant identifier recorded on every fit.
	Type() StrategyType

	// Fit computes the calibration parameters from the anchors.
	Fit(anchors []Anchor) (*CalibrationFit, error)
}

// ModelFunc maps a raw value to a corrected value for an explicit vector of
// parameters. It must be pure: the propagator calls it with perturbed vectors.
type ModelFunc func(raw float64, params []float64) float64

// CalibrationFit is the outcome of Strategy.Fit.
type CalibrationFit struct {
	Strategy StrategyType

	// Parameters are the fitted values in the order Model expects them.
	Parameters []Parameter

	// Model is the raw -> corrected mapping over Parameters.
	Model ModelFunc

	// Inputs are the anchor-level variables (raw means and accepted values)
	// the parameters were derived from, in the order InputModel expects them.
	Inputs []Parameter

	// InputModel is the raw -> corrected mapping over Inputs. It refits the
	// parameters from the inputs, so correlation between parameters is kept.
	InputModel ModelFunc
}

// ParameterValues returns the nominal parameter values.
func (f *CalibrationFit) ParameterValues() []float64 {
	return values(f.Parameters)
}

// InputValues returns the nominal anchor-level input values.
func (f *CalibrationFit) InputValues() []float64 {
	return values(f.Inputs)
}

// Correct applies the fitted calibration to a raw value.
func (f *CalibrationFit) Correct(raw float64) float64 {
	return f.Model(raw, f.ParameterValues())
}

// Parameter returns the fitted parameter with the given name.
func (f *CalibrationFit) Parameter(name string) (Parameter, bool) {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func values(params []Parameter) []float64 {
	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}
