package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/llm-d/isocal/pkg/core"
	"github.com/llm-d/isocal/pkg/kragten"
)

// Fitted parameter names.
const (
	OffsetParameter    = "offset"
	SlopeParameter     = "slope"
	InterceptParameter = "intercept"
)

func anchorName(a core.Anchor) string {
	if a.Material != "" {
		return a.Material
	}
	return a.Label
}

func validateAnchors(anchors []core.Anchor) error {
	for _, a := range anchors {
		name := anchorName(a)
		if math.IsNaN(a.RawMean) || math.IsInf(a.RawMean, 0) {
			return fmt.Errorf("anchor %s: %w: raw mean %v", name, core.ErrNonFinite, a.RawMean)
		}
		if math.IsNaN(a.TrueValue) || math.IsInf(a.TrueValue, 0) {
			return fmt.Errorf("anchor %s: %w: accepted value %v", name, core.ErrNonFinite, a.TrueValue)
		}
		if err := core.ValidateUncertainty(a.RawStdErr); err != nil {
			return fmt.Errorf("anchor %s raw standard error: %w", name, err)
		}
		if err := core.ValidateUncertainty(a.TrueUncertainty); err != nil {
			return fmt.Errorf("anchor %s accepted value: %w", name, err)
		}
	}
	return nil
}

// anchorInputs lays the anchors out as [raw_0, true_0, raw_1, true_1, ...].
func anchorInputs(anchors []core.Anchor) []core.Parameter {
	out := make([]core.Parameter, 0, 2*len(anchors))
	for _, a := range anchors {
		name := anchorName(a)
		out = append(out,
			core.Parameter{Name: "raw(" + name + ")", Value: a.RawMean, Uncertainty: a.RawStdErr},
			core.Parameter{Name: "true(" + name + ")", Value: a.TrueValue, Uncertainty: a.TrueUncertainty},
		)
	}
	return out
}

func variables(params []core.Parameter) []kragten.Variable {
	out := make([]kragten.Variable, len(params))
	for i, p := range params {
		out[i] = kragten.Variable{Name: p.Name, Value: p.Value, Uncertainty: p.Uncertainty}
	}
	return out
}

// lineSolver computes slope and intercept from an anchorInputs value vector.
type lineSolver func(in []float64) (slope, intercept float64)

func linearModel(raw float64, p []float64) float64 {
	return p[0]*raw + p[1]
}

// fitLine builds a slope/intercept fit whose parameter uncertainties are
// Kragten-propagated from the anchor inputs through solve.
func fitLine(strategy core.StrategyType, anchors []core.Anchor, solve lineSolver) (*core.CalibrationFit, error) {
	inputs := anchorInputs(anchors)
	vars := variables(inputs)

	slope, err := kragten.Evaluate(func(v []float64) float64 {
		s, _ := solve(v)
		return s
	}, vars)
	if err != nil {
		return nil, degenerate(err)
	}
	intercept, err := kragten.Evaluate(func(v []float64) float64 {
		_, i := solve(v)
		return i
	}, vars)
	if err != nil {
		return nil, degenerate(err)
	}

	return &core.CalibrationFit{
		Strategy: strategy,
		Parameters: []core.Parameter{
			{Name: SlopeParameter, Value: slope.Value, Uncertainty: slope.Uncertainty},
			{Name: InterceptParameter, Value: intercept.Value, Uncertainty: intercept.Uncertainty},
		},
		Model:  linearModel,
		Inputs: inputs,
		InputModel: func(raw float64, in []float64) float64 {
			s, i := solve(in)
			return s*raw + i
		},
	}, nil
}

func degenerate(err error) error {
	if errors.Is(err, core.ErrNonFinite) {
		return fmt.Errorf("%w: %w", core.ErrDegenerateAnchors, err)
	}
	return err
}
