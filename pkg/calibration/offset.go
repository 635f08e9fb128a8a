package calibration

import (
	"fmt"
	"math"

	"github.com/llm-d/isocal/pkg/core"
)

// SinglePointOffset shifts every raw value by the difference between one
// anchor's accepted value and its raw mean.
type SinglePointOffset struct{}

// Type implements core.Strategy.
func (SinglePointOffset) Type() core.StrategyType {
	return SinglePointOffsetStrategy
}

// Fit requires exactly one anchor. The offset uncertainty is the root sum of
// squares of the anchor's raw standard error and accepted-value uncertainty.
func (SinglePointOffset) Fit(anchors []core.Anchor) (*core.CalibrationFit, error) {
	if len(anchors) != 1 {
		return nil, fmt.Errorf("%w: single-point offset needs exactly 1 anchor, got %d",
			core.ErrInsufficientAnchors, len(anchors))
	}
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}

	a := anchors[0]
	return &core.CalibrationFit{
		Strategy: SinglePointOffsetStrategy,
		Parameters: []core.Parameter{{
			Name:        OffsetParameter,
			Value:       a.TrueValue - a.RawMean,
			Uncertainty: math.Hypot(a.RawStdErr, a.TrueUncertainty),
		}},
		Model: func(raw float64, p []float64) float64 {
			return raw + p[0]
		},
		Inputs: anchorInputs(anchors),
		InputModel: func(raw float64, in []float64) float64 {
			return raw + in[1] - in[0]
		},
	}, nil
}
