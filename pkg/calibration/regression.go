package calibration

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/llm-d/isocal/pkg/core"
)

// NPointLinear fits a least-squares line through two or more anchors.
//
// Each anchor is weighted by the inverse of its combined variance
// (raw standard error squared plus accepted-value uncertainty squared). If any
// anchor has zero combined variance the regression is unweighted. Weights are
// fixed at their nominal values while uncertainties are propagated.
type NPointLinear struct{}

// Type implements core.Strategy.
func (NPointLinear) Type() core.StrategyType {
	return NPointLinearStrategy
}

// Fit requires at least two anchors whose raw means are not all equal.
func (NPointLinear) Fit(anchors []core.Anchor) (*core.CalibrationFit, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("%w: n-point linear needs at least 2 anchors, got %d",
			core.ErrInsufficientAnchors, len(anchors))
	}
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}

	sorted := sortAnchors(anchors)
	if spread(sorted) == 0 {
		return nil, fmt.Errorf("%w: all %d anchors share raw mean %v",
			core.ErrDegenerateAnchors, len(sorted), sorted[0].RawMean)
	}

	weights := inverseVarianceWeights(sorted)
	n := len(sorted)
	return fitLine(NPointLinearStrategy, sorted, func(in []float64) (float64, float64) {
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range n {
			x[i], y[i] = in[2*i], in[2*i+1]
		}
		intercept, slope := stat.LinearRegression(x, y, weights, false)
		return slope, intercept
	})
}

func spread(anchors []core.Anchor) float64 {
	lo, hi := anchors[0].RawMean, anchors[0].RawMean
	for _, a := range anchors[1:] {
		lo, hi = min(lo, a.RawMean), max(hi, a.RawMean)
	}
	return hi - lo
}

// inverseVarianceWeights returns nil (unweighted) when any anchor has zero combined variance.
func inverseVarianceWeights(anchors []core.Anchor) []float64 {
	w := make([]float64, len(anchors))
	for i, a := range anchors {
		v := a.RawStdErr*a.RawStdErr + a.TrueUncertainty*a.TrueUncertainty
		if v == 0 {
			return nil
		}
		w[i] = 1 / v
	}
	return w
}
