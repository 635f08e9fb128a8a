package calibration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/llm-d/isocal/pkg/core"
)

// TwoPointLinear fits the line through exactly two anchors.
type TwoPointLinear struct{}

// Type implements core.Strategy.
func (TwoPointLinear) Type() core.StrategyType {
	return TwoPointLinearStrategy
}

// Fit requires two anchors with distinct raw means. Anchors are ordered by
// accepted value (ties by name) so the result does not depend on input order.
func (TwoPointLinear) Fit(anchors []core.Anchor) (*core.CalibrationFit, error) {
	if len(anchors) != 2 {
		return nil, fmt.Errorf("%w: two-point linear needs exactly 2 anchors, got %d",
			core.ErrInsufficientAnchors, len(anchors))
	}
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}

	sorted := sortAnchors(anchors)
	if sorted[0].RawMean == sorted[1].RawMean {
		return nil, fmt.Errorf("%w: %s and %s share raw mean %v",
			core.ErrDegenerateAnchors, anchorName(sorted[0]), anchorName(sorted[1]), sorted[0].RawMean)
	}

	return fitLine(TwoPointLinearStrategy, sorted, func(in []float64) (float64, float64) {
		r1, t1, r2, t2 := in[0], in[1], in[2], in[3]
		slope := (t2 - t1) / (r2 - r1)
		return slope, t1 - slope*r1
	})
}

func sortAnchors(anchors []core.Anchor) []core.Anchor {
	sorted := slices.Clone(anchors)
	slices.SortStableFunc(sorted, func(a, b core.Anchor) int {
		switch {
		case a.TrueValue < b.TrueValue:
			return -1
		case a.TrueValue > b.TrueValue:
			return 1
		}
		return strings.Compare(anchorName(a), anchorName(b))
	})
	return sorted
}
