// Package calibration implements the strategies that fit a raw -> corrected
// transform from anchor measurements.
package calibration

import (
	"fmt"
	"strings"

	"github.com/llm-d/isocal/pkg/core"
)

// enumeration of calibration strategies
const (
	SinglePointOffsetStrategy core.StrategyType = "single-point-offset"
	TwoPointLinearStrategy    core.StrategyType = "two-point-linear"
	NPointLinearStrategy      core.StrategyType = "n-point-linear"
)

// Types returns every supported strategy type.
func Types() []core.StrategyType {
	return []core.StrategyType{SinglePointOffsetStrategy, TwoPointLinearStrategy, NPointLinearStrategy}
}

// NewStrategy is a factory that creates a Strategy of the given type
func NewStrategy(t core.StrategyType) (core.Strategy, error) {
	switch t {
	case SinglePointOffsetStrategy:
		return SinglePointOffset{}, nil
	case TwoPointLinearStrategy:
		return TwoPointLinear{}, nil
	case NPointLinearStrategy:
		return NPointLinear{}, nil
	default:
		return nil, fmt.Errorf("unsupported calibration strategy: %q", t)
	}
}

// ParseStrategyType converts a configuration value to a strategy type.
// Matching ignores case and surrounding whitespace.
func ParseStrategyType(s string) (core.StrategyType, error) {
	want := core.StrategyType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range Types() {
		if t == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown calibration strategy %q (expected one of %v)", s, Types())
}
