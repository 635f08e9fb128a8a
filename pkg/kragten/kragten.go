// Package kragten propagates standard uncertainties through arbitrary models
// by Kragten's finite-difference method.
//
// Every input variable is perturbed by its own standard uncertainty while the
// others stay at nominal, and the resulting shifts of the model output are
// combined in quadrature. Inputs are treated as uncorrelated.
package kragten

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/llm-d/isocal/pkg/core"
)

// Variable is one model input with its standard uncertainty.
type Variable struct {
	Name        string
	Value       float64
	Uncertainty float64
}

// Model evaluates the measurand for a vector of input values ordered like the variables.
type Model func(values []float64) float64

// Result holds the nominal model output and its combined standard uncertainty.
type Result struct {
	Value       float64
	Uncertainty float64

	// Contributions has one entry per variable, in input order.
	Contributions []core.Contribution
}

// Evaluate runs the Kragten procedure for model over vars.
// A variable with zero uncertainty contributes nothing. A negative or non-finite
// uncertainty fails with core.ErrInvalidUncertainty, and a non-finite model
// output fails with core.ErrNonFinite.
func Evaluate(model Model, vars []Variable) (Result, error) {
	for _, v := range vars {
		if err := core.ValidateUncertainty(v.Uncertainty); err != nil {
			return Result{}, fmt.Errorf("variable %s: %w", v.Name, err)
		}
	}

	x := make([]float64, len(vars))
	for i, v := range vars {
		x[i] = v.Value
	}

	f0 := model(x)
	if !finite(f0) {
		return Result{}, fmt.Errorf("%w: model value %v at nominal inputs", core.ErrNonFinite, f0)
	}

	shifts := make([]float64, len(vars))
	contributions := make([]core.Contribution, len(vars))
	for i, v := range vars {
		contributions[i].Name = v.Name
		if v.Uncertainty == 0 {
			continue
		}
		x[i] = v.Value + v.Uncertainty
		fp := model(x)
		x[i] = v.Value
		if !finite(fp) {
			return Result{}, fmt.Errorf("%w: model value %v with %s perturbed", core.ErrNonFinite, fp, v.Name)
		}
		shifts[i] = fp - f0
		contributions[i].Shift = shifts[i]
	}

	return Result{
		Value:         f0,
		Uncertainty:   floats.Norm(shifts, 2),
		Contributions: contributions,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
