package cli

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/llm-d/isocal/api/v1alpha1"
	"github.com/llm-d/isocal/pkg/batch"
	"github.com/llm-d/isocal/pkg/core"
)

// setStatus publishes the outcome of a pass on run. A failed pass clears every
// previously published result and records the failure reason.
func setStatus(run *v1alpha1.CalibrationRun, outcome *batch.Outcome, err error, now time.Time) {
	run.Status.LastRunTime = metav1.NewTime(now)

	if err != nil {
		run.Status.RunID = ""
		run.Status.Strategy = ""
		run.Status.Parameters = nil
		run.Status.Results = nil
		run.Status.Warnings = nil
		run.SetCondition(v1alpha1.TypeCalibrated, metav1.ConditionFalse, failureReason(err), err.Error())
		run.SetCondition(v1alpha1.TypeControlsWithinUncertainty, metav1.ConditionUnknown, failureReason(err),
			"no results published")
		return
	}

	run.Status.RunID = outcome.RunID
	run.Status.Strategy = string(outcome.Strategy)
	run.Status.Parameters = make([]v1alpha1.ParameterStatus, len(outcome.Fit.Parameters))
	for i, p := range outcome.Fit.Parameters {
		run.Status.Parameters[i] = v1alpha1.ParameterStatus{Name: p.Name, Value: p.Value, Uncertainty: p.Uncertainty}
	}
	run.Status.Results = make([]v1alpha1.SampleResult, len(outcome.Results))
	for i, r := range outcome.Results {
		run.Status.Results[i] = sampleResult(r)
	}
	run.Status.Warnings = nil
	for _, w := range outcome.Warnings {
		run.Status.Warnings = append(run.Status.Warnings, w.Error())
	}

	run.SetCondition(v1alpha1.TypeCalibrated, metav1.ConditionTrue, v1alpha1.ReasonCalibrationSucceeded,
		fmt.Sprintf("%d samples corrected from %d anchors", len(outcome.Results), len(outcome.Anchors)))

	controls := outcome.Controls()
	failed := 0
	for _, c := range controls {
		if c.WithinUncertainty != nil && !*c.WithinUncertainty {
			failed++
		}
	}
	switch {
	case len(controls) == 0:
		run.SetCondition(v1alpha1.TypeControlsWithinUncertainty, metav1.ConditionUnknown, v1alpha1.ReasonNoControls,
			"no control samples were designated")
	case failed > 0:
		run.SetCondition(v1alpha1.TypeControlsWithinUncertainty, metav1.ConditionFalse, v1alpha1.ReasonControlsFailed,
			fmt.Sprintf("%d of %d controls outside k·u", failed, len(controls)))
	default:
		run.SetCondition(v1alpha1.TypeControlsWithinUncertainty, metav1.ConditionTrue, v1alpha1.ReasonControlsPassed,
			fmt.Sprintf("all %d controls within k·u", len(controls)))
	}
}

func sampleResult(r core.CorrectedResult) v1alpha1.SampleResult {
	return v1alpha1.SampleResult{
		Label:             r.Label,
		Role:              string(r.Role),
		Material:          r.Material,
		Count:             r.Count,
		RawMean:           r.RawMean,
		RawStdErr:         r.RawStdErr,
		Value:             r.Value,
		Uncertainty:       r.Uncertainty,
		ReferenceValue:    r.ReferenceValue,
		Trueness:          r.Trueness,
		WithinUncertainty: r.WithinUncertainty,
		StdErrUndefined:   r.StdErrUndefined,
	}
}

// failureReason maps pass errors to a condition reason. Errors outside the
// engine's taxonomy (files, configuration) are reported as an invalid run.
func failureReason(err error) string {
	if reason := core.ErrorReason(err); reason != "Error" {
		return reason
	}
	return v1alpha1.ReasonInvalidRun
}
