package v1alpha1

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// CalibrationRunSpec describes one processing pass over an instrument export.
type CalibrationRunSpec struct {
	// Input is the path of the instrument export. Relative paths are resolved
	// against the directory of the run document.
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:validation:Required
	Input string `json:"input"`

	// Anchors are the sample labels used to fit the calibration. Each must
	// resolve to a reference material.
	Anchors []string `json:"anchors"`

	// Controls are the sample labels checked against their accepted values.
	// +optional
	Controls []string `json:"controls,omitempty"`

	// Strategy is the calibration strategy. Defaults to the tool configuration.
	// +kubebuilder:validation:Enum=single-point-offset;two-point-linear;n-point-linear
	// +optional
	Strategy string `json:"strategy,omitempty"`

	// ExcludeRows lists row ids dropped before aggregation.
	// +optional
	ExcludeRows []int `json:"excludeRows,omitempty"`

	// Propagation selects which variables are perturbed: "parameters" or "anchors".
	// +optional
	Propagation *string `json:"propagation,omitempty"`

	// CoverageFactor is the k of the control check |trueness| < k·u.
	// +optional
	CoverageFactor *float64 `json:"coverageFactor,omitempty"`

	// StandardsFile is an additional reference material catalog merged over the built-in standards.
	// +optional
	StandardsFile string `json:"standardsFile,omitempty"`
}

// ParameterStatus is a fitted calibration parameter.
type ParameterStatus struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
}

// SampleResult is the corrected value of one sample.
type SampleResult struct {
	Label string `json:"label"`

	// Role is anchor, control or unknown.
	Role string `json:"role"`

	// +optional
	Material string `json:"material,omitempty"`

	Count     int     `json:"count"`
	RawMean   float64 `json:"rawMean"`
	RawStdErr float64 `json:"rawStdErr"`

	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`

	// ReferenceValue, Trueness and WithinUncertainty are only set for controls.
	// +optional
	ReferenceValue *float64 `json:"referenceValue,omitempty"`
	// +optional
	Trueness *float64 `json:"trueness,omitempty"`
	// +optional
	WithinUncertainty *bool `json:"withinUncertainty,omitempty"`

	// StdErrUndefined marks single-replicate samples whose standard error was taken as zero.
	// +optional
	StdErrUndefined bool `json:"stdErrUndefined,omitempty"`
}

// CalibrationRunStatus is the published outcome of the last pass.
type CalibrationRunStatus struct {
	// RunID identifies the pass that produced this status.
	// +optional
	RunID string `json:"runID,omitempty"`

	// LastRunTime is when the pass finished.
	// +optional
	LastRunTime metav1.Time `json:"lastRunTime,omitempty"`

	// Strategy is the calibration strategy that was fitted.
	// +optional
	Strategy string `json:"strategy,omitempty"`

	// Parameters are the fitted calibration parameters.
	// +optional
	Parameters []ParameterStatus `json:"parameters,omitempty"`

	// Results has one entry per sample, in order of first appearance.
	// +optional
	Results []SampleResult `json:"results,omitempty"`

	// Warnings lists non-fatal conditions, one line per sample.
	// +optional
	Warnings []string `json:"warnings,omitempty"`

	// Conditions represent the latest available observations of the run's state
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
}

// CalibrationRun is a single processing pass: the designations and options
// going in, and the corrected values coming out.
type CalibrationRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   CalibrationRunSpec   `json:"spec,omitempty"`
	Status CalibrationRunStatus `json:"status,omitempty"`
}

// Validate checks the fields that can be checked without running the pass.
func (r *CalibrationRun) Validate() error {
	if r.Kind != "" && r.Kind != CalibrationRunKind {
		return fmt.Errorf("unexpected kind %q, expected %s", r.Kind, CalibrationRunKind)
	}
	if r.APIVersion != "" && r.APIVersion != GroupVersion.String() {
		return fmt.Errorf("unsupported apiVersion %q, expected %s", r.APIVersion, GroupVersion.String())
	}
	if r.Spec.Input == "" {
		return fmt.Errorf("spec.input is required")
	}
	if r.Spec.CoverageFactor != nil && *r.Spec.CoverageFactor <= 0 {
		return fmt.Errorf("spec.coverageFactor must be positive, got %v", *r.Spec.CoverageFactor)
	}
	for _, row := range r.Spec.ExcludeRows {
		if row < 0 {
			return fmt.Errorf("spec.excludeRows contains negative row id %d", row)
		}
	}
	return nil
}

// SetCondition sets or updates a status condition, bumping LastTransitionTime
// only when the status changes.
func (r *CalibrationRun) SetCondition(conditionType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&r.Status.Conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		ObservedGeneration: r.Generation,
		Reason:             reason,
		Message:            message,
	})
}

// Condition returns the condition of the given type, or nil.
func (r *CalibrationRun) Condition(conditionType string) *metav1.Condition {
	return meta.FindStatusCondition(r.Status.Conditions, conditionType)
}

// Condition Types for CalibrationRun
const (
	// TypeCalibrated indicates whether the last pass produced a calibration and corrected results
	TypeCalibrated = "Calibrated"
	// TypeControlsWithinUncertainty indicates whether every control agrees with its accepted value
	TypeControlsWithinUncertainty = "ControlsWithinUncertainty"
)

// Condition Reasons for Calibrated
const (
	// ReasonCalibrationSucceeded indicates the pass completed and results were published
	ReasonCalibrationSucceeded = "CalibrationSucceeded"
	// ReasonInvalidRun indicates the run document or its input could not be used
	ReasonInvalidRun = "InvalidRun"
)

// Condition Reasons for ControlsWithinUncertainty
const (
	// ReasonControlsPassed indicates every control is within k·u of its accepted value
	ReasonControlsPassed = "ControlsPassed"
	// ReasonControlsFailed indicates at least one control is outside k·u of its accepted value
	ReasonControlsFailed = "ControlsFailed"
	// ReasonNoControls indicates no control samples were processed
	ReasonNoControls = "NoControls"
)
