/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package core

import "errors"

// Errors surfaced by the calibration engine. Callers match them with errors.Is;
// every returned error wraps exactly one of these with the offending label or value.
var (
	// ErrUnresolvedStandard indicates a designated Anchor or Control label matches no known material.
	ErrUnresolvedStandard = errors.New("unresolved standard")

	// ErrAmbiguousAlias indicates two reference materials share a normalized identifier or alias.
	ErrAmbiguousAlias = errors.New("ambiguous alias")

	// ErrInsufficientAnchors indicates the anchor count does not match the strategy.
	ErrInsufficientAnchors = errors.New("insufficient anchors")

	// ErrDegenerateAnchors indicates the anchors make the fit numerically singular.
	ErrDegenerateAnchors = errors.New("degenerate anchors")

	// ErrInvalidUncertainty indicates a negative or non-finite standard uncertainty.
	ErrInvalidUncertainty = errors.New("invalid uncertainty")

	// ErrMissingCalibration indicates a pass was requested before anchors or a strategy were set.
	ErrMissingCalibration = errors.New("missing calibration")

	// ErrUndefinedStandardError flags a single-replicate sample. It is a warning, never fatal.
	ErrUndefinedStandardError = errors.New("undefined standard error")

	// ErrNonFinite indicates a model evaluation produced NaN or Inf.
	ErrNonFinite = errors.New("non-finite value")

	// ErrRoleConflict indicates a label was designated both Anchor and Control.
	ErrRoleConflict = errors.New("conflicting sample role")

	// ErrInvalidMeasurement indicates a replicate with a non-finite raw value.
	ErrInvalidMeasurement = errors.New("invalid measurement")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnresolvedStandard, "UnresolvedStandard"},
	{ErrAmbiguousAlias, "AmbiguousAlias"},
	{ErrMissingCalibration, "MissingCalibration"},
	{ErrInsufficientAnchors, "InsufficientAnchors"},
	{ErrDegenerateAnchors, "DegenerateAnchors"},
	{ErrInvalidUncertainty, "InvalidUncertainty"},
	{ErrUndefinedStandardError, "UndefinedStandardError"},
	{ErrNonFinite, "NonFinite"},
	{ErrRoleConflict, "RoleConflict"},
	{ErrInvalidMeasurement, "InvalidMeasurement"},
}

// ErrorReason returns a stable CamelCase reason for err, suitable for status
// conditions and metric labels. Unknown errors map to "Error", nil to "".
// When an error wraps several sentinels the first match in declaration order wins.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "Error"
}
