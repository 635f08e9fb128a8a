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

import (
	"fmt"
	"math"
)

// Role is the part a sample plays in a processing pass.
type Role string

const (
	// RoleAnchor marks a sample with a known reference value used to fit the calibration.
	RoleAnchor Role = "anchor"
	// RoleControl marks a sample with a known reference value used only to check trueness.
	RoleControl Role = "control"
	// RoleUnknown marks every sample that was not designated by the caller.
	RoleUnknown Role = "unknown"
)

// ReferenceMaterial is an immutable certified standard.
type ReferenceMaterial struct {
	// Name is the canonical identifier (e.g., "USGS32").
	Name string `json:"name" yaml:"name"`

	// Aliases are alternative labels that resolve to this material.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// TrueValue is the accepted value of the isotope ratio (delta, per mil).
	TrueValue float64 `json:"value" yaml:"value"`

	// Uncertainty is the standard uncertainty (1 sigma) of TrueValue.
	Uncertainty float64 `json:"uncertainty" yaml:"uncertainty"`
}

// Validate checks that the material has a name, a finite value and a valid uncertainty.
func (m ReferenceMaterial) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("reference material name cannot be empty")
	}
	if math.IsNaN(m.TrueValue) || math.IsInf(m.TrueValue, 0) {
		return fmt.Errorf("%w: accepted value of %s is %v", ErrNonFinite, m.Name, m.TrueValue)
	}
	if err := ValidateUncertainty(m.Uncertainty); err != nil {
		return fmt.Errorf("reference material %s: %w", m.Name, err)
	}
	return nil
}

// String renders the material as "<RefMat USGS32: 180.00 ± 1.00>".
func (m ReferenceMaterial) String() string {
	return fmt.Sprintf("<RefMat %s: %.2f ± %.2f>", m.Name, m.TrueValue, m.Uncertainty)
}

// ReplicateMeasurement is a single raw reading as produced by ingestion.
type ReplicateMeasurement struct {
	// SampleLabel is the sample identifier exactly as found in the raw data.
	SampleLabel string

	// RawValue is the measured (uncalibrated) isotope ratio.
	RawValue float64

	// RowID identifies the source row for exclusion and audit.
	RowID int

	// Flags are optional per-replicate quality flags.
	Flags []string
}

// SampleAggregate holds the replicate statistics of one sample.
type SampleAggregate struct {
	Label string
	Role  Role

	// Material is the resolved reference material for Anchor and Control samples.
	Material *ReferenceMaterial

	Replicates []ReplicateMeasurement
	Mean       float64
	StdErr     float64

	// StdErrUndefined is set when only one replicate contributed; StdErr is then zero.
	StdErrUndefined bool
}

// Count returns the number of contributing replicates.
func (s SampleAggregate) Count() int {
	return len(s.Replicates)
}

// Anchor is one calibration point handed to a Strategy.
type Anchor struct {
	// Label is the sample label the anchor was measured as.
	Label string
	// Material is the canonical name of the resolved reference material.
	Material string

	RawMean         float64
	RawStdErr       float64
	TrueValue       float64
	TrueUncertainty float64
}

// Parameter is a named value with its standard uncertainty.
type Parameter struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
}

// Contribution is the signed shift of the corrected value when one input is
// perturbed by its own standard uncertainty.
type Contribution struct {
	Name  string  `json:"name"`
	Shift float64 `json:"shift"`
}

// CorrectedResult is the published value of one sample after a processing pass.
type CorrectedResult struct {
	Label string
	Role  Role

	// Material is the canonical reference material name for Anchor and Control samples.
	Material string

	Count     int
	RawMean   float64
	RawStdErr float64

	Value       float64
	Uncertainty float64

	// ReferenceValue, Trueness and WithinUncertainty are set for Control samples only.
	ReferenceValue    *float64
	Trueness          *float64
	WithinUncertainty *bool

	// StdErrUndefined mirrors the aggregate flag so reports can tell a single
	// replicate apart from a genuinely noise-free measurement.
	StdErrUndefined bool

	// Budget lists the Kragten shift of every input variable.
	Budget []Contribution
}

// ValidateUncertainty rejects negative and non-finite standard uncertainties.
func ValidateUncertainty(u float64) error {
	if math.IsNaN(u) || math.IsInf(u, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrInvalidUncertainty, u)
	}
	if u < 0 {
		return fmt.Errorf("%w: %v is negative", ErrInvalidUncertainty, u)
	}
	return nil
}
