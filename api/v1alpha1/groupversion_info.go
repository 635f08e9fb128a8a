// Package v1alpha1 contains the CalibrationRun document schema for the isocal.llm-d.ai API group.
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	// GroupVersion is the group version used in CalibrationRun documents.
	GroupVersion = schema.GroupVersion{Group: "isocal.llm-d.ai", Version: "v1alpha1"}
)

// Kind of a calibration run document.
const CalibrationRunKind = "CalibrationRun"
