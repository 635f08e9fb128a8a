// Package core provides the fundamental data structures of the isocal calibration engine.
//
// This package contains the domain models shared by every stage of a processing pass:
//
//   - ReferenceMaterial: certified standards with accepted values and aliases
//   - ReplicateMeasurement: one raw instrument reading of a sample
//   - SampleAggregate: per-sample replicate statistics and resolved role
//   - Anchor: the inputs a calibration strategy fits against
//   - CalibrationFit: fitted parameters and the raw -> corrected mapping
//   - CorrectedResult: the published, uncertainty-propagated value of a sample
//
// It also defines the Strategy interface implemented by the calibration package and
// the sentinel errors surfaced to callers.
//
// Example usage:
//
//	fit, err := strategy.Fit([]core.Anchor{
//	    {Material: "USGS32", RawMean: -50.0, TrueValue: 180.0, TrueUncertainty: 0.1},
//	    {Material: "USGS34", RawMean: -60.0, TrueValue: 1.8, TrueUncertainty: 0.1},
//	})
//	if err != nil {
//	    return err
//	}
//	corrected := fit.Correct(-55.0)
//
// The core package is designed to be:
//   - Immutable where possible (value types)
//   - Free of I/O and logging (pure domain logic)
//   - Independent of any particular strategy implementation
package core
