package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/ptr"

	"github.com/llm-d/isocal/internal/logging"
	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
)

// Process runs one full pass with strategy and publishes its Outcome.
//
// The previous outcome is discarded before the pass starts. Any fatal error
// (no anchors, an unresolved designation, a failed fit, an invalid measurement
// or uncertainty) leaves the batch without an outcome.
func (b *Batch) Process(ctx context.Context, strategy core.Strategy) (*Outcome, error) {
	b.outcome = nil
	if strategy == nil {
		return nil, fmt.Errorf("calibration strategy cannot be nil")
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := logr.FromContextOrDiscard(ctx).WithValues("runID", runID, "strategy", strategy.Type())

	outcome, err := b.process(ctx, logger, strategy, runID)
	if b.observer != nil {
		b.observer.ObservePass(strategy.Type(), time.Since(start), outcome, err)
	}
	if err != nil {
		logger.Error(err, "Batch processing failed", "reason", core.ErrorReason(err))
		return nil, err
	}

	b.outcome = outcome
	logger.Info("Batch processed",
		"samples", len(outcome.Results),
		"anchors", len(outcome.Anchors),
		"warnings", len(outcome.Warnings))
	return outcome, nil
}

func (b *Batch) process(ctx context.Context, logger logr.Logger, strategy core.Strategy, runID string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := newDesignations(b.anchors, b.controls)
	if d.anchorCount() == 0 {
		return nil, fmt.Errorf("%w: %w: no samples are designated as anchors",
			core.ErrMissingCalibration, core.ErrInsufficientAnchors)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	materials, err := d.resolve(b.catalog)
	if err != nil {
		return nil, err
	}

	active := b.active()
	for _, r := range active {
		if math.IsNaN(r.RawValue) || math.IsInf(r.RawValue, 0) {
			return nil, fmt.Errorf("%w: row %d (%s) has raw value %v",
				core.ErrInvalidMeasurement, r.RowID, r.SampleLabel, r.RawValue)
		}
	}

	samples := aggregate(active)
	var warnings []Warning
	for i := range samples {
		s := &samples[i]
		s.Role = d.roleOf(s.Label)
		if s.Role != core.RoleUnknown {
			m := materials[catalog.Normalize(s.Label)]
			s.Material = &m
		}
		if s.StdErrUndefined {
			warnings = append(warnings, Warning{
				Label: s.Label,
				Err:   fmt.Errorf("%w: single replicate, standard error treated as zero", core.ErrUndefinedStandardError),
			})
			logger.V(logging.DEBUG).Info("Single-replicate sample", "label", s.Label)
		}
	}

	anchors := poolAnchors(samples)
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: %w: none of the designated anchors has active replicates",
			core.ErrMissingCalibration, core.ErrInsufficientAnchors)
	}
	logger.V(logging.DEBUG).Info("Fitting calibration", "anchors", len(anchors))

	fit, err := strategy.Fit(anchors)
	if err != nil {
		return nil, fmt.Errorf("fitting %s calibration: %w", strategy.Type(), err)
	}
	logger.V(logging.DEBUG).Info("Calibration fitted", "parameters", fit.Parameters)

	results := make([]core.CorrectedResult, 0, len(samples))
	for _, s := range samples {
		r, err := b.correct(fit, s)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.Label, err)
		}
		logger.V(logging.TRACE).Info("Sample corrected", "label", r.Label, "value", r.Value, "uncertainty", r.Uncertainty)
		results = append(results, r)
	}

	return &Outcome{
		RunID:    runID,
		Strategy: strategy.Type(),
		Fit:      fit,
		Anchors:  anchors,
		Samples:  samples,
		Results:  results,
		Warnings: warnings,
	}, nil
}

func (b *Batch) correct(fit *core.CalibrationFit, s core.SampleAggregate) (core.CorrectedResult, error) {
	p, err := b.propagator.Propagate(fit, s.Mean, s.StdErr)
	if err != nil {
		return core.CorrectedResult{}, err
	}

	r := core.CorrectedResult{
		Label:           s.Label,
		Role:            s.Role,
		Count:           s.Count(),
		RawMean:         s.Mean,
		RawStdErr:       s.StdErr,
		Value:           p.Value,
		Uncertainty:     p.Uncertainty,
		StdErrUndefined: s.StdErrUndefined,
		Budget:          p.Contributions,
	}
	if s.Material != nil {
		r.Material = s.Material.Name
	}
	if s.Role == core.RoleControl {
		trueness := p.Value - s.Material.TrueValue
		r.ReferenceValue = ptr.To(s.Material.TrueValue)
		r.Trueness = ptr.To(trueness)
		r.WithinUncertainty = ptr.To(math.Abs(trueness) < b.coverage*p.Uncertainty)
	}
	return r, nil
}

// poolAnchors merges anchor samples that resolve to the same material into a
// single calibration point, in order of first appearance.
func poolAnchors(samples []core.SampleAggregate) []core.Anchor {
	index := make(map[string]int)
	var pooled []core.SampleAggregate
	for _, s := range samples {
		if s.Role != core.RoleAnchor {
			continue
		}
		i, ok := index[s.Material.Name]
		if !ok {
			index[s.Material.Name] = len(pooled)
			pooled = append(pooled, core.SampleAggregate{Label: s.Label, Material: s.Material})
			i = len(pooled) - 1
		}
		pooled[i].Replicates = append(pooled[i].Replicates, s.Replicates...)
	}

	anchors := make([]core.Anchor, len(pooled))
	for i, p := range pooled {
		mean, se, _ := meanStdErr(p.Replicates)
		anchors[i] = core.Anchor{
			Label:           p.Label,
			Material:        p.Material.Name,
			RawMean:         mean,
			RawStdErr:       se,
			TrueValue:       p.Material.TrueValue,
			TrueUncertainty: p.Material.Uncertainty,
		}
	}
	return anchors
}
