// Package batch turns the replicate table of an analytical run into corrected,
// uncertainty-propagated sample values.
//
// A Batch owns its replicates, exclusions and role designations. Process
// aggregates replicates per sample label, resolves designated anchors and
// controls through a reference material catalog, fits a calibration strategy on
// the anchors and propagates every sample through the fit. A pass either
// publishes a complete Outcome or fails without publishing anything.
//
// A Batch is not safe for concurrent use.
package batch

import (
	"errors"
	"slices"

	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
	"github.com/llm-d/isocal/pkg/kragten"
)

// DefaultCoverageFactor is the k used for the control within-uncertainty check.
const DefaultCoverageFactor = 2.0

// ErrNotProcessed is returned by Outcome when no successful pass is current.
var ErrNotProcessed = errors.New("batch has not been processed")

// Batch is one analytical run.
type Batch struct {
	replicates []core.ReplicateMeasurement
	excluded   map[int]struct{}
	anchors    []string
	controls   []string

	catalog    *catalog.Catalog
	propagator kragten.Propagator
	coverage   float64
	observer   Observer

	outcome *Outcome
}

// Option configures a Batch.
type Option func(*Batch)

// WithCatalog resolves designations against c instead of catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(b *Batch) {
		if c != nil {
			b.catalog = c
		}
	}
}

// WithPropagation selects the Kragten propagation mode.
func WithPropagation(mode kragten.Mode) Option {
	return func(b *Batch) {
		b.propagator.Mode = mode
	}
}

// WithCoverageFactor sets k for the control check |trueness| < k·u.
// Non-positive values are ignored.
func WithCoverageFactor(k float64) Option {
	return func(b *Batch) {
		if k > 0 {
			b.coverage = k
		}
	}
}

// WithObserver registers an observer notified after every pass.
func WithObserver(o Observer) Option {
	return func(b *Batch) {
		b.observer = o
	}
}

// New creates a batch over a copy of replicates. The catalog is captured now,
// so a later catalog.Reload does not affect this batch.
func New(replicates []core.ReplicateMeasurement, opts ...Option) *Batch {
	b := &Batch{
		replicates: make([]core.ReplicateMeasurement, len(replicates)),
		excluded:   make(map[int]struct{}),
		catalog:    catalog.Default(),
		propagator: kragten.Propagator{Mode: kragten.ModeParameters},
		coverage:   DefaultCoverageFactor,
	}
	for i, r := range replicates {
		r.Flags = slices.Clone(r.Flags)
		b.replicates[i] = r
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ExcludeRows drops replicates with the given row ids from aggregation.
func (b *Batch) ExcludeRows(rows ...int) {
	for _, r := range rows {
		b.excluded[r] = struct{}{}
	}
	b.outcome = nil
}

// ClearExclusions restores every excluded row.
func (b *Batch) ClearExclusions() {
	clear(b.excluded)
	b.outcome = nil
}

// Excluded returns the excluded row ids in ascending order.
func (b *Batch) Excluded() []int {
	out := make([]int, 0, len(b.excluded))
	for r := range b.excluded {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// SetAnchors replaces the labels designated as calibration anchors.
func (b *Batch) SetAnchors(labels ...string) {
	b.anchors = slices.Clone(labels)
	b.outcome = nil
}

// SetControls replaces the labels designated as quality controls.
func (b *Batch) SetControls(labels ...string) {
	b.controls = slices.Clone(labels)
	b.outcome = nil
}

// Summary aggregates the active replicates without resolving or fitting.
// Roles reflect the current designations; Material is left nil.
func (b *Batch) Summary() []core.SampleAggregate {
	d := newDesignations(b.anchors, b.controls)
	samples := aggregate(b.active())
	for i := range samples {
		samples[i].Role = d.roleOf(samples[i].Label)
	}
	return samples
}

// Outcome returns the result of the last successful pass. Any change to the
// batch, or a failed pass, discards it.
func (b *Batch) Outcome() (*Outcome, error) {
	if b.outcome == nil {
		return nil, ErrNotProcessed
	}
	return b.outcome, nil
}

func (b *Batch) active() []core.ReplicateMeasurement {
	out := make([]core.ReplicateMeasurement, 0, len(b.replicates))
	for _, r := range b.replicates {
		if _, skip := b.excluded[r.RowID]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}
