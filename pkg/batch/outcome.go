package batch

import (
	"time"

	"github.com/llm-d/isocal/pkg/core"
)

// Warning is a non-fatal condition raised for one sample during a pass.
type Warning struct {
	Label string
	Err   error
}

func (w Warning) Error() string {
	return w.Label + ": " + w.Err.Error()
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Outcome is the published result of a successful pass. It is replaced
// wholesale on reprocessing and must be treated as read-only.
type Outcome struct {
	// RunID uniquely identifies the pass.
	RunID string

	Strategy core.StrategyType
	Fit      *core.CalibrationFit

	// Anchors are the pooled calibration points the strategy was fitted on.
	Anchors []core.Anchor

	// Samples and Results are in order of first appearance in the replicate table.
	Samples []core.SampleAggregate
	Results []core.CorrectedResult

	Warnings []Warning
}

// Result returns the corrected result for a sample label.
func (o *Outcome) Result(label string) (core.CorrectedResult, bool) {
	for _, r := range o.Results {
		if r.Label == label {
			return r, true
		}
	}
	return core.CorrectedResult{}, false
}

// ResultsByLabel returns every result keyed by sample label.
func (o *Outcome) ResultsByLabel() map[string]core.CorrectedResult {
	out := make(map[string]core.CorrectedResult, len(o.Results))
	for _, r := range o.Results {
		out[r.Label] = r
	}
	return out
}

// Controls returns the results of control samples.
func (o *Outcome) Controls() []core.CorrectedResult {
	var out []core.CorrectedResult
	for _, r := range o.Results {
		if r.Role == core.RoleControl {
			out = append(out, r)
		}
	}
	return out
}

// Observer is notified once per pass. Exactly one of outcome and err is non-nil.
type Observer interface {
	ObservePass(strategy core.StrategyType, elapsed time.Duration, outcome *Outcome, err error)
}
