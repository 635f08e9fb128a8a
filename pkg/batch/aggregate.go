package batch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/llm-d/isocal/pkg/core"
)

// aggregate groups replicates by label in first-appearance order.
func aggregate(replicates []core.ReplicateMeasurement) []core.SampleAggregate {
	index := make(map[string]int)
	var samples []core.SampleAggregate
	for _, r := range replicates {
		i, ok := index[r.SampleLabel]
		if !ok {
			i = len(samples)
			index[r.SampleLabel] = i
			samples = append(samples, core.SampleAggregate{Label: r.SampleLabel, Role: core.RoleUnknown})
		}
		samples[i].Replicates = append(samples[i].Replicates, r)
	}
	for i := range samples {
		samples[i].Mean, samples[i].StdErr, samples[i].StdErrUndefined = meanStdErr(samples[i].Replicates)
	}
	return samples
}

// meanStdErr returns the mean and standard error of the mean. With a single
// replicate the standard error is undefined and reported as zero.
func meanStdErr(replicates []core.ReplicateMeasurement) (mean, stdErr float64, undefined bool) {
	x := make([]float64, len(replicates))
	for i, r := range replicates {
		x[i] = r.RawValue
	}
	mean = stat.Mean(x, nil)
	if len(x) < 2 {
		return mean, 0, true
	}
	return mean, stat.StdErr(stat.StdDev(x, nil), float64(len(x))), false
}
