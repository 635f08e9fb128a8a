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

// Package metrics exposes processing passes as Prometheus metrics.
//
// The Recorder implements batch.Observer. A one-shot CLI run writes the
// registry to a node-exporter textfile with WriteTextfile.
package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d/isocal/pkg/batch"
	"github.com/llm-d/isocal/pkg/core"
)

const namespace = "isocal"

// Label values for the result label of the passes counter.
const (
	ResultSuccess = "success"
)

// Recorder collects pass, sample and control metrics.
type Recorder struct {
	passes          *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	samples         *prometheus.GaugeVec
	warnings        prometheus.Counter
	uncertainty     *prometheus.HistogramVec
	controlsOutside prometheus.Gauge
	maxTrueness     prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

var _ batch.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Processing passes by strategy and result (success or the failure reason).",
		}, []string{"strategy", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a processing pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"strategy"}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "samples",
			Help:      "Samples in the last successful pass by role.",
		}, []string{"role"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal sample warnings such as undefined standard errors.",
		}),
		uncertainty: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "combined_uncertainty",
			Help:      "Combined standard uncertainty of corrected values (per mil).",
			Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		}, []string{"role"}),
		controlsOutside: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controls_outside_uncertainty",
			Help:      "Controls of the last successful pass whose trueness exceeds k times their uncertainty.",
		}),
		maxTrueness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_max_abs_trueness",
			Help:      "Largest absolute control trueness of the last successful pass (per mil).",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pass.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.passes, r.duration, r.samples, r.warnings,
		r.uncertainty, r.controlsOutside, r.maxTrueness, r.lastSuccess,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return r, nil
}

// ObservePass implements batch.Observer.
func (r *Recorder) ObservePass(strategy core.StrategyType, elapsed time.Duration, outcome *batch.Outcome, err error) {
	s := string(strategy)
	r.duration.WithLabelValues(s).Observe(elapsed.Seconds())
	if err != nil {
		r.passes.WithLabelValues(s, core.ErrorReason(err)).Inc()
		return
	}
	r.passes.WithLabelValues(s, ResultSuccess).Inc()
	r.lastSuccess.SetToCurrentTime()
	r.warnings.Add(float64(len(outcome.Warnings)))

	counts := map[core.Role]int{core.RoleAnchor: 0, core.RoleControl: 0, core.RoleUnknown: 0}
	outside, maxAbs := 0, 0.0
	for _, res := range outcome.Results {
		counts[res.Role]++
		r.uncertainty.WithLabelValues(string(res.Role)).Observe(res.Uncertainty)
		if res.Trueness != nil {
			maxAbs = math.Max(maxAbs, math.Abs(*res.Trueness))
		}
		if res.WithinUncertainty != nil && !*res.WithinUncertainty {
			outside++
		}
	}
	for role, n := range counts {
		r.samples.WithLabelValues(string(role)).Set(float64(n))
	}
	r.controlsOutside.Set(float64(outside))
	r.maxTrueness.Set(maxAbs)
}

// WriteTextfile writes every metric gathered by g to path in the text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
