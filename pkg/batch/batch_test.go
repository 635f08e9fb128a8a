package batch

import (
	"context"
	"math"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/isocal/internal/logging"
	"github.com/llm-d/isocal/pkg/calibration"
	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
	"github.com/llm-d/isocal/pkg/kragten"
)

type recordingObserver struct {
	strategies []core.StrategyType
	outcomes   []*Outcome
	errs       []error
}

func (r *recordingObserver) ObservePass(s core.StrategyType, _ time.Duration, o *Outcome, err error) {
	r.strategies = append(r.strategies, s)
	r.outcomes = append(r.outcomes, o)
	r.errs = append(r.errs, err)
}

// replicates builds rows with consecutive row ids starting at first.
func replicates(first int, label string, values ...float64) []core.ReplicateMeasurement {
	out := make([]core.ReplicateMeasurement, len(values))
	for i, v := range values {
		out[i] = core.ReplicateMeasurement{SampleLabel: label, RawValue: v, RowID: first + i}
	}
	return out
}

func rows(groups ...[]core.ReplicateMeasurement) []core.ReplicateMeasurement {
	var out []core.ReplicateMeasurement
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var _ = Describe("Batch", func() {
	var (
		ctx      context.Context
		cat      *catalog.Catalog
		twoPoint core.Strategy
	)

	BeforeEach(func() {
		ctx = logr.NewContext(context.Background(), logging.Log)

		var err error
		cat, err = catalog.New(
			core.ReferenceMaterial{Name: "USGS32", TrueValue: 180.0, Uncertainty: 0.1, Aliases: []string{"USGS-32", "KN032"}},
			core.ReferenceMaterial{Name: "USGS34", TrueValue: 1.8, Uncertainty: 0.1, Aliases: []string{"USGS-34"}},
			core.ReferenceMaterial{Name: "CTRL-A", TrueValue: 90.9, Uncertainty: 0.2},
		)
		Expect(err).NotTo(HaveOccurred())

		twoPoint, err = calibration.NewStrategy(calibration.TwoPointLinearStrategy)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("end-to-end two-point calibration", func() {
		var b *Batch

		BeforeEach(func() {
			b = New(rows(
				replicates(1, "USGS32", -50.02, -49.98),
				replicates(3, "USGS34", -60.02, -59.98),
				replicates(5, "SAMPLE-1", -55.05, -54.95),
				replicates(7, "CTRL-A", -55.04, -54.96),
			), WithCatalog(cat))
			b.SetAnchors("USGS32", "USGS34")
			b.SetControls("CTRL-A")
		})

		It("corrects the unknown onto the calibration line", func() {
			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Strategy).To(Equal(calibration.TwoPointLinearStrategy))
			Expect(outcome.RunID).NotTo(BeEmpty())

			r, ok := outcome.Result("SAMPLE-1")
			Expect(ok).To(BeTrue())
			Expect(r.Role).To(Equal(core.RoleUnknown))
			Expect(r.Material).To(BeEmpty())
			Expect(r.Count).To(Equal(2))
			Expect(r.RawStdErr).To(BeNumerically("~", 0.05, 1e-9))
			Expect(r.Value).To(BeNumerically("~", 90.9, 1e-6))
			Expect(r.Uncertainty).To(BeNumerically(">", 0.1))
			Expect(r.Trueness).To(BeNil())
			Expect(r.Budget).To(HaveLen(3))
		})

		It("maps every anchor onto its accepted value", func() {
			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Anchors).To(HaveLen(2))

			r32 := outcome.ResultsByLabel()["USGS32"]
			Expect(r32.Role).To(Equal(core.RoleAnchor))
			Expect(r32.Material).To(Equal("USGS32"))
			Expect(r32.Value).To(BeNumerically("~", 180.0, 1e-6))

			r34 := outcome.ResultsByLabel()["USGS34"]
			Expect(r34.Value).To(BeNumerically("~", 1.8, 1e-6))
		})

		It("reports trueness for controls", func() {
			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			controls := outcome.Controls()
			Expect(controls).To(HaveLen(1))
			c := controls[0]
			Expect(c.Label).To(Equal("CTRL-A"))
			Expect(c.ReferenceValue).To(HaveValue(Equal(90.9)))
			Expect(*c.Trueness).To(BeNumerically("~", c.Value-90.9, 1e-12))
			Expect(*c.Trueness).To(BeNumerically("~", 0, 1e-6))
			Expect(c.WithinUncertainty).To(HaveValue(BeTrue()))
		})

		It("publishes the outcome until the batch changes", func() {
			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			current, err := b.Outcome()
			Expect(err).NotTo(HaveOccurred())
			Expect(current).To(BeIdenticalTo(outcome))

			b.ExcludeRows(6)
			_, err = b.Outcome()
			Expect(err).To(MatchError(ErrNotProcessed))
		})

		It("gives a fresh run id to every pass", func() {
			first, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			second, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.RunID).NotTo(Equal(first.RunID))
		})

		It("propagates over anchor inputs when asked", func() {
			byParams, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			b2 := New(rows(
				replicates(1, "USGS32", -50.02, -49.98),
				replicates(3, "USGS34", -60.02, -59.98),
				replicates(5, "SAMPLE-1", -55.05, -54.95),
			), WithCatalog(cat), WithPropagation(kragten.ModeAnchorInputs))
			b2.SetAnchors("USGS32", "USGS34")
			byInputs, err := b2.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			p, _ := byParams.Result("SAMPLE-1")
			in, _ := byInputs.Result("SAMPLE-1")
			Expect(in.Value).To(BeNumerically("~", p.Value, 1e-9))
			Expect(in.Uncertainty).To(BeNumerically(">", 0.0))
			Expect(in.Budget).To(HaveLen(5))
		})
	})

	Context("role designation", func() {
		It("matches designations after normalization", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "usgs-34", -60, -60),
			), WithCatalog(cat))
			b.SetAnchors("usgs 32", "USGS_34")

			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Anchors).To(HaveLen(2))
			Expect(outcome.ResultsByLabel()["usgs-34"].Material).To(Equal("USGS34"))
		})

		It("never classifies an undesignated sample by a catalog hit", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "USGS34", -60, -60),
				replicates(5, "CTRL-A", -55, -55),
			), WithCatalog(cat))
			b.SetAnchors("USGS32", "USGS34")

			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			r, _ := outcome.Result("CTRL-A")
			Expect(r.Role).To(Equal(core.RoleUnknown))
			Expect(r.Trueness).To(BeNil())
			Expect(outcome.Controls()).To(BeEmpty())
		})

		It("pools anchor samples that resolve to the same material", func() {
			b := New(rows(
				replicates(1, "USGS32", -50.1),
				replicates(2, "KN032", -49.9),
				replicates(3, "USGS34", -60, -60),
			), WithCatalog(cat))
			b.SetAnchors("USGS32", "KN032", "USGS34")

			outcome, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Anchors).To(HaveLen(2))
			Expect(outcome.Anchors[0].Material).To(Equal("USGS32"))
			Expect(outcome.Anchors[0].RawMean).To(BeNumerically("~", -50, 1e-9))
			Expect(outcome.Anchors[0].RawStdErr).To(BeNumerically("~", 0.1, 1e-9))
		})

		It("rejects a label designated with both roles", func() {
			b := New(replicates(1, "USGS32", -50), WithCatalog(cat))
			b.SetAnchors("USGS32", "USGS34")
			b.SetControls("usgs-32")

			_, err := b.Process(ctx, twoPoint)
			Expect(err).To(MatchError(core.ErrRoleConflict))
		})

		It("reports designations that do not resolve", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "LAB-9", -60, -60),
			), WithCatalog(cat))
			b.SetAnchors("USGS32", "LAB-9")

			_, err := b.Process(ctx, twoPoint)
			Expect(err).To(MatchError(core.ErrUnresolvedStandard))
			Expect(err.Error()).To(ContainSubstring("LAB-9"))
		})

		It("summarizes samples with their designated roles", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -49),
				replicates(3, "S1", -55),
			), WithCatalog(cat))
			b.SetAnchors("USGS32")

			summary := b.Summary()
			Expect(summary).To(HaveLen(2))
			Expect(summary[0].Role).To(Equal(core.RoleAnchor))
			Expect(summary[0].Mean).To(BeNumerically("~", -49.5, 1e-12))
			Expect(summary[1].Role).To(Equal(core.RoleUnknown))
			Expect(summary[1].StdErrUndefined).To(BeTrue())
		})
	})

	Context("fatal errors", func() {
		It("fails before anchors are designated", func() {
			b := New(replicates(1, "USGS32", -50, -50), WithCatalog(cat))

			_, err := b.Process(ctx, twoPoint)
			Expect(err).To(MatchError(core.ErrMissingCalibration))
			Expect(err).To(MatchError(core.ErrInsufficientAnchors))

			_, err = b.Outcome()
			Expect(err).To(MatchError(ErrNotProcessed))
		})

		It("fails when every anchor row is excluded", func() {
			b := New(rows(
				replicates(1, "USGS32", -50),
				replicates(2, "S1", -55),
			), WithCatalog(cat))
			b.SetAnchors("USGS32")
			b.ExcludeRows(1)

			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Process(ctx, strategy)
			Expect(err).To(MatchError(core.ErrInsufficientAnchors))
		})

		It("aborts on degenerate anchors and discards the previous outcome", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "USGS34", -60, -60),
				replicates(5, "S1", -55, -55),
			), WithCatalog(cat))
			b.SetAnchors("USGS32", "USGS34")
			_, err := b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			b.ExcludeRows(3, 4)
			b2 := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "USGS34", -50, -50),
				replicates(5, "S1", -55, -55),
			), WithCatalog(cat))
			b2.SetAnchors("USGS32", "USGS34")
			outcome, err := b2.Process(ctx, twoPoint)
			Expect(err).To(MatchError(core.ErrDegenerateAnchors))
			Expect(outcome).To(BeNil())
			_, err = b2.Outcome()
			Expect(err).To(MatchError(ErrNotProcessed))

			_, err = b.Process(ctx, twoPoint)
			Expect(err).To(MatchError(core.ErrInsufficientAnchors))
			_, err = b.Outcome()
			Expect(err).To(MatchError(ErrNotProcessed))
		})

		It("rejects non-finite raw values", func() {
			b := New(rows(
				replicates(1, "USGS32", -50),
				replicates(2, "S1", math.NaN()),
			), WithCatalog(cat))
			b.SetAnchors("USGS32")

			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Process(ctx, strategy)
			Expect(err).To(MatchError(core.ErrInvalidMeasurement))
		})

		It("rejects a nil strategy", func() {
			b := New(replicates(1, "USGS32", -50), WithCatalog(cat))
			b.SetAnchors("USGS32")
			_, err := b.Process(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("single replicates", func() {
		It("flags the sample and warns without failing", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50.2),
				replicates(3, "S1", -48),
			), WithCatalog(cat))
			b.SetAnchors("USGS32")

			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())
			outcome, err := b.Process(ctx, strategy)
			Expect(err).NotTo(HaveOccurred())

			r, _ := outcome.Result("S1")
			Expect(r.StdErrUndefined).To(BeTrue())
			Expect(r.RawStdErr).To(BeZero())
			Expect(r.Value).To(BeNumerically("~", 180.0+(-48+50.1), 1e-9))

			Expect(outcome.Warnings).To(HaveLen(1))
			Expect(outcome.Warnings[0].Label).To(Equal("S1"))
			Expect(outcome.Warnings[0]).To(MatchError(core.ErrUndefinedStandardError))
		})
	})

	Context("row exclusion", func() {
		It("pre-filters rows before aggregation", func() {
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "S1", -55, -55, -80),
			), WithCatalog(cat))
			b.SetAnchors("USGS32")
			b.ExcludeRows(5)
			Expect(b.Excluded()).To(Equal([]int{5}))

			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())
			outcome, err := b.Process(ctx, strategy)
			Expect(err).NotTo(HaveOccurred())
			r, _ := outcome.Result("S1")
			Expect(r.Count).To(Equal(2))
			Expect(r.RawMean).To(Equal(-55.0))

			b.ClearExclusions()
			Expect(b.Excluded()).To(BeEmpty())
			outcome, err = b.Process(ctx, strategy)
			Expect(err).NotTo(HaveOccurred())
			r, _ = outcome.Result("S1")
			Expect(r.Count).To(Equal(3))
		})
	})

	Context("observers and catalogs", func() {
		It("notifies the observer on success and failure", func() {
			obs := &recordingObserver{}
			b := New(rows(
				replicates(1, "USGS32", -50, -50),
				replicates(3, "USGS34", -60, -60),
			), WithCatalog(cat), WithObserver(obs))

			_, err := b.Process(ctx, twoPoint)
			Expect(err).To(HaveOccurred())

			b.SetAnchors("USGS32", "USGS34")
			_, err = b.Process(ctx, twoPoint)
			Expect(err).NotTo(HaveOccurred())

			Expect(obs.strategies).To(Equal([]core.StrategyType{calibration.TwoPointLinearStrategy, calibration.TwoPointLinearStrategy}))
			Expect(obs.outcomes[0]).To(BeNil())
			Expect(obs.errs[0]).To(MatchError(core.ErrMissingCalibration))
			Expect(obs.outcomes[1]).NotTo(BeNil())
			Expect(obs.errs[1]).To(BeNil())
		})

		It("keeps the catalog it was created with across reloads", func() {
			DeferCleanup(func() {
				Expect(catalog.Reload(catalog.Builtin())).To(Succeed())
			})

			b := New(replicates(1, "USGS35", 2.5, 2.6))
			b.SetAnchors("USGS35")

			empty, err := catalog.New()
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog.Reload(empty)).To(Succeed())

			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Process(ctx, strategy)
			Expect(err).NotTo(HaveOccurred())

			after := New(replicates(1, "USGS35", 2.5))
			after.SetAnchors("USGS35")
			_, err = after.Process(ctx, strategy)
			Expect(err).To(MatchError(core.ErrUnresolvedStandard))
		})

		It("applies the coverage factor to the control check", func() {
			data := rows(
				replicates(1, "USGS32", -50.02, -49.98),
				replicates(3, "CTRL-A", -139.0, -139.0),
			)
			strategy, err := calibration.NewStrategy(calibration.SinglePointOffsetStrategy)
			Expect(err).NotTo(HaveOccurred())

			// Offset 230 puts the control at 91.0, 0.1 above its accepted value,
			// with u = hypot(0.02, 0.1) from the offset alone.
			for _, tc := range []struct {
				k      float64
				within bool
			}{{k: DefaultCoverageFactor, within: true}, {k: 0.5, within: false}} {
				b := New(data, WithCatalog(cat), WithCoverageFactor(tc.k))
				b.SetAnchors("USGS32")
				b.SetControls("CTRL-A")

				outcome, err := b.Process(ctx, strategy)
				Expect(err).NotTo(HaveOccurred())
				c := outcome.Controls()[0]
				Expect(*c.Trueness).To(BeNumerically("~", 0.1, 1e-9))
				Expect(c.Uncertainty).To(BeNumerically("~", math.Hypot(0.02, 0.1), 1e-9))
				Expect(c.WithinUncertainty).To(HaveValue(Equal(tc.within)), "k=%v", tc.k)
			}
		})
	})
})
