package catalog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
)

var _ = Describe("Normalize", func() {
	DescribeTable("folds labels to their comparison form",
		func(label, want string) {
			Expect(catalog.Normalize(label)).To(Equal(want))
		},
		Entry("canonical name", "USGS32", "usgs32"),
		Entry("hyphenated alias", "usgs-32", "usgs32"),
		Entry("underscore and spaces", " Usgs_32 ", "usgs32"),
		Entry("prefixed run label", "ST_USGS32", "stusgs32"),
		Entry("only punctuation", "--", ""),
	)
})

var _ = Describe("Catalog", func() {
	var c *catalog.Catalog

	BeforeEach(func() {
		c = catalog.Builtin()
	})

	Describe("Resolve", func() {
		It("resolves the canonical name and every alias to the same material", func() {
			for _, label := range []string{"USGS32", "usgs-32", "Usgs 32", "KN032", "kn-032"} {
				m, err := c.Resolve(label)
				Expect(err).NotTo(HaveOccurred(), label)
				Expect(m.Name).To(Equal("USGS32"))
				Expect(m.TrueValue).To(Equal(180.0))
				Expect(m.Uncertainty).To(Equal(1.0))
			}
		})

		It("does not match on substrings", func() {
			_, err := c.Resolve("USGS3")
			Expect(err).To(MatchError(core.ErrUnresolvedStandard))

			_, err = c.Resolve("USGS320")
			Expect(err).To(MatchError(core.ErrUnresolvedStandard))
		})

		It("reports unknown labels", func() {
			_, err := c.Resolve("SAMPLE-7")
			Expect(err).To(MatchError(core.ErrUnresolvedStandard))
			Expect(err.Error()).To(ContainSubstring("SAMPLE-7"))
		})

		It("returns copies that cannot modify the catalog", func() {
			m, err := c.Resolve("USGS34")
			Expect(err).NotTo(HaveOccurred())
			m.Aliases[0] = "mutated"
			m.TrueValue = 0

			again, err := c.Resolve("USGS34")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Aliases).To(ContainElement("USGS-34"))
			Expect(again.TrueValue).To(Equal(-1.8))
		})
	})

	Describe("New", func() {
		It("rejects two materials sharing a normalized alias", func() {
			_, err := catalog.New(
				core.ReferenceMaterial{Name: "A", TrueValue: 1, Aliases: []string{"lab-1"}},
				core.ReferenceMaterial{Name: "B", TrueValue: 2, Aliases: []string{"LAB_1"}},
			)
			Expect(err).To(MatchError(core.ErrAmbiguousAlias))
		})

		It("accepts an alias repeating its own material's name", func() {
			c, err := catalog.New(core.ReferenceMaterial{Name: "N-1", TrueValue: 1, Aliases: []string{"n1"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Len()).To(Equal(1))
		})

		It("rejects invalid uncertainties", func() {
			_, err := catalog.New(core.ReferenceMaterial{Name: "A", TrueValue: 1, Uncertainty: -1})
			Expect(err).To(MatchError(core.ErrInvalidUncertainty))
		})

		It("rejects aliases that normalize to nothing", func() {
			_, err := catalog.New(core.ReferenceMaterial{Name: "A", TrueValue: 1, Aliases: []string{"--"}})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Materials", func() {
		It("lists materials sorted by name", func() {
			names := []string{}
			for _, m := range c.Materials() {
				names = append(names, m.Name)
			}
			Expect(names).To(Equal([]string{"USGS32", "USGS34", "USGS35"}))
		})
	})

	Describe("Merge", func() {
		It("lets custom definitions replace built-ins of the same name", func() {
			merged, err := c.Merge(core.ReferenceMaterial{Name: "usgs-32", TrueValue: 179.2, Uncertainty: 1.3})
			Expect(err).NotTo(HaveOccurred())
			Expect(merged.Len()).To(Equal(3))

			m, err := merged.Resolve("USGS32")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.TrueValue).To(Equal(179.2))

			_, err = merged.Resolve("KN032")
			Expect(err).To(MatchError(core.ErrUnresolvedStandard), "aliases of the replaced material are dropped")

			orig, err := c.Resolve("USGS32")
			Expect(err).NotTo(HaveOccurred())
			Expect(orig.TrueValue).To(Equal(180.0), "the receiver is left untouched")
		})

		It("fails when a custom alias collides with another built-in", func() {
			_, err := c.Merge(core.ReferenceMaterial{Name: "LAB", TrueValue: 1, Aliases: []string{"USGS 35"}})
			Expect(err).To(MatchError(core.ErrAmbiguousAlias))
		})
	})

	Describe("Default and Reload", func() {
		AfterEach(func() {
			Expect(catalog.Reload(catalog.Builtin())).To(Succeed())
		})

		It("swaps the process-wide catalog", func() {
			held := catalog.Default()
			custom, err := catalog.New(core.ReferenceMaterial{Name: "ONLY", TrueValue: 3})
			Expect(err).NotTo(HaveOccurred())

			Expect(catalog.Reload(custom)).To(Succeed())
			Expect(catalog.Default().Len()).To(Equal(1))
			Expect(held.Len()).To(Equal(3))
		})

		It("rejects a nil catalog", func() {
			Expect(catalog.Reload(nil)).NotTo(Succeed())
		})
	})
})

var _ = Describe("Catalog files", func() {
	It("loads standards from YAML and merges them over the built-ins", func() {
		materials, err := catalog.LoadFile("testdata/standards.yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(materials).To(HaveLen(2))

		merged, err := catalog.Builtin().Merge(materials...)
		Expect(err).NotTo(HaveOccurred())
		Expect(merged.Len()).To(Equal(4))

		m, err := merged.Resolve("In-House N1")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name).To(Equal("LAB-N1"))
		Expect(m.Uncertainty).To(Equal(0.15))
	})

	It("requires value and uncertainty", func() {
		_, err := catalog.Parse([]byte("standards:\n  - name: X\n    value: 1\n"))
		Expect(err).To(MatchError(ContainSubstring("uncertainty is required")))
	})

	It("rejects unknown fields", func() {
		_, err := catalog.Parse([]byte("standards:\n  - name: X\n    value: 1\n    uncertainty: 0\n    sigma: 2\n"))
		Expect(err).To(HaveOccurred())
	})

	It("treats an empty document as no standards", func() {
		materials, err := catalog.Parse(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(materials).To(BeEmpty())
	})

	It("reports missing files", func() {
		_, err := catalog.LoadFile("testdata/absent.yaml")
		Expect(err).To(HaveOccurred())
	})
})
