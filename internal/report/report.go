// Package report renders processing outcomes and catalogs as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/llm-d/isocal/pkg/batch"
	"github.com/llm-d/isocal/pkg/catalog"
	"github.com/llm-d/isocal/pkg/core"
)

// Table is a header plus rows of preformatted cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// FlagSingleReplicate marks results whose standard error is undefined.
const FlagSingleReplicate = "n=1"

// Results lists every corrected sample in outcome order.
func Results(o *batch.Outcome, decimals int) Table {
	t := Table{Headers: []string{"SAMPLE", "ROLE", "N", "RAW MEAN", "RAW SE", "CORRECTED", "U(C)", "FLAG"}}
	for _, r := range o.Results {
		flag := ""
		if r.StdErrUndefined {
			flag = FlagSingleReplicate
		}
		t.Rows = append(t.Rows, []string{
			r.Label,
			string(r.Role),
			strconv.Itoa(r.Count),
			formatFloat(r.RawMean, decimals),
			formatFloat(r.RawStdErr, decimals),
			formatFloat(r.Value, decimals),
			formatFloat(r.Uncertainty, decimals),
			flag,
		})
	}
	return t
}

// QAQC lists the controls with their trueness and within-uncertainty check.
func QAQC(o *batch.Outcome, decimals int) Table {
	t := Table{Headers: []string{"CONTROL", "MATERIAL", "ACCEPTED", "CORRECTED", "U(C)", "TRUENESS", "WITHIN"}}
	for _, r := range o.Controls() {
		t.Rows = append(t.Rows, []string{
			r.Label,
			r.Material,
			formatPtr(r.ReferenceValue, decimals),
			formatFloat(r.Value, decimals),
			formatFloat(r.Uncertainty, decimals),
			formatPtr(r.Trueness, decimals),
			formatBool(r.WithinUncertainty),
		})
	}
	return t
}

// Parameters lists the fitted calibration parameters.
func Parameters(fit *core.CalibrationFit, decimals int) Table {
	t := Table{Headers: []string{"PARAMETER", "VALUE", "U"}}
	for _, p := range fit.Parameters {
		t.Rows = append(t.Rows, []string{p.Name, formatFloat(p.Value, decimals), formatFloat(p.Uncertainty, decimals)})
	}
	return t
}

// Catalog lists the reference materials of c sorted by name.
func Catalog(c *catalog.Catalog, decimals int) Table {
	t := Table{Headers: []string{"NAME", "VALUE", "U", "ALIASES"}}
	for _, m := range c.Materials() {
		t.Rows = append(t.Rows, []string{
			m.Name,
			formatFloat(m.TrueValue, decimals),
			formatFloat(m.Uncertainty, decimals),
			strings.Join(m.Aliases, ", "),
		})
	}
	return t
}

// Write renders t with aligned columns.
func Write(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(t.Headers, "\t")); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatFloat(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Trim(s, "-0.") == "" {
		// rounds to zero; drop the sign of -0.000
		return strings.TrimPrefix(s, "-")
	}
	return s
}

func formatPtr(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, decimals)
}

func formatBool(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "yes"
	default:
		return "no"
	}
}
